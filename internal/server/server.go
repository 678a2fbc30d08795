// Package server provides the gRPC health listener that reports the status of
// each paper store.
package server

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// OverallService is the health service name covering every store.
const OverallService = ""

// DefaultPingTimeout bounds one store ping during a refresh.
const DefaultPingTimeout = 3 * time.Second

// Pinger reports whether a store connection is alive.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewGRPCServer creates a gRPC server with keepalive, size limits and
// logging/recovery interceptors.
func NewGRPCServer(logger zerolog.Logger) *grpc.Server {
	logger = logger.With().Str("component", "grpc-server").Logger()
	return grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
		grpc.MaxConcurrentStreams(100),
		grpc.ChainUnaryInterceptor(
			RecoveryUnaryInterceptor(logger),
			LoggingUnaryInterceptor(logger),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  5 * time.Minute,
			Timeout:               1 * time.Minute,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Minute,
			PermitWithoutStream: true,
		}),
	)
}

// LoggingUnaryInterceptor logs every unary call with its code and latency.
func LoggingUnaryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		event := logger.Debug()
		if code != codes.OK {
			event = logger.Warn().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("latency", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

// RecoveryUnaryInterceptor turns a handler panic into codes.Internal.
func RecoveryUnaryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("method", info.FullMethod).
					Msg("grpc handler panicked")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// StoreHealth publishes one health service per store plus the overall service.
// A store is SERVING only while its last ping succeeded.
type StoreHealth struct {
	health  *health.Server
	stores  map[domain.Store]Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// NewStoreHealth creates the health publisher. Every service starts NOT_SERVING
// until the first Refresh.
func NewStoreHealth(stores map[domain.Store]Pinger, logger zerolog.Logger) *StoreHealth {
	h := &StoreHealth{
		health:  health.NewServer(),
		stores:  stores,
		timeout: DefaultPingTimeout,
		logger:  logger.With().Str("component", "store-health").Logger(),
	}
	h.health.SetServingStatus(OverallService, healthpb.HealthCheckResponse_NOT_SERVING)
	for store := range stores {
		h.health.SetServingStatus(string(store), healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return h
}

// Register adds the health and reflection services to srv.
func (h *StoreHealth) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.health)
	reflection.Register(srv)
}

// Server returns the underlying health server.
func (h *StoreHealth) Server() healthpb.HealthServer {
	return h.health
}

// Refresh pings every store concurrently and updates the serving statuses.
func (h *StoreHealth) Refresh(ctx context.Context) {
	var (
		mu      sync.Mutex
		healthy = true
		wg      sync.WaitGroup
	)
	for store, pinger := range h.stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			st := healthpb.HealthCheckResponse_SERVING
			if err := pinger.Ping(pingCtx); err != nil {
				st = healthpb.HealthCheckResponse_NOT_SERVING
				h.logger.Warn().Err(err).Str("store", string(store)).Msg("store health check failed")
				mu.Lock()
				healthy = false
				mu.Unlock()
			}
			h.health.SetServingStatus(string(store), st)
		}()
	}
	wg.Wait()

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(OverallService, overall)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (h *StoreHealth) Shutdown() {
	h.health.Shutdown()
}
