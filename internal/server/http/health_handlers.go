package httpserver

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// healthCheckTimeout bounds each store ping.
const healthCheckTimeout = 3 * time.Second

// healthDetailer is implemented by stores that can describe their connection.
type healthDetailer interface {
	HealthDetails() map[string]any
}

// storeHealth is the health of one store.
type storeHealth struct {
	Store     domain.Store   `json:"store"`
	Healthy   bool           `json:"healthy"`
	LatencyMS int64          `json:"latency_ms"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// pingStores pings every configured store concurrently, in store name order.
func (s *Server) pingStores(ctx context.Context) []storeHealth {
	stores := make([]domain.Store, 0, len(s.deps.Stores))
	for store := range s.deps.Stores {
		stores = append(stores, store)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i] < stores[j] })

	results := make([]storeHealth, len(stores))
	var wg sync.WaitGroup
	for i, store := range stores {
		wg.Add(1)
		go func(i int, store domain.Store) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			defer cancel()

			pinger := s.deps.Stores[store]
			start := time.Now()
			err := pinger.Ping(pingCtx)
			results[i] = storeHealth{Store: store, Healthy: err == nil, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Error = err.Error()
			}
			if d, ok := pinger.(healthDetailer); ok {
				results[i].Details = d.HealthDetails()
			}
		}(i, store)
	}
	wg.Wait()
	return results
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler is ready only when every store answers a ping.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	g, ctx := errgroup.WithContext(r.Context())
	for store, pinger := range s.deps.Stores {
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			defer cancel()
			if err := pinger.Ping(pingCtx); err != nil {
				return domain.NewStoreUnavailableError(store, "ping", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// detailedHealthHandler reports every store with its latency.
func (s *Server) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	stores := s.pingStores(r.Context())
	status, code := "healthy", http.StatusOK
	for _, st := range stores {
		if !st.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	body := map[string]any{
		"status":    status,
		"stores":    stores,
		"timestamp": time.Now().UTC(),
	}
	if s.deps.Cache != nil {
		pingCtx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.deps.Cache.Ping(pingCtx)
		cancel()
		cache := map[string]any{"healthy": err == nil}
		if err != nil {
			cache["error"] = err.Error()
		}
		body["cache"] = cache
	}
	writeJSON(w, code, body)
}
