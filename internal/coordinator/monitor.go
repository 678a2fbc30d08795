package coordinator

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// HealthRefresher updates externally visible store health.
type HealthRefresher interface {
	Refresh(ctx context.Context)
}

// SyncMonitor periodically compares store counts and refreshes store health.
type SyncMonitor struct {
	coordinator *Coordinator
	health      HealthRefresher
	interval    time.Duration
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewSyncMonitor creates a monitor ticking every interval. health may be nil.
func NewSyncMonitor(c *Coordinator, health HealthRefresher, interval, timeout time.Duration, logger zerolog.Logger) *SyncMonitor {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &SyncMonitor{
		coordinator: c,
		health:      health,
		interval:    interval,
		timeout:     timeout,
		logger:      logger.With().Str("component", "sync_monitor").Logger(),
	}
}

// Run checks once immediately and then on every tick until ctx is done.
// A non-positive interval disables the monitor.
func (m *SyncMonitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Info().Msg("sync monitor disabled")
		return
	}

	m.logger.Info().Dur("interval", m.interval).Msg("starting sync monitor")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("sync monitor stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *SyncMonitor) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if m.health != nil {
		m.health.Refresh(ctx)
	}

	status, err := m.coordinator.SyncStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error().Err(err).Msg("sync status check failed")
		}
		return
	}
	if status.SyncRequired {
		m.logger.Warn().
			Int64("relational_count", status.RelationalCount).
			Int64("document_count", status.DocumentCount).
			Int64("discrepancy", status.Discrepancy).
			Msg("stores out of sync")
		return
	}
	m.logger.Debug().Int64("count", status.RelationalCount).Msg("stores in sync")
}
