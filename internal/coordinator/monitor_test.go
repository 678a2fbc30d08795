package coordinator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

type countingHealth struct {
	n atomic.Int32
}

func (h *countingHealth) Refresh(context.Context) { h.n.Add(1) }

func TestSyncMonitor_Run(t *testing.T) {
	m := observability.NewMetrics("test_sync_monitor")
	c, rel, _ := newTestCoordinator(WithMetrics(m))
	rel.papers["a"] = domain.Paper{}

	health := &countingHealth{}
	mon := NewSyncMonitor(c, health, 10*time.Millisecond, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return health.n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreDiscrepancy))
}

func TestSyncMonitor_Disabled(t *testing.T) {
	c, _, _ := newTestCoordinator()
	health := &countingHealth{}
	mon := NewSyncMonitor(c, health, 0, 0, zerolog.Nop())

	mon.Run(context.Background())
	assert.Zero(t, health.n.Load())
}

func TestSyncMonitor_StoreDown(t *testing.T) {
	c, _, doc := newTestCoordinator()
	doc.down = true
	mon := NewSyncMonitor(c, nil, time.Minute, time.Second, zerolog.Nop())

	assert.NotPanics(t, func() { mon.check(context.Background()) })
}
