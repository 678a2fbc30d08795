// Package coordinator writes papers to both stores without a shared
// transaction and reports what each store accepted.
//
// Writes go to the relational store first and the document store second.
// A failure in one store never rolls back the other: the result carries a
// per-store outcome and a single-store failure surfaces as a
// domain.PartialWriteError. Detecting divergence afterwards is the job of
// SyncStatus and the SyncMonitor.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/events"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

// DefaultWriteTimeout bounds each store's half of a write when none is configured.
const DefaultWriteTimeout = 10 * time.Second

// bulkConcurrency caps the papers of a bulk create written at once.
const bulkConcurrency = 8

// PaperWriter is the write surface both store adapters provide.
type PaperWriter interface {
	Create(ctx context.Context, paper domain.Paper) error
	Update(ctx context.Context, paperID string, update domain.PaperUpdate) error
	Delete(ctx context.Context, paperID string) error
	Count(ctx context.Context) (int64, error)
}

// CacheInvalidator drops cached read results after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWriteTimeout bounds each store's half of a write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithPublisher publishes one event per write outcome.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithCache invalidates cached filter options after writes.
func WithCache(cache CacheInvalidator) Option {
	return func(c *Coordinator) { c.cache = cache }
}

// WithMetrics records dual-write outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the coordinator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger.With().Str("component", "coordinator").Logger() }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator performs dual writes.
type Coordinator struct {
	relational   PaperWriter
	document     PaperWriter
	writeTimeout time.Duration
	publisher    events.Publisher
	cache        CacheInvalidator
	metrics      *observability.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// New creates a coordinator over the two stores.
func New(relational, document PaperWriter, opts ...Option) *Coordinator {
	c := &Coordinator{
		relational:   relational,
		document:     document,
		writeTimeout: DefaultWriteTimeout,
		publisher:    events.NopPublisher{},
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePaper validates paper, fills its defaults and writes it to both stores.
// The returned result is non-nil whenever the write was attempted.
func (c *Coordinator) CreatePaper(ctx context.Context, paper domain.Paper) (*domain.WriteResult, error) {
	prepared, err := domain.PreparePaper(paper, c.now())
	if err != nil {
		return nil, err
	}

	result := c.createOne(ctx, prepared)
	c.afterWrites(ctx)
	return result, outcomeError(result)
}

// createOne writes an already prepared paper and reports the outcome.
func (c *Coordinator) createOne(ctx context.Context, paper domain.Paper) *domain.WriteResult {
	result := &domain.WriteResult{
		Operation:  domain.OpCreate,
		PaperID:    paper.PaperID,
		Relational: c.write(ctx, domain.StoreRelational, func(ctx context.Context) error {
			return c.relational.Create(ctx, paper)
		}),
	}
	result.Document = c.write(ctx, domain.StoreDocument, func(ctx context.Context) error {
		return c.document.Create(ctx, paper)
	})
	c.report(ctx, result)
	return result
}

// UpdatePaper applies update to both stores. Updates carrying only
// document-only fields skip the relational store.
func (c *Coordinator) UpdatePaper(ctx context.Context, paperID string, update domain.PaperUpdate) (*domain.WriteResult, error) {
	if paperID == "" {
		return nil, domain.NewValidationError("paper_id", "is required")
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	result := &domain.WriteResult{Operation: domain.OpUpdate, PaperID: paperID}
	if update.HasRelationalFields() {
		result.Relational = c.write(ctx, domain.StoreRelational, func(ctx context.Context) error {
			return c.relational.Update(ctx, paperID, update)
		})
	} else {
		result.Relational = domain.Skipped(domain.StoreRelational)
	}
	result.Document = c.write(ctx, domain.StoreDocument, func(ctx context.Context) error {
		return c.document.Update(ctx, paperID, update)
	})

	c.report(ctx, result)
	c.afterWrites(ctx)
	return result, outcomeError(result)
}

// DeletePaper removes the paper from both stores.
func (c *Coordinator) DeletePaper(ctx context.Context, paperID string) (*domain.WriteResult, error) {
	if paperID == "" {
		return nil, domain.NewValidationError("paper_id", "is required")
	}

	result := &domain.WriteResult{
		Operation:  domain.OpDelete,
		PaperID:    paperID,
		Relational: c.write(ctx, domain.StoreRelational, func(ctx context.Context) error {
			return c.relational.Delete(ctx, paperID)
		}),
	}
	result.Document = c.write(ctx, domain.StoreDocument, func(ctx context.Context) error {
		return c.document.Delete(ctx, paperID)
	})

	c.report(ctx, result)
	c.afterWrites(ctx)
	return result, outcomeError(result)
}

// BulkCreate writes every paper independently. One paper failing in one
// store never stops the batch; the result tallies each store separately.
func (c *Coordinator) BulkCreate(ctx context.Context, papers []domain.Paper) (*domain.BulkResult, error) {
	if len(papers) == 0 {
		return nil, domain.NewValidationError("papers", "must not be empty")
	}
	if len(papers) > domain.MaxBulkPapers {
		return nil, domain.NewValidationError("papers", fmt.Sprintf("must contain at most %d papers", domain.MaxBulkPapers))
	}

	now := c.now()
	results := make([]*domain.WriteResult, len(papers))
	invalid := make([]error, len(papers))

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i := range papers {
		g.Go(func() error {
			prepared, err := domain.PreparePaper(papers[i], now)
			if err != nil {
				invalid[i] = err
				return nil
			}
			results[i] = c.createOne(ctx, prepared)
			return nil
		})
	}
	_ = g.Wait()

	bulk := &domain.BulkResult{Total: len(papers), Failures: []domain.BulkFailure{}}
	for i := range papers {
		if invalid[i] != nil {
			bulk.Relational.Failed++
			bulk.Document.Failed++
			for _, store := range []domain.Store{domain.StoreRelational, domain.StoreDocument} {
				bulk.Failures = append(bulk.Failures, domain.BulkFailure{
					Index: i, PaperID: papers[i].PaperID, Store: store, Error: invalid[i].Error(),
				})
			}
			continue
		}
		res := results[i]
		tally(&bulk.Relational, &bulk.Failures, i, res.PaperID, res.Relational)
		tally(&bulk.Document, &bulk.Failures, i, res.PaperID, res.Document)
	}

	c.afterWrites(ctx)
	c.logger.Info().
		Int("total", bulk.Total).
		Int("relational_success", bulk.Relational.Success).
		Int("document_success", bulk.Document.Success).
		Msg("bulk create finished")
	return bulk, nil
}

func tally(counts *domain.BulkCounts, failures *[]domain.BulkFailure, index int, paperID string, outcome domain.StoreOutcome) {
	if outcome.OK() {
		counts.Success++
		return
	}
	counts.Failed++
	*failures = append(*failures, domain.BulkFailure{
		Index: index, PaperID: paperID, Store: outcome.Store, Error: outcome.Error,
	})
}

// SyncStatus compares the paper counts of the two stores.
func (c *Coordinator) SyncStatus(ctx context.Context) (domain.SyncStatus, error) {
	var relCount, docCount int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		relCount, err = c.relational.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		docCount, err = c.document.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SyncStatus{}, fmt.Errorf("sync status: %w", err)
	}

	status := domain.NewSyncStatus(relCount, docCount, c.now())
	c.metrics.SetStoreDiscrepancy(status.Discrepancy)
	return status, nil
}

// write runs one store's half of a write. Once started it is detached from
// the caller's cancellation so that a disconnecting client cannot stop the
// second store mid-flight; the write timeout still bounds it.
func (c *Coordinator) write(ctx context.Context, store domain.Store, fn func(context.Context) error) domain.StoreOutcome {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
	defer cancel()

	if err := fn(wctx); err != nil {
		if errors.Is(wctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrServiceUnavailable) {
			err = domain.NewStoreUnavailableError(store, "write", err)
		}
		return domain.Failed(store, err)
	}
	return domain.Succeeded(store)
}

// report logs, counts and publishes one write outcome.
func (c *Coordinator) report(ctx context.Context, result *domain.WriteResult) {
	label := "consistent"
	switch {
	case result.Partial():
		label = "partial"
	case !result.Consistent():
		label = "failed"
	}
	c.metrics.RecordDualWrite(result.Operation, label)

	logger := observability.WithPaperContext(c.logger, result.PaperID)
	switch label {
	case "partial":
		logger.Warn().
			Str("operation", result.Operation).
			Str("relational", string(result.Relational.Status)).
			Str("document", string(result.Document.Status)).
			Str("relational_error", result.Relational.Error).
			Str("document_error", result.Document.Error).
			Msg("partial dual write")
	case "failed":
		logger.Error().
			Str("operation", result.Operation).
			Str("relational_error", result.Relational.Error).
			Str("document_error", result.Document.Error).
			Msg("dual write failed in both stores")
	}

	if label == "failed" {
		return
	}
	event := domain.NewPaperEvent(result, c.now()).
		WithCorrelationID(observability.CorrelationIDFromContext(ctx))
	if err := c.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish paper event")
	}
}

// afterWrites drops cached read results.
func (c *Coordinator) afterWrites(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate filter options cache")
	}
}

// outcomeError turns a write result into the error returned to callers.
// A skipped store accepted nothing, so the other store's error is returned
// as is. When both stores fail with the same kind of rejection (not found,
// duplicate, invalid) that error is returned; any other double failure
// carries the per-store result.
func outcomeError(result *domain.WriteResult) error {
	if result.Relational.Status == domain.WriteSkipped {
		return result.Document.Err
	}
	if result.Document.Status == domain.WriteSkipped {
		return result.Relational.Err
	}

	relOK, docOK := result.Relational.OK(), result.Document.OK()
	switch {
	case relOK && docOK:
		return nil
	case relOK != docOK:
		return domain.NewPartialWriteError(result.Operation, result.PaperID, result)
	}

	relErr, docErr := result.Relational.Err, result.Document.Err
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrAlreadyExists, domain.ErrInvalidInput} {
		if errors.Is(relErr, sentinel) && errors.Is(docErr, sentinel) {
			return relErr
		}
	}
	return domain.NewWriteFailedError(result.Operation, result.PaperID, result)
}
