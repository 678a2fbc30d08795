package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

// memStore is an in-memory PaperWriter.
type memStore struct {
	store domain.Store

	mu      sync.Mutex
	papers  map[string]domain.Paper
	updates map[string]domain.PaperUpdate
	down    bool
	delay   time.Duration
	failIDs map[string]bool
}

func newMemStore(store domain.Store) *memStore {
	return &memStore{
		store:   store,
		papers:  map[string]domain.Paper{},
		updates: map[string]domain.PaperUpdate{},
		failIDs: map[string]bool{},
	}
}

func (s *memStore) check(ctx context.Context, id string) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.down || s.failIDs[id] {
		return domain.NewStoreUnavailableError(s.store, "write", errors.New("connection refused"))
	}
	return nil
}

func (s *memStore) Create(ctx context.Context, p domain.Paper) error {
	if err := s.check(ctx, p.PaperID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.papers[p.PaperID]; ok {
		return domain.NewAlreadyExistsError("paper", p.PaperID)
	}
	s.papers[p.PaperID] = p
	return nil
}

func (s *memStore) Update(ctx context.Context, id string, u domain.PaperUpdate) error {
	if err := s.check(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.papers[id]; !ok {
		return domain.NewNotFoundError("paper", id)
	}
	s.updates[id] = u
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	if err := s.check(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.papers[id]; !ok {
		return domain.NewNotFoundError("paper", id)
	}
	delete(s.papers, id)
	return nil
}

func (s *memStore) Count(ctx context.Context) (int64, error) {
	if err := s.check(ctx, ""); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.papers)), nil
}

func (s *memStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.papers[id]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PaperEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.PaperEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type countingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(opts ...Option) (*Coordinator, *memStore, *memStore) {
	rel := newMemStore(domain.StoreRelational)
	doc := newMemStore(domain.StoreDocument)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(rel, doc, opts...), rel, doc
}

func TestCreatePaper_BothStores(t *testing.T) {
	pub := &recordingPublisher{}
	cache := &countingCache{}
	c, rel, doc := newTestCoordinator(WithPublisher(pub), WithCache(cache))

	res, err := c.CreatePaper(context.Background(), domain.Paper{PaperID: "p1", Title: "T", Authors: []string{"A"}})
	require.NoError(t, err)
	assert.True(t, res.Consistent())
	assert.Equal(t, domain.WriteSucceeded, res.Relational.Status)
	assert.Equal(t, domain.WriteSucceeded, res.Document.Status)

	assert.True(t, rel.has("p1"))
	assert.True(t, doc.has("p1"))
	assert.Equal(t, rel.papers["p1"], doc.papers["p1"])
	assert.Equal(t, 2024, rel.papers["p1"].Year)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventTypePaperCreated, pub.events[0].Type)
	assert.Equal(t, 1, cache.calls)
}

func TestCreatePaper_DocumentUnavailable(t *testing.T) {
	m := observability.NewMetrics("test_coord_partial")
	c, rel, doc := newTestCoordinator(WithMetrics(m))
	doc.down = true

	res, err := c.CreatePaper(context.Background(), domain.Paper{PaperID: "p1", Title: "T", Authors: []string{"A"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPartialWrite))

	var pwe *domain.PartialWriteError
	require.True(t, errors.As(err, &pwe))
	assert.Same(t, res, pwe.Result)

	assert.Equal(t, domain.WriteSucceeded, res.Relational.Status)
	assert.Equal(t, domain.WriteFailed, res.Document.Status)
	assert.True(t, rel.has("p1"))
	assert.False(t, doc.has("p1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DualWrites.WithLabelValues("create", "partial")))
}

func TestCreatePaper_BothFail(t *testing.T) {
	pub := &recordingPublisher{}
	c, rel, doc := newTestCoordinator(WithPublisher(pub))
	rel.down, doc.down = true, true

	res, err := c.CreatePaper(context.Background(), domain.Paper{PaperID: "p1", Title: "T"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPartialWrite))
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	require.NotNil(t, res)
	assert.Equal(t, domain.WriteFailed, res.Relational.Status)
	assert.Empty(t, pub.events)

	var wfe *domain.WriteFailedError
	require.True(t, errors.As(err, &wfe))
	assert.Same(t, res, wfe.Result)
}

func TestCreatePaper_DuplicateAndOutageKeepsBothOutcomes(t *testing.T) {
	c, rel, doc := newTestCoordinator()
	ctx := context.Background()
	rel.papers["p1"] = domain.Paper{PaperID: "p1"}
	doc.down = true

	res, err := c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPartialWrite))
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))

	var wfe *domain.WriteFailedError
	require.True(t, errors.As(err, &wfe))
	assert.Same(t, res, wfe.Result)
	assert.True(t, errors.Is(res.Relational.Err, domain.ErrAlreadyExists))
	assert.True(t, errors.Is(res.Document.Err, domain.ErrServiceUnavailable))
}

func TestCreatePaper_DuplicateInBoth(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	require.NoError(t, err)
	_, err = c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	assert.False(t, errors.Is(err, domain.ErrPartialWrite))
}

func TestCreatePaper_Validation(t *testing.T) {
	c, rel, _ := newTestCoordinator()

	res, err := c.CreatePaper(context.Background(), domain.Paper{PaperID: "p1"})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.False(t, rel.has("p1"))
}

func TestCreatePaper_WriteTimeout(t *testing.T) {
	c, _, doc := newTestCoordinator(WithWriteTimeout(20 * time.Millisecond))
	doc.delay = time.Second

	res, err := c.CreatePaper(context.Background(), domain.Paper{PaperID: "p1", Title: "T"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPartialWrite))
	assert.True(t, errors.Is(res.Document.Err, domain.ErrServiceUnavailable))
	assert.True(t, errors.Is(res.Document.Err, context.DeadlineExceeded))
}

func TestCreatePaper_CallerCancellationDoesNotSplitWrite(t *testing.T) {
	c, rel, doc := newTestCoordinator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	require.NoError(t, err)
	assert.True(t, rel.has("p1"))
	assert.True(t, doc.has("p1"))
}

func TestUpdatePaper_SkipsRelationalForDocumentOnlyFields(t *testing.T) {
	c, rel, doc := newTestCoordinator()
	ctx := context.Background()
	_, err := c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	require.NoError(t, err)

	cites := 12
	res, err := c.UpdatePaper(ctx, "p1", domain.PaperUpdate{CitationCount: &cites})
	require.NoError(t, err)
	assert.Equal(t, domain.WriteSkipped, res.Relational.Status)
	assert.Equal(t, domain.WriteSucceeded, res.Document.Status)
	assert.Empty(t, rel.updates)
	assert.Equal(t, 12, *doc.updates["p1"].CitationCount)
}

func TestUpdatePaper_DocumentOnlyMissingPaper(t *testing.T) {
	m := observability.NewMetrics("test_coord_skipped_missing")
	pub := &recordingPublisher{}
	c, _, _ := newTestCoordinator(WithMetrics(m), WithPublisher(pub))

	cites := 3
	res, err := c.UpdatePaper(context.Background(), "ghost", domain.PaperUpdate{CitationCount: &cites})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, errors.Is(err, domain.ErrPartialWrite))

	assert.Equal(t, domain.WriteSkipped, res.Relational.Status)
	assert.Equal(t, domain.WriteFailed, res.Document.Status)
	assert.False(t, res.Partial())
	assert.Empty(t, pub.events)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DualWrites.WithLabelValues("update", "failed")))
}

func TestUpdatePaper_DocumentOnlyStoreDown(t *testing.T) {
	c, _, doc := newTestCoordinator()
	doc.down = true

	cites := 3
	_, err := c.UpdatePaper(context.Background(), "p1", domain.PaperUpdate{CitationCount: &cites})
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	assert.False(t, errors.Is(err, domain.ErrPartialWrite))
}

func TestUpdatePaper_Relational(t *testing.T) {
	c, rel, doc := newTestCoordinator()
	ctx := context.Background()
	_, err := c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	require.NoError(t, err)

	title := "New"
	res, err := c.UpdatePaper(ctx, "p1", domain.PaperUpdate{Title: &title})
	require.NoError(t, err)
	assert.True(t, res.Consistent())
	assert.Equal(t, "New", *rel.updates["p1"].Title)
	assert.Equal(t, "New", *doc.updates["p1"].Title)
}

func TestUpdatePaper_Invalid(t *testing.T) {
	c, _, _ := newTestCoordinator()

	_, err := c.UpdatePaper(context.Background(), "p1", domain.PaperUpdate{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	title := "x"
	_, err = c.UpdatePaper(context.Background(), "", domain.PaperUpdate{Title: &title})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestDeletePaper(t *testing.T) {
	c, rel, doc := newTestCoordinator()
	ctx := context.Background()
	_, err := c.CreatePaper(ctx, domain.Paper{PaperID: "p1", Title: "T"})
	require.NoError(t, err)

	res, err := c.DeletePaper(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, res.Consistent())
	assert.False(t, rel.has("p1"))
	assert.False(t, doc.has("p1"))

	_, err = c.DeletePaper(ctx, "p1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, errors.Is(err, domain.ErrPartialWrite))
}

func TestDeletePaper_OnlyInOneStore(t *testing.T) {
	c, rel, _ := newTestCoordinator()
	rel.papers["p1"] = domain.Paper{PaperID: "p1"}

	res, err := c.DeletePaper(context.Background(), "p1")
	assert.True(t, errors.Is(err, domain.ErrPartialWrite))
	assert.Equal(t, domain.WriteSucceeded, res.Relational.Status)
	assert.True(t, errors.Is(res.Document.Err, domain.ErrNotFound))
}

func TestBulkCreate(t *testing.T) {
	pub := &recordingPublisher{}
	cache := &countingCache{}
	c, rel, doc := newTestCoordinator(WithPublisher(pub), WithCache(cache))
	doc.failIDs["p2"] = true

	papers := []domain.Paper{
		{PaperID: "p1", Title: "One"},
		{PaperID: "p2", Title: "Two"},
		{PaperID: "p3"},
		{PaperID: "p4", Title: "Four"},
	}
	res, err := c.BulkCreate(context.Background(), papers)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, domain.BulkCounts{Success: 3, Failed: 1}, res.Relational)
	assert.Equal(t, domain.BulkCounts{Success: 2, Failed: 2}, res.Document)

	require.Len(t, res.Failures, 3)
	assert.Equal(t, domain.BulkFailure{Index: 1, PaperID: "p2", Store: domain.StoreDocument, Error: res.Failures[0].Error}, res.Failures[0])
	assert.Equal(t, 2, res.Failures[1].Index)
	assert.Equal(t, domain.StoreRelational, res.Failures[1].Store)
	assert.Equal(t, domain.StoreDocument, res.Failures[2].Store)

	assert.True(t, rel.has("p2"))
	assert.False(t, doc.has("p2"))
	assert.True(t, doc.has("p4"))
	assert.Len(t, pub.events, 3)
	assert.Equal(t, 1, cache.calls)
}

func TestBulkCreate_Bounds(t *testing.T) {
	c, _, _ := newTestCoordinator()

	_, err := c.BulkCreate(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = c.BulkCreate(context.Background(), make([]domain.Paper, domain.MaxBulkPapers+1))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSyncStatus(t *testing.T) {
	m := observability.NewMetrics("test_coord_sync")
	c, rel, doc := newTestCoordinator(WithMetrics(m))
	rel.papers["a"] = domain.Paper{}
	rel.papers["b"] = domain.Paper{}
	doc.papers["a"] = domain.Paper{}

	status, err := c.SyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.RelationalCount)
	assert.Equal(t, int64(1), status.DocumentCount)
	assert.Equal(t, int64(1), status.Discrepancy)
	assert.True(t, status.SyncRequired)
	assert.Equal(t, fixedNow, status.CheckedAt)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreDiscrepancy))

	doc.down = true
	_, err = c.SyncStatus(context.Background())
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestPublishFailureKeepsResult(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("kafka down")}
	c, _, _ := newTestCoordinator(WithPublisher(pub))

	res, err := c.CreatePaper(context.Background(), domain.Paper{PaperID: "p1", Title: "T"})
	require.NoError(t, err)
	assert.True(t, res.Consistent())
}
