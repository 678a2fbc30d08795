package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/auth"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/normalize"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/query"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeReader serves a fixed paper set and records what it was asked.
type fakeReader struct {
	store  domain.Store
	papers []domain.Paper
	err    error

	mu     sync.Mutex
	calls  []string
	params []domain.SearchParams
}

func (f *fakeReader) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeReader) lastParams() domain.SearchParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.params) == 0 {
		return domain.SearchParams{}
	}
	return f.params[len(f.params)-1]
}

func (f *fakeReader) calledWith(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeReader) FindByID(_ context.Context, id string) (*domain.Paper, error) {
	if err := f.call("find_by_id"); err != nil {
		return nil, err
	}
	for _, p := range f.papers {
		if p.PaperID == id {
			paper := p
			return &paper, nil
		}
	}
	return nil, domain.NewNotFoundError("paper", id)
}

func (f *fakeReader) FindAll(_ context.Context, _ domain.SortKey, _ domain.PageRequest) (*domain.SearchResult, error) {
	if err := f.call("find_all"); err != nil {
		return nil, err
	}
	return &domain.SearchResult{Papers: f.papers, Total: int64(len(f.papers))}, nil
}

func (f *fakeReader) SearchText(_ context.Context, _ string, _ int) ([]domain.Paper, error) {
	if err := f.call("search_text"); err != nil {
		return nil, err
	}
	return f.papers, nil
}

func (f *fakeReader) AdvancedSearch(_ context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	if err := f.call("advanced_search"); err != nil {
		return nil, err
	}
	return &domain.SearchResult{Papers: f.papers, Total: int64(len(f.papers))}, nil
}

func (f *fakeReader) FilterOptions(_ context.Context) (*domain.FilterOptions, error) {
	if err := f.call("filter_options"); err != nil {
		return nil, err
	}
	return &domain.FilterOptions{Years: []int{2021}, Journals: []string{"Nature"}, Keywords: []string{}}, nil
}

func (f *fakeReader) Suggestions(_ context.Context, prefix string, _ domain.SuggestionType) (*domain.Suggestions, error) {
	if err := f.call("suggestions"); err != nil {
		return nil, err
	}
	return &domain.Suggestions{Titles: []string{prefix + " study"}}, nil
}

func (f *fakeReader) TopAuthors(_ context.Context, limit int) ([]domain.AuthorStat, error) {
	if err := f.call("top_authors"); err != nil {
		return nil, err
	}
	return []domain.AuthorStat{{Name: "Smith", PaperCount: int64(limit)}}, nil
}

func (f *fakeReader) TopJournals(_ context.Context, _ int) ([]domain.JournalStat, error) {
	if err := f.call("top_journals"); err != nil {
		return nil, err
	}
	return []domain.JournalStat{{Journal: "Nature", PaperCount: 3}}, nil
}

func (f *fakeReader) PapersPerYear(_ context.Context) ([]domain.YearStat, error) {
	if err := f.call("papers_per_year"); err != nil {
		return nil, err
	}
	return []domain.YearStat{{Year: 2020, Count: 2}}, nil
}

func (f *fakeReader) CovidStats(_ context.Context) (*domain.CovidStats, error) {
	if err := f.call("covid_stats"); err != nil {
		return nil, err
	}
	return &domain.CovidStats{Total: 1}, nil
}

func (f *fakeReader) Stats(_ context.Context) (*domain.Stats, error) {
	if err := f.call("stats"); err != nil {
		return nil, err
	}
	return &domain.Stats{TotalPapers: int64(len(f.papers))}, nil
}

func (f *fakeReader) Count(_ context.Context) (int64, error) {
	if err := f.call("count"); err != nil {
		return 0, err
	}
	return int64(len(f.papers)), nil
}

// fakeWriter answers dual writes with canned results.
type fakeWriter struct {
	result *domain.WriteResult
	bulk   *domain.BulkResult
	sync   domain.SyncStatus
	err    error

	mu      sync.Mutex
	created []domain.Paper
	updates map[string]domain.PaperUpdate
	deleted []string
	batch   []domain.Paper
}

func (f *fakeWriter) CreatePaper(_ context.Context, paper domain.Paper) (*domain.WriteResult, error) {
	f.mu.Lock()
	f.created = append(f.created, paper)
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeWriter) UpdatePaper(_ context.Context, paperID string, update domain.PaperUpdate) (*domain.WriteResult, error) {
	f.mu.Lock()
	if f.updates == nil {
		f.updates = make(map[string]domain.PaperUpdate)
	}
	f.updates[paperID] = update
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeWriter) DeletePaper(_ context.Context, paperID string) (*domain.WriteResult, error) {
	f.mu.Lock()
	f.deleted = append(f.deleted, paperID)
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeWriter) BulkCreate(_ context.Context, papers []domain.Paper) (*domain.BulkResult, error) {
	f.mu.Lock()
	f.batch = papers
	f.mu.Unlock()
	return f.bulk, f.err
}

func (f *fakeWriter) SyncStatus(_ context.Context) (domain.SyncStatus, error) {
	return f.sync, f.err
}

// fakeHybrid answers the hybrid endpoints.
type fakeHybrid struct {
	view     *normalize.HybridView
	search   *query.HybridSearchResult
	network  *query.AuthorNetwork
	analysis *query.JournalAnalysis
	err      error
}

func (f *fakeHybrid) PaperDetails(_ context.Context, _ string) (*normalize.HybridView, error) {
	return f.view, f.err
}

func (f *fakeHybrid) Search(_ context.Context, _ string, _ int) (*query.HybridSearchResult, error) {
	return f.search, f.err
}

func (f *fakeHybrid) AuthorNetwork(_ context.Context, _ string, _ int) (*query.AuthorNetwork, error) {
	return f.network, f.err
}

func (f *fakeHybrid) JournalAnalysis(_ context.Context, _ string) (*query.JournalAnalysis, error) {
	return f.analysis, f.err
}

// fakeAccounts returns fixed sessions.
type fakeAccounts struct {
	session *auth.Session
	user    *domain.User
	err     error

	registered []auth.RegisterInput
	profileID  int64
}

func (f *fakeAccounts) Register(_ context.Context, in auth.RegisterInput) (*auth.Session, error) {
	f.registered = append(f.registered, in)
	return f.session, f.err
}

func (f *fakeAccounts) Login(_ context.Context, _, _ string) (*auth.Session, error) {
	return f.session, f.err
}

func (f *fakeAccounts) Profile(_ context.Context, userID int64) (*domain.User, error) {
	f.profileID = userID
	return f.user, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type detailedPinger struct {
	fakePinger
	details map[string]any
}

func (p detailedPinger) HealthDetails() map[string]any { return p.details }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	server     *Server
	relational *fakeReader
	document   *fakeReader
	writer     *fakeWriter
	hybrid     *fakeHybrid
	accounts   *fakeAccounts
	tokens     *auth.TokenIssuer
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	papers := []domain.Paper{
		{PaperID: "p1", Title: "Coronavirus spread", Year: 2020, Journal: "Nature", Authors: []string{"Smith"}},
		{PaperID: "p2", Title: "Vaccine trial", Year: 2021, Journal: "Lancet", Authors: []string{"Jones"}},
	}
	env := &testEnv{
		relational: &fakeReader{store: domain.StoreRelational, papers: papers},
		document:   &fakeReader{store: domain.StoreDocument, papers: papers},
		writer:     &fakeWriter{},
		hybrid:     &fakeHybrid{},
		accounts:   &fakeAccounts{},
		tokens:     auth.NewTokenIssuer(testSecret, "test", time.Hour),
	}

	deps := Deps{
		Reads: query.NewDispatcher(router.New(), map[domain.Store]query.Reader{
			domain.StoreRelational: env.relational,
			domain.StoreDocument:   env.document,
		}, query.WithTimeout(time.Second)),
		Hybrid:   env.hybrid,
		Writes:   env.writer,
		Accounts: env.accounts,
		Tokens:   env.tokens,
		Stores: map[domain.Store]Pinger{
			domain.StoreRelational: fakePinger{},
			domain.StoreDocument:   fakePinger{},
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}
	for _, m := range mutate {
		m(&deps)
	}

	env.server = NewServer(Config{Address: "127.0.0.1:0"}, deps, zerolog.Nop())
	t.Cleanup(func() {
		if env.server.limiter != nil {
			env.server.limiter.Stop()
		}
	})
	return env
}

// token issues a bearer token for user 7.
func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(&domain.User{UserID: 7, Email: "r@example.com", Role: domain.DefaultRole})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) authed(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token(t))
	return e.do(req)
}

// testResponse is a decoded envelope or error body.
type testResponse struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *domain.Pagination `json:"pagination"`
	Source     domain.Store       `json:"source"`
	Route      *router.Route      `json:"route"`
	Error      string             `json:"error"`
	Field      string             `json:"field"`
	Result     json.RawMessage    `json:"result"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func jsonUnmarshal(rr *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rr.Body.Bytes(), v)
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &out))
	return out
}

func withMetrics(m *observability.Metrics) func(*Deps) {
	return func(d *Deps) { d.Metrics = m }
}
