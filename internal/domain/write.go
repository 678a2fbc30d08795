package domain

// Write operation names.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// WriteStatus is the outcome of one store's half of a dual write.
type WriteStatus string

const (
	WriteSucceeded WriteStatus = "success"
	WriteFailed    WriteStatus = "failure"
	// WriteSkipped means the store holds none of the fields being written.
	WriteSkipped WriteStatus = "skipped"
)

// StoreOutcome reports what one store did with a write.
type StoreOutcome struct {
	Store  Store       `json:"store"`
	Status WriteStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
	Err    error       `json:"-"`
}

// Succeeded returns a success outcome for the store.
func Succeeded(store Store) StoreOutcome {
	return StoreOutcome{Store: store, Status: WriteSucceeded}
}

// Skipped returns a skipped outcome for the store.
func Skipped(store Store) StoreOutcome {
	return StoreOutcome{Store: store, Status: WriteSkipped}
}

// Failed returns a failure outcome carrying err.
func Failed(store Store, err error) StoreOutcome {
	return StoreOutcome{Store: store, Status: WriteFailed, Error: err.Error(), Err: err}
}

// OK reports whether the store did not fail.
func (o StoreOutcome) OK() bool {
	return o.Status != WriteFailed
}

// WriteResult carries per-store outcomes of one dual write.
type WriteResult struct {
	Operation  string       `json:"operation"`
	PaperID    string       `json:"paper_id"`
	Relational StoreOutcome `json:"relational"`
	Document   StoreOutcome `json:"document"`
}

// Consistent reports whether neither store failed.
func (r *WriteResult) Consistent() bool {
	return r.Relational.OK() && r.Document.OK()
}

// Partial reports whether one store accepted the write and the other failed.
// A skipped store accepted nothing, so skipped plus failed is not partial.
func (r *WriteResult) Partial() bool {
	rel, doc := r.Relational.Status, r.Document.Status
	return (rel == WriteSucceeded && doc == WriteFailed) ||
		(rel == WriteFailed && doc == WriteSucceeded)
}

// BulkCounts tallies one store's results across a batch.
type BulkCounts struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// BulkFailure describes one store rejecting one paper of a batch.
type BulkFailure struct {
	Index   int    `json:"index"`
	PaperID string `json:"paper_id,omitempty"`
	Store   Store  `json:"store"`
	Error   string `json:"error"`
}

// BulkResult summarizes a bulk create per store.
type BulkResult struct {
	Total      int           `json:"total"`
	Relational BulkCounts    `json:"relational"`
	Document   BulkCounts    `json:"document"`
	Failures   []BulkFailure `json:"failures"`
}

// MaxBulkPapers caps a bulk create request.
const MaxBulkPapers = 1000
