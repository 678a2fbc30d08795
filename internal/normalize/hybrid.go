package normalize

import (
	"sort"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// HybridView reports both stores' view of one paper under labeled keys.
// Nothing is merged; MismatchedFields lists canonical fields that disagree.
type HybridView struct {
	PaperID          string         `json:"paper_id"`
	Relational       *domain.Paper  `json:"relational"`
	Document         *domain.Paper  `json:"document"`
	FoundIn          []domain.Store `json:"found_in"`
	Consistent       bool           `json:"consistent"`
	MismatchedFields []string       `json:"mismatched_fields"`
}

// Hybrid builds the view. Either side may be nil when that store has no such paper.
func Hybrid(paperID string, relational, document *domain.Paper) HybridView {
	v := HybridView{
		PaperID:          paperID,
		Relational:       relational,
		Document:         document,
		FoundIn:          []domain.Store{},
		MismatchedFields: []string{},
	}
	if relational != nil {
		v.FoundIn = append(v.FoundIn, domain.StoreRelational)
	}
	if document != nil {
		v.FoundIn = append(v.FoundIn, domain.StoreDocument)
	}
	if relational != nil && document != nil {
		v.MismatchedFields = Mismatches(*relational, *document)
	}
	v.Consistent = len(v.FoundIn) == 2 && len(v.MismatchedFields) == 0
	return v
}

// Mismatches compares the fields both stores carry. Author lists are compared
// as sets because ordering is not guaranteed to survive both stores.
func Mismatches(a, b domain.Paper) []string {
	var out []string
	if a.Title != b.Title {
		out = append(out, "title")
	}
	if a.Abstract != b.Abstract {
		out = append(out, "abstract")
	}
	if a.Year != b.Year {
		out = append(out, "year")
	}
	if a.Journal != b.Journal {
		out = append(out, "journal")
	}
	if a.DOI != b.DOI {
		out = append(out, "doi")
	}
	if a.HasFullText != b.HasFullText {
		out = append(out, "has_full_text")
	}
	if a.IsCovid19 != b.IsCovid19 {
		out = append(out, "is_covid19")
	}
	if !SameAuthors(a.Authors, b.Authors) {
		out = append(out, "authors")
	}
	if out == nil {
		return []string{}
	}
	return out
}

// SameAuthors reports whether two author lists hold the same names, ignoring order.
func SameAuthors(a, b []string) bool {
	x := uniqueSorted(a)
	y := uniqueSorted(b)
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
