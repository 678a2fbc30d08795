// Package normalize converts each store's native paper shape into the
// canonical domain.Paper and builds side-by-side hybrid views.
package normalize

import (
	"strings"
	"time"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// AuthorSeparator joins ordered author names in relational rows.
// The relational adapter aggregates with it and FromRelational splits on it.
const AuthorSeparator = "; "

// RelationalRow is one paper row with its authors aggregated into a single string.
type RelationalRow struct {
	PaperID     string
	Title       string
	Abstract    string
	Year        int
	Journal     string
	Source      string
	DOI         string
	HasFullText bool
	IsCovid19   bool
	Authors     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FromRelational builds a canonical paper from a relational row.
// The relational schema carries no citation count or keywords.
func FromRelational(r RelationalRow) domain.Paper {
	p := domain.Paper{
		PaperID:       r.PaperID,
		Title:         r.Title,
		Abstract:      r.Abstract,
		Year:          r.Year,
		Journal:       r.Journal,
		DOI:           r.DOI,
		Source:        r.Source,
		HasFullText:   r.HasFullText,
		IsCovid19:     r.IsCovid19,
		CitationCount: 0,
		Keywords:      []string{},
		Authors:       SplitAuthors(r.Authors),
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt
		p.CreatedAt = &t
	}
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}

// SplitAuthors splits an aggregated author string back into an ordered list.
func SplitAuthors(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return []string{}
	}
	parts := strings.Split(joined, AuthorSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinAuthors is the inverse of SplitAuthors.
func JoinAuthors(authors []string) string {
	return strings.Join(authors, AuthorSeparator)
}

// Document is the stored shape of a paper in the document collection.
// Every field may be missing from older documents and decodes to its zero value.
type Document struct {
	PaperID       string     `bson:"paper_id"`
	Title         string     `bson:"title"`
	Abstract      string     `bson:"abstract"`
	Authors       []string   `bson:"authors"`
	Year          int        `bson:"year,omitempty"`
	Journal       string     `bson:"journal"`
	DOI           string     `bson:"doi"`
	SHA           string     `bson:"sha"`
	Source        string     `bson:"source"`
	HasFullText   bool       `bson:"has_full_text"`
	IsCovid19     bool       `bson:"is_covid19"`
	CitationCount int        `bson:"citation_count"`
	Keywords      []string   `bson:"keywords"`
	CreatedAt     *time.Time `bson:"created_at,omitempty"`
	UpdatedAt     *time.Time `bson:"updated_at,omitempty"`
}

// FromDocument builds a canonical paper from a stored document, filling defaults.
func FromDocument(d Document) domain.Paper {
	p := domain.Paper{
		PaperID:       d.PaperID,
		Title:         d.Title,
		Abstract:      d.Abstract,
		Year:          d.Year,
		Journal:       d.Journal,
		DOI:           d.DOI,
		Source:        d.Source,
		HasFullText:   d.HasFullText,
		IsCovid19:     d.IsCovid19,
		CitationCount: d.CitationCount,
		Keywords:      d.Keywords,
		Authors:       d.Authors,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	if p.Authors == nil {
		p.Authors = []string{}
	}
	if p.CitationCount < 0 {
		p.CitationCount = 0
	}
	return p
}

// ToDocument converts a prepared paper into its stored document shape.
func ToDocument(p domain.Paper) Document {
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return Document{
		PaperID:       p.PaperID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Authors:       authors,
		Year:          p.Year,
		Journal:       p.Journal,
		DOI:           p.DOI,
		Source:        p.Source,
		HasFullText:   p.HasFullText,
		IsCovid19:     p.IsCovid19,
		CitationCount: p.CitationCount,
		Keywords:      keywords,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
