package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Paper is the canonical paper shape returned by either store.
type Paper struct {
	PaperID       string     `json:"paper_id"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract"`
	Year          int        `json:"year,omitempty"`
	Journal       string     `json:"journal"`
	DOI           string     `json:"doi"`
	Source        string     `json:"source"`
	HasFullText   bool       `json:"has_full_text"`
	IsCovid19     bool       `json:"is_covid19"`
	CitationCount int        `json:"citation_count"`
	Keywords      []string   `json:"keywords"`
	Authors       []string   `json:"authors"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// Author is a relational author row.
type Author struct {
	AuthorID int64  `json:"author_id"`
	Name     string `json:"name"`
}

// DefaultSource is recorded for papers created through the API without a source.
const DefaultSource = "manual"

// GeneratePaperID returns a fresh cross-store paper identifier.
func GeneratePaperID() string {
	return "paper_" + uuid.NewString()
}

// PreparePaper validates a paper for creation and fills write-time defaults.
// The returned copy is what both stores receive, so they agree on identity.
func PreparePaper(p Paper, now time.Time) (Paper, error) {
	p.PaperID = strings.TrimSpace(p.PaperID)
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return Paper{}, NewValidationError("title", "is required")
	}
	if p.Year < 0 {
		return Paper{}, NewValidationError("year", "must not be negative")
	}
	if p.CitationCount < 0 {
		return Paper{}, NewValidationError("citation_count", "must not be negative")
	}
	if p.PaperID == "" {
		p.PaperID = GeneratePaperID()
	}
	if p.Year == 0 {
		p.Year = now.Year()
	}
	if p.Source == "" {
		p.Source = DefaultSource
	}
	p.Authors = cleanNames(p.Authors)
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	ts := now.UTC()
	p.CreatedAt = &ts
	p.UpdatedAt = &ts
	return p, nil
}

// cleanNames trims names and drops empties, keeping order.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// PaperUpdate carries a partial update. Nil fields are left untouched.
type PaperUpdate struct {
	Title         *string   `json:"title,omitempty"`
	Abstract      *string   `json:"abstract,omitempty"`
	Year          *int      `json:"year,omitempty"`
	Journal       *string   `json:"journal,omitempty"`
	DOI           *string   `json:"doi,omitempty"`
	Source        *string   `json:"source,omitempty"`
	HasFullText   *bool     `json:"has_full_text,omitempty"`
	IsCovid19     *bool     `json:"is_covid19,omitempty"`
	CitationCount *int      `json:"citation_count,omitempty"`
	Keywords      *[]string `json:"keywords,omitempty"`
	Authors       *[]string `json:"authors,omitempty"`
}

// Validate checks that the update is non-empty and well formed.
func (u *PaperUpdate) Validate() error {
	if u.IsEmpty() {
		return NewValidationError("update", "at least one field is required")
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if u.Year != nil && *u.Year < 0 {
		return NewValidationError("year", "must not be negative")
	}
	if u.CitationCount != nil && *u.CitationCount < 0 {
		return NewValidationError("citation_count", "must not be negative")
	}
	if u.Authors != nil {
		cleaned := cleanNames(*u.Authors)
		u.Authors = &cleaned
	}
	return nil
}

// IsEmpty reports whether no field is set.
func (u *PaperUpdate) IsEmpty() bool {
	return !u.HasRelationalFields() && u.CitationCount == nil && u.Keywords == nil
}

// HasRelationalFields reports whether any field stored by the relational schema is set.
// Citation count and keywords live only in the document store.
func (u *PaperUpdate) HasRelationalFields() bool {
	return u.Title != nil || u.Abstract != nil || u.Year != nil || u.Journal != nil ||
		u.DOI != nil || u.Source != nil || u.HasFullText != nil || u.IsCovid19 != nil ||
		u.Authors != nil
}
