package docstore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/normalize"
)

// Create inserts a paper document.
func (s *MongoPaperStore) Create(ctx context.Context, paper domain.Paper) error {
	if strings.TrimSpace(paper.PaperID) == "" {
		return domain.NewValidationError("paper_id", "is required")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return domain.NewValidationError("title", "is required")
	}

	if _, err := s.coll.InsertOne(ctx, normalize.ToDocument(paper)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewAlreadyExistsError("paper", paper.PaperID)
		}
		return storeError("create", err)
	}
	return nil
}

// updateSet builds the $set document for the fields present in update.
func updateSet(update domain.PaperUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if update.Title != nil {
		set["title"] = strings.TrimSpace(*update.Title)
	}
	if update.Abstract != nil {
		set["abstract"] = *update.Abstract
	}
	if update.Year != nil {
		set["year"] = *update.Year
	}
	if update.Journal != nil {
		set["journal"] = strings.TrimSpace(*update.Journal)
	}
	if update.DOI != nil {
		set["doi"] = *update.DOI
	}
	if update.Source != nil {
		set["source"] = strings.TrimSpace(*update.Source)
	}
	if update.HasFullText != nil {
		set["has_full_text"] = *update.HasFullText
	}
	if update.IsCovid19 != nil {
		set["is_covid19"] = *update.IsCovid19
	}
	if update.CitationCount != nil {
		set["citation_count"] = *update.CitationCount
	}
	if update.Keywords != nil {
		keywords := *update.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		set["keywords"] = keywords
	}
	if update.Authors != nil {
		authors := *update.Authors
		if authors == nil {
			authors = []string{}
		}
		set["authors"] = authors
	}
	return set
}

// Update sets the fields present in update. Absent fields are untouched.
func (s *MongoPaperStore) Update(ctx context.Context, paperID string, update domain.PaperUpdate) error {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return domain.NewValidationError("paper_id", "is required")
	}
	if err := update.Validate(); err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"paper_id": paperID},
		bson.M{"$set": updateSet(update, time.Now().UTC())},
	)
	if err != nil {
		return storeError("update", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFoundError("paper", paperID)
	}
	return nil
}

// Delete removes a paper document.
func (s *MongoPaperStore) Delete(ctx context.Context, paperID string) error {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return domain.NewValidationError("paper_id", "is required")
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"paper_id": paperID})
	if err != nil {
		return storeError("delete", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("paper", paperID)
	}
	return nil
}

// Count returns the exact number of paper documents.
func (s *MongoPaperStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, storeError("count", err)
	}
	return n, nil
}
