package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants for dual-write outcome events.
const (
	EventTypePaperCreated = "paper.created"
	EventTypePaperUpdated = "paper.updated"
	EventTypePaperDeleted = "paper.deleted"
)

// eventTypes maps write operations to event types.
var eventTypes = map[string]string{
	OpCreate: EventTypePaperCreated,
	OpUpdate: EventTypePaperUpdated,
	OpDelete: EventTypePaperDeleted,
}

// PaperEvent reports what each store did with one write.
type PaperEvent struct {
	EventID       string      `json:"event_id"`
	Type          string      `json:"type"`
	PaperID       string      `json:"paper_id"`
	Operation     string      `json:"operation"`
	Relational    WriteStatus `json:"relational"`
	Document      WriteStatus `json:"document"`
	Consistent    bool        `json:"consistent"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// NewPaperEvent builds the event for a write result.
func NewPaperEvent(result *WriteResult, occurredAt time.Time) PaperEvent {
	return PaperEvent{
		EventID:    uuid.NewString(),
		Type:       eventTypes[result.Operation],
		PaperID:    result.PaperID,
		Operation:  result.Operation,
		Relational: result.Relational.Status,
		Document:   result.Document.Status,
		Consistent: result.Consistent(),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithCorrelationID sets the correlation id carried by the event.
func (e PaperEvent) WithCorrelationID(id string) PaperEvent {
	e.CorrelationID = id
	return e
}
