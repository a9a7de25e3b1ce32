package events

import (
	"context"
	"time"

	"spaceapps-board/internal/domain"
)

const (
	TypeRecordCreated = "record.created"
	TypeRecordDeleted = "record.deleted"
)

// RecordEvent is the payload published for every record lifecycle change.
type RecordEvent struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newRecordEvent(eventType string, rec domain.Record, at time.Time) RecordEvent {
	return RecordEvent{
		Type:       eventType,
		ID:         rec.ID,
		Name:       rec.Name,
		Message:    rec.Message,
		CreatedAt:  rec.CreatedAt,
		OccurredAt: at.UTC(),
	}
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) RecordCreated(context.Context, domain.Record) error { return nil }
func (Discard) RecordDeleted(context.Context, domain.Record) error { return nil }
