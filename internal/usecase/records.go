package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"spaceapps-board/internal/domain"
	"spaceapps-board/internal/repository"
)

type RecordStore interface {
	List(ctx context.Context) ([]domain.Record, error)
	Create(ctx context.Context, name, message string) (domain.Record, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	Delete(ctx context.Context, id string) (domain.Record, error)
}

// EventPublisher announces record lifecycle changes after they are persisted.
type EventPublisher interface {
	RecordCreated(ctx context.Context, rec domain.Record) error
	RecordDeleted(ctx context.Context, rec domain.Record) error
}

type CreateInput struct {
	Name    string
	Message string
}

type RecordService struct {
	store     RecordStore
	publisher EventPublisher
	log       *slog.Logger
}

func NewRecordService(s RecordStore, p EventPublisher, log *slog.Logger) (*RecordService, error) {
	if s == nil {
		return nil, errors.New("usecase: record store must not be nil")
	}
	if p == nil {
		return nil, errors.New("usecase: event publisher must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &RecordService{store: s, publisher: p, log: log}, nil
}

// List returns all records, newest first.
func (s *RecordService) List(ctx context.Context) ([]domain.Record, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "store_list_error", err)
	}
	return recs, nil
}

// Create trims both fields, rejects empty ones and persists the record.
func (s *RecordService) Create(ctx context.Context, in CreateInput) (domain.Record, error) {
	name := strings.TrimSpace(in.Name)
	message := strings.TrimSpace(in.Message)
	switch {
	case name == "" && message == "":
		return domain.Record{}, newError(ErrorInvalidInput, "empty_name_and_message", nil)
	case name == "":
		return domain.Record{}, newError(ErrorInvalidInput, "empty_name", nil)
	case message == "":
		return domain.Record{}, newError(ErrorInvalidInput, "empty_message", nil)
	}

	rec, err := s.store.Create(ctx, name, message)
	if err != nil {
		return domain.Record{}, newError(ErrorInternal, "store_create_error", err)
	}
	if err := s.publisher.RecordCreated(ctx, rec); err != nil {
		s.log.Warn("failed to publish record created event", "id", rec.ID, "err", err)
	}
	return rec, nil
}

// Get fetches one record by id.
func (s *RecordService) Get(ctx context.Context, id string) (domain.Record, error) {
	rec, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Record{}, storeError(err, "store_get_error")
	}
	return rec, nil
}

// Delete hard-deletes one record by id.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return storeError(err, "store_delete_error")
	}
	if err := s.publisher.RecordDeleted(ctx, rec); err != nil {
		s.log.Warn("failed to publish record deleted event", "id", rec.ID, "err", err)
	}
	return nil
}

// storeError classifies lookup failures. A malformed id is reported as an
// internal error, the same as any other failed lookup.
func storeError(err error, reason string) *Error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrorNotFound, "record_not_found", err)
	case errors.Is(err, repository.ErrInvalidID):
		return newError(ErrorInternal, "malformed_id", err)
	default:
		return newError(ErrorInternal, reason, err)
	}
}
