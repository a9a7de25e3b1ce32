package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"spaceapps-board/internal/domain"
)

var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("repository: record not found")
	// ErrInvalidID is returned when the id is not a well-formed record id.
	ErrInvalidID = errors.New("repository: malformed record id")
)

// Store defines the record operations consumed by the use-case layer.
type Store interface {
	List(ctx context.Context) ([]domain.Record, error)
	Create(ctx context.Context, name, message string) (domain.Record, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	Delete(ctx context.Context, id string) (domain.Record, error)
}

type options struct {
	now   func() time.Time
	newID func() string
}

// Option customises how a store assigns ids and timestamps.
type Option func(*options)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkID rejects ids that could never have been assigned by a store.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
