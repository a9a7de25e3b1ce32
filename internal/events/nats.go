package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"spaceapps-board/internal/domain"
)

const streamSetupTimeout = 5 * time.Second

// jetStreamPublisher is the slice of jetstream.JetStream the publisher needs.
type jetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// drainer is the part of *nats.Conn the publisher uses on shutdown.
type drainer interface {
	Drain() error
}

// NATSPublisher publishes record events to JetStream subjects
// "{prefix}.created" and "{prefix}.deleted".
type NATSPublisher struct {
	js            jetStreamPublisher
	subjectPrefix string
	nc            drainer
	now           func() time.Time
}

// NewNATSPublisher wraps an existing JetStream handle.
func NewNATSPublisher(js jetStreamPublisher, subjectPrefix string) (*NATSPublisher, error) {
	if js == nil {
		return nil, errors.New("events: jetstream must not be nil")
	}
	subjectPrefix = strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if subjectPrefix == "" {
		return nil, errors.New("events: subject prefix must not be empty")
	}
	return &NATSPublisher{js: js, subjectPrefix: subjectPrefix, now: time.Now}, nil
}

// ConnectNATS dials the server, makes sure the stream exists and returns a
// publisher that owns the connection.
func ConnectNATS(url, streamName, subjectPrefix string, log *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("spaceapps-board"))
	if err != nil {
		return nil, fmt.Errorf("events: connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("events: create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamSetupTimeout)
	defer cancel()

	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		log.Info("stream not found, creating", "stream", streamName)
		stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        streamName,
			Description: "Record lifecycle events",
			Subjects:    []string{subjectPrefix + ".*"},
			MaxAge:      7 * 24 * time.Hour,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("events: create stream %q: %w", streamName, err)
		}
	}
	log.Info("using stream", "stream", stream.CachedInfo().Config.Name)

	p, err := NewNATSPublisher(js, subjectPrefix)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.nc = nc
	return p, nil
}

func (p *NATSPublisher) RecordCreated(ctx context.Context, rec domain.Record) error {
	return p.publish(ctx, "created", newRecordEvent(TypeRecordCreated, rec, p.now()))
}

func (p *NATSPublisher) RecordDeleted(ctx context.Context, rec domain.Record) error {
	return p.publish(ctx, "deleted", newRecordEvent(TypeRecordDeleted, rec, p.now()))
}

// Close drains the owned connection, if any, flushing pending publishes.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("events: drain NATS connection: %w", err)
	}
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, action string, ev RecordEvent) error {
	subject := p.subjectPrefix + "." + action
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", ev.Type, err)
	}
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(ev.Type+":"+ev.ID)); err != nil {
		return fmt.Errorf("events: publish to %q: %w", subject, err)
	}
	return nil
}
