// Package events delivers domain events after the transaction that produced
// them has committed.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/reflexpool/internal/model"
)

// Publisher receives committed events. Implementations must not block for long;
// they run on the request goroutine.
type Publisher interface {
	Publish(ctx context.Context, events ...model.Event)
}

// Multi fans events out to several publishers in order
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events ...model.Event) {
	for _, p := range m {
		p.Publish(ctx, events...)
	}
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(context.Context, ...model.Event) {}

// LogPublisher writes each event as a structured log line
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a new LogPublisher
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With(slog.String("component", "events"))}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...model.Event) {
	for _, e := range events {
		attrs := []any{
			slog.String("type", string(e.Type)),
			slog.Time("timestamp", e.Timestamp),
		}
		if e.PoolID != nil {
			attrs = append(attrs, slog.String("pool_id", e.PoolID.String()))
		}
		if !e.Player.IsZero() {
			attrs = append(attrs, slog.String("player", e.Player.String()))
		}
		if e.Payload != nil {
			attrs = append(attrs, slog.Any("payload", e.Payload))
		}
		p.logger.InfoContext(ctx, "event", attrs...)
	}
}

// Recorder keeps every published event in memory
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, events ...model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// OfType returns the recorded events of one type
func (r *Recorder) OfType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets every recorded event
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
