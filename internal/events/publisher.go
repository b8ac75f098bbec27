package events

import (
	"context"
	"errors"
	"log/slog"
)

// Publisher delivers events to a feed
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Emit publishes e and logs a warning on failure. Publishing never fails
// the operation that produced the event.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, e *Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("event publish failed", "type", e.Type, "id", e.ID, "error", err)
	}
}

// LogPublisher writes events to a structured logger
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs through logger
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event at a level matching its severity
func (p *LogPublisher) Publish(ctx context.Context, e *Event) error {
	level := slog.LevelInfo
	switch e.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, e.Message,
		"event", e.Type,
		"component", e.Component,
		"id", e.ID,
	)
	return nil
}

// Multi fans an event out to every publisher
type Multi []Publisher

// Publish delivers to all publishers and joins their errors
func (m Multi) Publish(ctx context.Context, e *Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, *Event) error { return nil }

// Recorder keeps published events in memory, for tests
type Recorder struct {
	Events []*Event
}

// Publish appends e
func (r *Recorder) Publish(_ context.Context, e *Event) error {
	r.Events = append(r.Events, e)
	return nil
}

// Types returns the types of recorded events in order
func (r *Recorder) Types() []EventType {
	out := make([]EventType, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
