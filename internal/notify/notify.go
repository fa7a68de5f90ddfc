// Package notify delivers outbound text to chat platforms.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sink is one outbound destination.
type Sink interface {
	// Name identifies the sink in logs ("slack", "telegram").
	Name() string
	// Send delivers a Markdown message.
	Send(ctx context.Context, markdown string) error
}

// Notifier fans a message out to every sink.
type Notifier struct {
	sinks  []Sink
	logger *slog.Logger
}

// New creates a Notifier. A nil logger uses slog.Default().
func New(logger *slog.Logger, sinks ...Sink) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sinks: sinks, logger: logger.With("component", "notify")}
}

// Len returns the number of sinks.
func (n *Notifier) Len() int { return len(n.sinks) }

// Notify sends markdown to every sink. A failing sink is logged and does
// not stop the others; the joined errors are returned.
func (n *Notifier) Notify(ctx context.Context, markdown string) error {
	var errs []error
	for _, s := range n.sinks {
		if err := s.Send(ctx, markdown); err != nil {
			n.logger.Warn("notification failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.Debug("notification sent", "sink", s.Name())
	}
	return errors.Join(errs...)
}
