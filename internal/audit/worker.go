package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher and appends them to the
// sink. Sink failures are logged and swallowed; audit loss is acceptable,
// blocking logins is not.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker wires a sink to a publisher inbox.
func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append audit event",
					"error", err,
					"action", event.Action,
				)
			}
		}
	}
}
