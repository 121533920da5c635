package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher accepts audit events without blocking the request path. Events
// are buffered in-process and drained by a Worker; audit is best-effort and
// must never cause a user-facing failure, so a full buffer drops the event
// with a log line rather than applying backpressure.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues an event, stamping the time if unset. Never blocks, never
// returns an error to the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
		)
	}
}

// Inbox exposes the event channel to the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
