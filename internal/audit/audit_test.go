package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_StampsTimestamp(t *testing.T) {
	pub := NewPublisher(4, discardLogger())

	pub.Emit(context.Background(), Event{Action: ActionLoginInitiated})

	got := <-pub.Inbox()
	assert.False(t, got.Timestamp.IsZero())
}

func TestPublisher_KeepsExplicitTimestamp(t *testing.T) {
	pub := NewPublisher(4, discardLogger())
	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	pub.Emit(context.Background(), Event{Action: ActionLogout, Timestamp: at})

	got := <-pub.Inbox()
	assert.Equal(t, at, got.Timestamp)
}

func TestPublisher_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	pub := NewPublisher(1, discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Emit(context.Background(), Event{Action: ActionLoginInitiated})
		pub.Emit(context.Background(), Event{Action: ActionLoginSucceeded})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	// Only the first event made it in.
	assert.Equal(t, ActionLoginInitiated, (<-pub.Inbox()).Action)
	select {
	case e := <-pub.Inbox():
		t.Fatalf("unexpected second event %q", e.Action)
	default:
	}
}

func TestWorker_DrainsToSink(t *testing.T) {
	pub := NewPublisher(8, discardLogger())
	sink := NewMemorySink()
	worker := NewWorker(sink, pub.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	pub.Emit(ctx, Event{Action: ActionLoginInitiated})
	pub.Emit(ctx, Event{Action: ActionLoginSucceeded, AccountID: "acc-1"})

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	events := sink.Events()
	assert.Equal(t, ActionLoginInitiated, events[0].Action)
	assert.Equal(t, "acc-1", events[1].AccountID)

	cancel()
	<-done
}

type failingSink struct {
	calls atomic.Int32
}

func (f *failingSink) Append(ctx context.Context, event Event) error {
	f.calls.Add(1)
	return errors.New("sink down")
}

func TestWorker_SinkFailuresDoNotStopDraining(t *testing.T) {
	pub := NewPublisher(8, discardLogger())
	sink := &failingSink{}
	worker := NewWorker(sink, pub.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	for range 3 {
		pub.Emit(ctx, Event{Action: ActionLoginFailed})
	}

	require.Eventually(t, func() bool {
		return sink.calls.Load() == 3
	}, time.Second, 10*time.Millisecond)
}
