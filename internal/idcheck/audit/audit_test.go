package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	delay  time.Duration
}

func (s *recordingSink) Send(ctx context.Context, e Event) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEmitterDeliversEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	emitter := NewEmitter(sink, time.Second, nil)

	emitter.Emit(context.Background(), Event{Type: EventAccessTokenIssued, SessionID: "session"})
	require.Equal(t, 1, sink.count())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.False(t, sink.events[0].Timestamp.IsZero())
}

func TestEmitterSwallowsSinkErrors(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{err: errors.New("queue unavailable")}
	emitter := NewEmitter(sink, time.Second, nil)

	// Must not panic or propagate.
	emitter.Emit(context.Background(), Event{Type: EventCodeReplayed})
	require.Equal(t, 1, sink.count())
}

func TestEmitterBoundsDeliveryTime(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{delay: time.Minute}
	emitter := NewEmitter(sink, 50*time.Millisecond, nil)

	start := time.Now()
	emitter.Emit(context.Background(), Event{Type: EventCodeExpired})
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestEmitterSurvivesCancelledRequestContext(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	emitter := NewEmitter(sink, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Audit delivery is detached from the request lifecycle.
	emitter.Emit(ctx, Event{Type: EventSessionCompleted})
	require.Equal(t, 1, sink.count())
}

func TestHashForLogging(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<empty>", hashForLogging(""))
	require.Len(t, hashForLogging("session-id"), 16)
	require.NotEqual(t, "session-id", hashForLogging("session-id"))
	require.Equal(t, hashForLogging("a"), hashForLogging("a"))
}
