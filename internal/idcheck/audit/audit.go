// Package audit emits terminal-outcome events for the token exchange and
// client-response flows. Emission is fire-and-forget with a bounded timeout:
// an audit outage never blocks or fails an otherwise-successful request, but
// every delivery failure is logged.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// EventType classifies a terminal outcome. Events never carry code or token
// values.
type EventType string

const (
	EventAccessTokenIssued EventType = "access_token_issued"
	EventClientAuthFailed  EventType = "client_auth_failed"
	EventMalformedRequest  EventType = "malformed_token_request"
	EventUnknownCode       EventType = "unknown_authorization_code"
	EventCodeReplayed      EventType = "authorization_code_replayed"
	EventCodeExpired       EventType = "authorization_code_expired"
	EventRedirectMismatch  EventType = "redirect_uri_mismatch"
	EventExchangeError     EventType = "token_exchange_error"
	EventSessionCompleted  EventType = "verification_session_end"
)

// Event is a single audit record.
type Event struct {
	Type      EventType
	SessionID string
	ClientID  string
	Timestamp time.Time
}

// Sink delivers events to wherever audit records live (a queue in
// production, a logger locally). Send must respect ctx cancellation.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Emitter wraps a Sink with the bounded-timeout, log-and-continue delivery
// the exchange engine requires.
type Emitter struct {
	Sink    Sink
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewEmitter(sink Sink, timeout time.Duration, logger *slog.Logger) *Emitter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{Sink: sink, Timeout: timeout, Logger: logger}
}

// Emit delivers the event, waiting at most the configured timeout. Failures
// are logged and swallowed; the caller's outcome is never affected.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.Sink.Send(sendCtx, event)
	}()

	select {
	case err := <-done:
		if err != nil {
			e.Logger.Error("audit event delivery failed",
				"event_type", event.Type,
				"error", err,
			)
		}
	case <-sendCtx.Done():
		e.Logger.Error("audit event delivery timed out",
			"event_type", event.Type,
			"timeout", e.Timeout,
		)
	}
}

// LogSink writes audit events to structured logs. Session identifiers are
// hashed before logging.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Send(_ context.Context, e Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("audit_event",
		"event_type", e.Type,
		"session_id_hash", hashForLogging(e.SessionID),
		"client_id", e.ClientID,
		"timestamp", e.Timestamp,
	)
	return nil
}

func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	sum := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(sum[:])[:16]
}
