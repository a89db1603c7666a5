// ABOUTME: Fire-and-forget analytics emitter writing dated records remotely
// ABOUTME: Breaker-gated, auth-gated, never throws into chat functionality

package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/breaker"
	"github.com/2389/chatsync/internal/remote"
)

// Event types emitted by the session lifecycle.
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventMessageSent    = "message_sent"
)

// Emitter writes dated, append-only analytics records to the remote store.
type Emitter struct {
	client  remote.Client
	breaker *breaker.Breaker
	auth    auth.Provider
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Emitter. A nil client disables tracking entirely.
func New(client remote.Client, brk *breaker.Breaker, authp auth.Provider, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		client:  client,
		breaker: brk,
		auth:    authp,
		logger:  logger.With("component", "analytics"),
		now:     time.Now,
	}
}

// Track records one event. It is a no-op when the remote store is not
// configured, the circuit is open, or the user is unauthenticated. All
// failures are swallowed after feeding the breaker.
func (e *Emitter) Track(ctx context.Context, eventType string, attrs map[string]string) {
	if e.client == nil {
		return
	}
	userID, ok := e.auth.UserID()
	if !ok {
		return
	}
	if e.breaker.IsOpen() {
		return
	}

	now := e.now()
	err := e.client.CreateAnalyticsRecord(ctx, &remote.AnalyticsRecord{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Date:       now.UTC().Format("2006-01-02"),
		Attributes: attrs,
		CreatedAt:  now,
	})
	if err != nil {
		e.breaker.RecordFailure()
		e.logger.Debug("analytics write failed", "event", eventType, "error", err)
		return
	}
	e.breaker.RecordSuccess()
}
