// ABOUTME: SessionManager drives session lifecycle and routes every message
// ABOUTME: Local persist is synchronous; replication is async best effort

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/chatsync/internal/analytics"
	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/replicate"
	"github.com/2389/chatsync/internal/store"
)

// Options configures a Manager.
type Options struct {
	// Store is the local source of truth. Required.
	Store *store.LocalStore

	// Replicator mirrors messages to the remote store. Required; construct
	// it with a nil client when the remote store is not configured.
	Replicator *replicate.Replicator

	// Auth reports the owning user for new sessions.
	Auth auth.Provider

	// Analytics receives lifecycle events. Optional.
	Analytics *analytics.Emitter

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Manager owns the current session. Safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	current   *store.ChatSession
	store     *store.LocalStore
	repl      *replicate.Replicator
	auth      auth.Provider
	analytics *analytics.Emitter
	logger    *slog.Logger
	now       func() time.Time
	bg        sync.WaitGroup
}

// NewManager creates a Manager, resuming any persisted current session.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authp := opts.Auth
	if authp == nil {
		authp = auth.Anonymous()
	}

	m := &Manager{
		store:     opts.Store,
		repl:      opts.Replicator,
		auth:      authp,
		analytics: opts.Analytics,
		logger:    logger.With("component", "session"),
		now:       time.Now,
	}
	m.current = m.store.LoadCurrent()
	if m.current != nil {
		m.logger.Info("resumed current session",
			"session_id", m.current.ID,
			"messages", len(m.current.Messages),
		)
	}
	return m
}

// StartSession returns the current session, reusing it when it has no
// messages yet, otherwise creating a fresh one. Creating a session resets
// the ephemeral replication state.
func (m *Manager) StartSession() (*store.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.HasMessages() {
		return m.current.Clone(), nil
	}
	sess, err := m.newSessionLocked()
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// newSessionLocked creates and persists a fresh current session.
// Must be called with mu held.
func (m *Manager) newSessionLocked() (*store.ChatSession, error) {
	now := m.now()
	sess := &store.ChatSession{
		ID:        uuid.NewString(),
		Date:      now.Format(store.DateFormat),
		StartedAt: now,
		Messages:  []store.ChatMessage{},
	}
	if id, ok := m.auth.UserID(); ok {
		sess.UserID = id
	}

	if err := m.store.SaveCurrent(sess); err != nil {
		return nil, fmt.Errorf("persisting new session: %w", err)
	}

	m.repl.ResetSession()
	m.current = sess
	m.track(analytics.EventSessionStarted, map[string]string{"session_id": sess.ID})
	return sess, nil
}

// AddMessage appends a message to the current session, creating one first
// if needed. The local write must succeed before this returns; replication
// happens in the background and its failures are never surfaced here.
func (m *Manager) AddMessage(msg store.ChatMessage) error {
	m.mu.Lock()

	if m.current == nil {
		if _, err := m.newSessionLocked(); err != nil {
			m.mu.Unlock()
			return err
		}
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}

	firstUser := msg.Sender == store.SenderUser && m.current.FirstUserMessage() == nil
	m.current.Messages = append(m.current.Messages, msg)
	if firstUser {
		m.current.Title = store.DeriveTitle(msg.Text)
	}

	if err := m.store.SaveCurrent(m.current); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.store.MergeIntoDayHistory(m.current); err != nil {
		m.mu.Unlock()
		return err
	}

	snapshot := m.current.Clone()
	m.mu.Unlock()

	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		defer func() {
			if p := recover(); p != nil {
				m.logger.Error("replication panic", "panic", p)
			}
		}()
		m.repl.SyncNewMessage(context.Background(), msg, snapshot)
	}()

	m.track(analytics.EventMessageSent, map[string]string{
		"session_id": snapshot.ID,
		"sender":     msg.Sender,
	})
	return nil
}

// EndSession finalizes the current session into day history, runs one
// best-effort catch-up replication sweep, and clears all current-session
// state including the ephemeral sync tracking. A no-op with no current
// session.
func (m *Manager) EndSession() error {
	m.mu.Lock()

	if m.current == nil {
		m.mu.Unlock()
		return nil
	}

	now := m.now()
	m.current.EndedAt = &now
	if first := m.current.FirstUserMessage(); first != nil {
		m.current.Summary = store.DeriveTitle(first.Text)
	}

	if err := m.store.MergeIntoDayHistory(m.current); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("finalizing session: %w", err)
	}

	snapshot := m.current.Clone()
	m.current = nil
	if err := m.store.ClearCurrent(); err != nil {
		m.logger.Warn("clearing current session", "error", err)
	}
	m.mu.Unlock()

	// Catch-up sweep for anything background replication missed.
	if err := m.repl.SyncFullSession(context.Background(), snapshot); err != nil &&
		!errors.Is(err, replicate.ErrUnavailable) {
		m.logger.Warn("final session replication", "session_id", snapshot.ID, "error", err)
	}
	m.repl.ResetSession()

	m.track(analytics.EventSessionEnded, map[string]string{
		"session_id": snapshot.ID,
		"messages":   fmt.Sprintf("%d", len(snapshot.Messages)),
	})
	return nil
}

// Current returns a snapshot of the current session, or nil.
func (m *Manager) Current() *store.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// Wait blocks until background replication attempts have completed.
// Called at shutdown so in-flight mirrors get their chance to finish.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// track emits an analytics event in the background.
func (m *Manager) track(eventType string, attrs map[string]string) {
	if m.analytics == nil {
		return
	}
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		m.analytics.Track(context.Background(), eventType, attrs)
	}()
}
