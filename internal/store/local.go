// ABOUTME: LocalStore persists the current session and day-indexed history
// ABOUTME: Read paths recover from corruption; writes are the correctness boundary

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Well-known KV keys.
const (
	keyCurrentSession = "current-session"
	keyChatHistory    = "chat-history"
	keyLastSync       = "last-sync-timestamp"
	keyLegacyHistory  = "chat-history-v1"
)

// LocalStore is the durable, always-available session store. It is the
// source of truth: every message is persisted here before any replication
// is attempted.
type LocalStore struct {
	kv     KV
	logger *slog.Logger
}

// NewLocalStore creates a LocalStore on top of the given KV primitive.
func NewLocalStore(kv KV, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{
		kv:     kv,
		logger: logger.With("component", "store"),
	}
}

// LoadCurrent returns the persisted current session, or nil if there is
// none. A corrupt value is logged and treated as absent.
func (s *LocalStore) LoadCurrent() *ChatSession {
	raw, err := s.kv.Get(keyCurrentSession)
	if err != nil {
		if err != ErrNoKey {
			s.logger.Warn("reading current session", "error", err)
		}
		return nil
	}

	var sess ChatSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("corrupt current session, discarding", "error", err)
		return nil
	}
	return &sess
}

// SaveCurrent persists the session as the single current session.
func (s *LocalStore) SaveCurrent(sess *ChatSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding current session: %w", err)
	}
	if err := s.kv.Set(keyCurrentSession, string(raw)); err != nil {
		return fmt.Errorf("saving current session: %w", err)
	}
	return nil
}

// ClearCurrent removes the persisted current session.
func (s *LocalStore) ClearCurrent() error {
	return s.kv.Remove(keyCurrentSession)
}

// MergeIntoDayHistory folds the session into the history for its date.
// The merge is idempotent on session identifier: an existing entry with the
// same id is replaced, not duplicated. Sessions within a day stay sorted by
// start time ascending; days stay sorted by date descending.
func (s *LocalStore) MergeIntoDayHistory(sess *ChatSession) error {
	history := s.loadHistory()

	dayIdx := -1
	for i := range history {
		if history[i].Date == sess.Date {
			dayIdx = i
			break
		}
	}
	if dayIdx == -1 {
		history = append(history, DayHistory{Date: sess.Date})
		dayIdx = len(history) - 1
	}

	day := &history[dayIdx]
	replaced := false
	for i := range day.Sessions {
		if day.Sessions[i].ID == sess.ID {
			day.Sessions[i] = *sess.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		day.Sessions = append(day.Sessions, *sess.Clone())
	}

	sort.SliceStable(day.Sessions, func(i, j int) bool {
		return day.Sessions[i].StartedAt.Before(day.Sessions[j].StartedAt)
	})
	day.Count = len(day.Sessions)

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date > history[j].Date
	})

	return s.saveHistory(history)
}

// ListSessionsForDate returns the sessions that started on the given date,
// oldest first. Missing or corrupt history yields an empty slice.
func (s *LocalStore) ListSessionsForDate(date string) []ChatSession {
	for _, day := range s.loadHistory() {
		if day.Date == date {
			return day.Sessions
		}
	}
	return nil
}

// ListDatesWithHistory returns every date that has at least one session,
// newest first.
func (s *LocalStore) ListDatesWithHistory() []string {
	history := s.loadHistory()
	dates := make([]string, 0, len(history))
	for _, day := range history {
		if day.Count > 0 {
			dates = append(dates, day.Date)
		}
	}
	return dates
}

// DeleteSession removes the session with the given id from history.
// Days left empty are dropped entirely.
func (s *LocalStore) DeleteSession(id string) error {
	history := s.loadHistory()
	out := history[:0]
	for _, day := range history {
		kept := day.Sessions[:0]
		for _, sess := range day.Sessions {
			if sess.ID != id {
				kept = append(kept, sess)
			}
		}
		day.Sessions = kept
		day.Count = len(kept)
		if day.Count > 0 {
			out = append(out, day)
		}
	}
	return s.saveHistory(out)
}

// DeleteDay removes an entire day of history.
func (s *LocalStore) DeleteDay(date string) error {
	history := s.loadHistory()
	out := history[:0]
	for _, day := range history {
		if day.Date != date {
			out = append(out, day)
		}
	}
	return s.saveHistory(out)
}

// LastSyncTime returns the recorded time of the last successful remote
// history pull.
func (s *LocalStore) LastSyncTime() (time.Time, bool) {
	raw, err := s.kv.Get(keyLastSync)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("corrupt last-sync timestamp, discarding", "error", err)
		return time.Time{}, false
	}
	return t, true
}

// SetLastSyncTime records the time of a successful remote history pull.
func (s *LocalStore) SetLastSyncTime(t time.Time) error {
	return s.kv.Set(keyLastSync, t.UTC().Format(time.RFC3339))
}

// Stats summarizes stored history.
type Stats struct {
	Days     int
	Sessions int
	Messages int
}

// HistoryStats returns counts across all stored history.
func (s *LocalStore) HistoryStats() Stats {
	var st Stats
	for _, day := range s.loadHistory() {
		st.Days++
		st.Sessions += day.Count
		for _, sess := range day.Sessions {
			st.Messages += len(sess.Messages)
		}
	}
	return st
}

// Close closes the underlying KV.
func (s *LocalStore) Close() error {
	return s.kv.Close()
}

// loadHistory reads the full day history. Corrupt history is logged and
// treated as empty so the store stays usable.
func (s *LocalStore) loadHistory() []DayHistory {
	raw, err := s.kv.Get(keyChatHistory)
	if err != nil {
		if err != ErrNoKey {
			s.logger.Warn("reading chat history", "error", err)
		}
		return nil
	}

	var history []DayHistory
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.Warn("corrupt chat history, starting empty", "error", err)
		return nil
	}
	return history
}

func (s *LocalStore) saveHistory(history []DayHistory) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}
	if err := s.kv.Set(keyChatHistory, string(raw)); err != nil {
		return fmt.Errorf("saving chat history: %w", err)
	}
	return nil
}
