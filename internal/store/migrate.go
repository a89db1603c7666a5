// ABOUTME: One-time migration from the legacy flat history layout
// ABOUTME: Rewrites chat-history-v1 entries into day-indexed sessions

package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// legacyEntry is the v1 on-disk layout: one flat record per day, with no
// session boundaries.
type legacyEntry struct {
	Date     string        `json:"date"`
	Messages []ChatMessage `json:"messages"`
	Summary  string        `json:"summary,omitempty"`
}

// MigrateLegacyFormat reads the legacy flat history, rewrites each entry as
// a day-indexed session with a derived title, and deletes the legacy key.
// It is a no-op when the legacy key is absent, and a corrupt legacy value
// is logged and dropped rather than blocking startup.
func (s *LocalStore) MigrateLegacyFormat() error {
	raw, err := s.kv.Get(keyLegacyHistory)
	if err != nil {
		return nil
	}

	var entries []legacyEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("corrupt legacy history, dropping", "error", err)
		return s.kv.Remove(keyLegacyHistory)
	}

	for _, entry := range entries {
		sess := legacySession(entry)
		if err := s.MergeIntoDayHistory(&sess); err != nil {
			return err
		}
	}

	s.logger.Info("migrated legacy history", "entries", len(entries))
	return s.kv.Remove(keyLegacyHistory)
}

// legacySession converts one legacy entry into a session. The start time
// comes from the first message when available, otherwise midnight UTC of
// the entry's date.
func legacySession(entry legacyEntry) ChatSession {
	started, err := time.Parse(DateFormat, entry.Date)
	if err != nil {
		started = time.Now().UTC()
		entry.Date = started.Format(DateFormat)
	}
	if len(entry.Messages) > 0 && !entry.Messages[0].Timestamp.IsZero() {
		started = entry.Messages[0].Timestamp
	}

	sess := ChatSession{
		ID:        uuid.NewString(),
		Date:      entry.Date,
		StartedAt: started,
		Summary:   entry.Summary,
		Messages:  entry.Messages,
	}
	if first := sess.FirstUserMessage(); first != nil {
		sess.Title = DeriveTitle(first.Text)
	} else {
		sess.Title = DeriveTitle("")
	}
	if len(entry.Messages) > 0 {
		last := entry.Messages[len(entry.Messages)-1].Timestamp
		if !last.IsZero() {
			sess.EndedAt = &last
		}
	}
	return sess
}
