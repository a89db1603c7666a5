// ABOUTME: Data types for chat sessions, messages, and day-indexed history
// ABOUTME: Defines ChatMessage, ChatSession, DayHistory and title derivation

package store

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Sender constants for message senders
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// DateFormat is the calendar-date layout used for session dates and
// day-history keys.
const DateFormat = "2006-01-02"

// titleMaxLen is the maximum rune length of a derived session title.
const titleMaxLen = 40

// ChatMessage is a single message within a session. Messages are immutable
// once created; the identifier is client-generated and content-independent
// so remote re-sends deduplicate by identifier equality.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	AudioRef  string    `json:"audioRef,omitempty"`
}

// ChatSession is one continuous chat interaction, bounded by explicit
// start and end. The message list is append-only while the session is
// active. UserID is empty for unauthenticated use.
type ChatSession struct {
	ID        string        `json:"id"`
	Date      string        `json:"date"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
	Title     string        `json:"title,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	UserID    string        `json:"userId,omitempty"`
}

// HasMessages reports whether the session contains any messages.
func (s *ChatSession) HasMessages() bool {
	return s != nil && len(s.Messages) > 0
}

// FirstUserMessage returns the first message sent by the user, or nil.
func (s *ChatSession) FirstUserMessage() *ChatMessage {
	if s == nil {
		return nil
	}
	for i := range s.Messages {
		if s.Messages[i].Sender == SenderUser {
			return &s.Messages[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the session. Replication runs on a snapshot
// so the active session can keep appending underneath it.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	cp := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	cp.Messages = make([]ChatMessage, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}

// DayHistory holds every session that started on a calendar date.
// Count is kept consistent with len(Sessions).
type DayHistory struct {
	Date     string        `json:"date"`
	Count    int           `json:"count"`
	Sessions []ChatSession `json:"sessions"`
}

// DeriveTitle produces a short session title from the first user message:
// the leading characters of the text, whitespace-collapsed and ellipsized.
func DeriveTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if title == "" {
		return "Untitled chat"
	}
	if utf8.RuneCountInString(title) <= titleMaxLen {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:titleMaxLen])) + "…"
}
