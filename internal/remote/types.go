// ABOUTME: Wire types and the Client interface for the remote store
// ABOUTME: Conversations, messages, analytics records, pagination, health

package remote

import (
	"context"
	"time"
)

// Conversation is the remote mirror of a local chat session.
// SessionTag carries the local session identifier so a conversation can be
// rediscovered after a restart instead of recreated.
type Conversation struct {
	ID           string     `json:"id,omitempty"`
	UserID       string     `json:"userId"`
	Title        string     `json:"title,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	SessionTag   string     `json:"sessionTag,omitempty"`
	MessageCount int        `json:"messageCount"`
	StartedAt    time.Time  `json:"startedAt,omitempty"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

// Message is one message within a remote conversation. The identifier is
// the local message identifier, which makes remote writes idempotent.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	AudioRef       string    `json:"audioRef,omitempty"`
}

// ConversationPatch is a partial update to a conversation. Nil fields are
// left unchanged.
type ConversationPatch struct {
	Title        *string    `json:"title,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	MessageCount *int       `json:"messageCount,omitempty"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

// ConversationPage is one page of a user's conversations.
type ConversationPage struct {
	Items             []Conversation `json:"items"`
	ContinuationToken string         `json:"continuationToken,omitempty"`
}

// MessagePage is one page of a conversation's messages.
type MessagePage struct {
	Items             []Message `json:"items"`
	ContinuationToken string    `json:"continuationToken,omitempty"`
}

// AnalyticsRecord is a dated, append-only telemetry record.
type AnalyticsRecord struct {
	ID         string            `json:"id,omitempty"`
	Type       string            `json:"type"`
	UserID     string            `json:"userId,omitempty"`
	Date       string            `json:"date"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt,omitempty"`
}

// Health reports whether the remote store is reachable and initialized.
type Health struct {
	Initialized bool   `json:"isInitialized"`
	Error       string `json:"error,omitempty"`
}

// Client is the remote store's CRUD surface. All operations may fail with
// a TransientError, AuthError, or ErrNotFound.
type Client interface {
	CreateConversation(ctx context.Context, conv *Conversation) (*Conversation, error)
	GetConversationsByUser(ctx context.Context, userID string, pageSize int, token string) (*ConversationPage, error)
	UpdateConversation(ctx context.Context, id, userID string, patch *ConversationPatch) error
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)
	GetMessagesByConversation(ctx context.Context, conversationID string, pageSize int, token string) (*MessagePage, error)
	CreateAnalyticsRecord(ctx context.Context, rec *AnalyticsRecord) error
	HealthCheck(ctx context.Context) (*Health, error)
}
