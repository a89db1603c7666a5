// ABOUTME: Tests for session/message data types and title derivation
// ABOUTME: Covers first-user-message lookup, cloning, and ellipsizing

package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short text unchanged", "Hello there", "Hello there"},
		{"empty text", "", "Untitled chat"},
		{"whitespace only", "   \n\t ", "Untitled chat"},
		{"collapses whitespace", "what   is\nthe  weather", "what is the weather"},
		{
			"long text ellipsized",
			strings.Repeat("remind me about the garden ", 5),
			"remind me about the garden remind me ab…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.text))
		})
	}
}

func TestDeriveTitle_LongTitleBounded(t *testing.T) {
	title := DeriveTitle(strings.Repeat("x", 500))
	assert.LessOrEqual(t, len([]rune(title)), titleMaxLen+1)
	assert.True(t, strings.HasSuffix(title, "…"))
}

func TestFirstUserMessage(t *testing.T) {
	sess := &ChatSession{
		Messages: []ChatMessage{
			{ID: "m1", Sender: SenderAssistant, Text: "Hi, how can I help?"},
			{ID: "m2", Sender: SenderUser, Text: "what time is it"},
			{ID: "m3", Sender: SenderUser, Text: "and the date"},
		},
	}

	first := sess.FirstUserMessage()
	require.NotNil(t, first)
	assert.Equal(t, "m2", first.ID)
}

func TestFirstUserMessage_NoneOrNil(t *testing.T) {
	assert.Nil(t, (*ChatSession)(nil).FirstUserMessage())

	sess := &ChatSession{Messages: []ChatMessage{{Sender: SenderAssistant}}}
	assert.Nil(t, sess.FirstUserMessage())
}

func TestClone_Independent(t *testing.T) {
	ended := time.Now()
	sess := &ChatSession{
		ID:       "s1",
		EndedAt:  &ended,
		Messages: []ChatMessage{{ID: "m1", Sender: SenderUser, Text: "hi"}},
	}

	cp := sess.Clone()
	cp.Messages = append(cp.Messages, ChatMessage{ID: "m2"})
	*cp.EndedAt = ended.Add(time.Hour)

	assert.Len(t, sess.Messages, 1)
	assert.True(t, sess.EndedAt.Equal(ended))
}
