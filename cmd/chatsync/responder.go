// ABOUTME: Responder produces the assistant side of a chat exchange
// ABOUTME: The CLI ships a trivial echo implementation as a stand-in

package main

import (
	"context"

	"github.com/2389/chatsync/internal/store"
)

// responder produces the assistant reply to a user message. An empty reply
// means no assistant message is recorded for the exchange.
type responder interface {
	Respond(ctx context.Context, sess *store.ChatSession, text string) string
}

// echoResponder is a placeholder assistant. A real deployment swaps in a
// responder backed by an actual agent.
type echoResponder struct{}

func (echoResponder) Respond(_ context.Context, _ *store.ChatSession, text string) string {
	return "You said: " + text
}
