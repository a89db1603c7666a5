// ABOUTME: In-memory fake of the remote store Client for replication tests
// ABOUTME: Supports failure injection and call counting

package replicate

import (
	"context"
	"fmt"
	"sync"

	"github.com/2389/chatsync/internal/remote"
)

// fakeRemote is an in-memory remote store with failure injection.
type fakeRemote struct {
	mu sync.Mutex

	conversations map[string]*remote.Conversation
	messages      map[string][]remote.Message // by conversation id
	analytics     []remote.AnalyticsRecord

	nextErr error // returned by every call until cleared

	// One-shot gate: the next CreateConversation signals createEntered,
	// then waits for createRelease before proceeding.
	createEntered chan struct{}
	createRelease chan struct{}

	createConversationCalls int
	createMessageCalls      int
	updateConversationCalls int
	listConversationsCalls  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		conversations: make(map[string]*remote.Conversation),
		messages:      make(map[string][]remote.Message),
	}
}

func (f *fakeRemote) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextErr = err
}

// gateCreateConversation arms the one-shot gate and returns its channels.
func (f *fakeRemote) gateCreateConversation() (entered, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createEntered = make(chan struct{})
	f.createRelease = make(chan struct{})
	return f.createEntered, f.createRelease
}

func (f *fakeRemote) CreateConversation(ctx context.Context, conv *remote.Conversation) (*remote.Conversation, error) {
	f.mu.Lock()
	entered, release := f.createEntered, f.createRelease
	f.createEntered, f.createRelease = nil, nil
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.createConversationCalls++
	if f.nextErr != nil {
		return nil, f.nextErr
	}

	cp := *conv
	cp.ID = fmt.Sprintf("conv-%d", len(f.conversations)+1)
	f.conversations[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRemote) GetConversationsByUser(ctx context.Context, userID string, pageSize int, token string) (*remote.ConversationPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listConversationsCalls++
	if f.nextErr != nil {
		return nil, f.nextErr
	}

	page := &remote.ConversationPage{}
	for _, conv := range f.conversations {
		if conv.UserID == userID {
			page.Items = append(page.Items, *conv)
		}
	}
	return page, nil
}

func (f *fakeRemote) UpdateConversation(ctx context.Context, id, userID string, patch *remote.ConversationPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updateConversationCalls++
	if f.nextErr != nil {
		return f.nextErr
	}

	conv, ok := f.conversations[id]
	if !ok {
		return remote.ErrNotFound
	}
	if patch.Title != nil {
		conv.Title = *patch.Title
	}
	if patch.Summary != nil {
		conv.Summary = *patch.Summary
	}
	if patch.MessageCount != nil {
		conv.MessageCount = *patch.MessageCount
	}
	if patch.EndedAt != nil {
		conv.EndedAt = patch.EndedAt
	}
	return nil
}

func (f *fakeRemote) CreateMessage(ctx context.Context, msg *remote.Message) (*remote.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createMessageCalls++
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if _, ok := f.conversations[msg.ConversationID]; !ok {
		return nil, remote.ErrNotFound
	}

	// Idempotent upsert by message id
	for i, existing := range f.messages[msg.ConversationID] {
		if existing.ID == msg.ID {
			f.messages[msg.ConversationID][i] = *msg
			return msg, nil
		}
	}
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], *msg)
	return msg, nil
}

func (f *fakeRemote) GetMessagesByConversation(ctx context.Context, conversationID string, pageSize int, token string) (*remote.MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nextErr != nil {
		return nil, f.nextErr
	}
	return &remote.MessagePage{Items: append([]remote.Message(nil), f.messages[conversationID]...)}, nil
}

func (f *fakeRemote) CreateAnalyticsRecord(ctx context.Context, rec *remote.AnalyticsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nextErr != nil {
		return f.nextErr
	}
	f.analytics = append(f.analytics, *rec)
	return nil
}

func (f *fakeRemote) HealthCheck(ctx context.Context) (*remote.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nextErr != nil {
		return nil, f.nextErr
	}
	return &remote.Health{Initialized: true}, nil
}

// messageTexts returns the texts stored for a conversation, in order.
func (f *fakeRemote) messageTexts(conversationID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var texts []string
	for _, m := range f.messages[conversationID] {
		texts = append(texts, m.Text)
	}
	return texts
}

// conversationByTag returns the stored conversation carrying the session tag.
func (f *fakeRemote) conversationByTag(tag string) (*remote.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, conv := range f.conversations {
		if conv.SessionTag == tag {
			return conv, true
		}
	}
	return nil, false
}

// soleConversation returns the only stored conversation, failing the test
// invariant if there is not exactly one.
func (f *fakeRemote) soleConversation() (*remote.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.conversations) != 1 {
		return nil, false
	}
	for _, conv := range f.conversations {
		return conv, true
	}
	return nil, false
}
