// ABOUTME: CloudReplicator mirrors sessions and messages to the remote store
// ABOUTME: Breaker-gated, deduplicated, single-flight conversation creation

package replicate

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/2389/chatsync/internal/breaker"
	"github.com/2389/chatsync/internal/remote"
	"github.com/2389/chatsync/internal/store"
)

// DefaultPageSize bounds remote list calls.
const DefaultPageSize = 50

// ErrUnavailable is returned when replication is skipped because the
// circuit is open or replication is latched off for the session.
var ErrUnavailable = errors.New("replicate: remote store unavailable")

// Options configures a Replicator.
type Options struct {
	// Client is the remote store. Nil means the remote store is not
	// configured; every operation becomes a no-op.
	Client remote.Client

	// Store is the local source of truth that pulled history folds into.
	Store *store.LocalStore

	// Breaker gates all remote calls. Required when Client is set.
	Breaker *breaker.Breaker

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// PageSize bounds remote list calls. Zero uses DefaultPageSize.
	PageSize int
}

// Replicator mirrors new messages and session metadata to the remote store
// and pulls remote history back into the local store. All entry points are
// best effort: failures feed the circuit breaker and are otherwise only
// logged by callers.
type Replicator struct {
	client   remote.Client
	store    *store.LocalStore
	breaker  *breaker.Breaker
	logger   *slog.Logger
	pageSize int

	tracker *Tracker
	flight  singleflight.Group

	// authLatched short-circuits replication for the current session after
	// a 401/403 until the session (and its latch) is reset.
	authLatched atomic.Bool
}

// New creates a Replicator.
func New(opts Options) *Replicator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Replicator{
		client:   opts.Client,
		store:    opts.Store,
		breaker:  opts.Breaker,
		logger:   logger.With("component", "replicate"),
		pageSize: pageSize,
		tracker:  NewTracker(0, 0),
	}
}

// Tracker exposes the per-session sync state, mainly for tests and
// diagnostics.
func (r *Replicator) Tracker() *Tracker { return r.tracker }

// ResetSession discards the per-session sync state: the conversation
// mapping, the synced-message set, and the auth latch.
func (r *Replicator) ResetSession() {
	r.tracker.Reset()
	r.authLatched.Store(false)
}

// canAttempt applies the common preconditions for any replication attempt
// on behalf of a session.
func (r *Replicator) canAttempt(sess *store.ChatSession) bool {
	if r.client == nil {
		return false
	}
	if sess == nil || sess.UserID == "" {
		// Replication without an owning user is an invariant violation on
		// the caller's side; skip silently.
		r.logger.Debug("skipping replication, session has no owning user")
		return false
	}
	if r.authLatched.Load() {
		return false
	}
	if r.breaker.IsOpen() {
		return false
	}
	return true
}

// observe reports a remote call outcome to the breaker and maintains the
// auth latch. It returns err unchanged for convenience.
func (r *Replicator) observe(err error) error {
	switch {
	case err == nil:
		r.breaker.RecordSuccess()
	case errors.Is(err, remote.ErrNotFound):
		// The dependency answered; nothing to update is not a failure.
		r.breaker.RecordSuccess()
	case remote.IsAuth(err):
		r.breaker.RecordFailure()
		r.authLatched.Store(true)
		r.logger.Warn("remote auth failure, pausing replication for this session")
	default:
		r.breaker.RecordFailure()
	}
	return err
}

// SyncNewMessage mirrors one freshly appended message. It is a no-op when
// the remote store is unavailable, the session has no owning user, or the
// message is already synced. Errors are logged, never returned: the
// message-send path must not observe replication failures.
func (r *Replicator) SyncNewMessage(ctx context.Context, msg store.ChatMessage, sess *store.ChatSession) {
	// Dedupe before the availability check: skipping already-synced work
	// must not consume the breaker's half-open probe.
	if r.tracker.IsSynced(msg.ID) {
		return
	}
	if !r.canAttempt(sess) {
		return
	}

	convID, err := r.EnsureRemoteConversation(ctx, sess)
	if err != nil {
		r.logger.Warn("ensuring remote conversation", "session_id", sess.ID, "error", err)
		return
	}

	_, err = r.client.CreateMessage(ctx, &remote.Message{
		ID:             msg.ID,
		ConversationID: convID,
		Sender:         msg.Sender,
		Text:           msg.Text,
		Timestamp:      msg.Timestamp,
		AudioRef:       msg.AudioRef,
	})
	if r.observe(err) != nil {
		r.logger.Warn("mirroring message", "message_id", msg.ID, "error", err)
		return
	}
	r.tracker.MarkSynced(msg.ID)

	// The first user message names the conversation.
	if first := sess.FirstUserMessage(); first != nil && first.ID == msg.ID {
		r.patchConversation(ctx, convID, sess, false)
	}
}

// EnsureRemoteConversation returns the remote conversation id for the
// session, establishing it at most once: cached mapping first, then
// rediscovery by session tag, then creation. Concurrent callers share a
// single in-flight attempt.
func (r *Replicator) EnsureRemoteConversation(ctx context.Context, sess *store.ChatSession) (string, error) {
	if id, ok := r.tracker.ConversationID(sess.ID); ok {
		return id, nil
	}

	v, err, _ := r.flight.Do(sess.ID, func() (any, error) {
		// A concurrent caller may have completed while we queued.
		if id, ok := r.tracker.ConversationID(sess.ID); ok {
			return id, nil
		}

		conv, err := r.findByTag(ctx, sess)
		if err != nil {
			// Creating blindly after a failed query risks a duplicate
			// conversation; abandon this attempt instead.
			return nil, err
		}
		if conv != nil {
			r.tracker.SetConversationID(sess.ID, conv.ID)
			r.absorbRemoteMessages(ctx, conv.ID, sess)
			return conv.ID, nil
		}

		created, err := r.client.CreateConversation(ctx, &remote.Conversation{
			UserID:     sess.UserID,
			Title:      sess.Title,
			SessionTag: sess.ID,
			StartedAt:  sess.StartedAt,
		})
		if r.observe(err) != nil {
			return nil, err
		}
		r.tracker.SetConversationID(sess.ID, created.ID)
		return created.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// findByTag looks for an existing remote conversation tagged with the
// session id. Covers resume-after-restart: the conversation is rediscovered
// rather than recreated. A 404 from the listing means the user has no
// conversations yet.
func (r *Replicator) findByTag(ctx context.Context, sess *store.ChatSession) (*remote.Conversation, error) {
	token := ""
	for {
		page, err := r.client.GetConversationsByUser(ctx, sess.UserID, r.pageSize, token)
		if err != nil {
			if errors.Is(r.observe(err), remote.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		r.observe(nil)
		for i := range page.Items {
			if page.Items[i].SessionTag == sess.ID {
				return &page.Items[i], nil
			}
		}
		if page.ContinuationToken == "" {
			return nil, nil
		}
		token = page.ContinuationToken
	}
}

// absorbRemoteMessages marks remote messages that text-and-sender-match
// local ones as already synced, so a rediscovered conversation is not
// re-populated with duplicates after a crash.
func (r *Replicator) absorbRemoteMessages(ctx context.Context, convID string, sess *store.ChatSession) {
	token := ""
	for {
		page, err := r.client.GetMessagesByConversation(ctx, convID, r.pageSize, token)
		if r.observe(err) != nil {
			return
		}
		for _, rm := range page.Items {
			for i := range sess.Messages {
				local := &sess.Messages[i]
				if local.Text == rm.Text && local.Sender == rm.Sender {
					r.tracker.MarkSynced(local.ID)
					break
				}
			}
		}
		if page.ContinuationToken == "" {
			return
		}
		token = page.ContinuationToken
	}
}

// SyncFullSession is the catch-up sweep run at session end: it mirrors
// every not-yet-synced message in original order, then patches the remote
// conversation's summary and message count.
func (r *Replicator) SyncFullSession(ctx context.Context, sess *store.ChatSession) error {
	if !r.canAttempt(sess) {
		return ErrUnavailable
	}

	convID, err := r.EnsureRemoteConversation(ctx, sess)
	if err != nil {
		return err
	}

	for _, msg := range sess.Messages {
		if r.tracker.IsSynced(msg.ID) {
			continue
		}
		_, err := r.client.CreateMessage(ctx, &remote.Message{
			ID:             msg.ID,
			ConversationID: convID,
			Sender:         msg.Sender,
			Text:           msg.Text,
			Timestamp:      msg.Timestamp,
			AudioRef:       msg.AudioRef,
		})
		if r.observe(err) != nil {
			return err
		}
		r.tracker.MarkSynced(msg.ID)
	}

	r.patchConversation(ctx, convID, sess, true)
	return nil
}

// patchConversation updates remote conversation metadata. A 404 means the
// conversation vanished remotely; nothing to update.
func (r *Replicator) patchConversation(ctx context.Context, convID string, sess *store.ChatSession, final bool) {
	count := len(sess.Messages)
	patch := &remote.ConversationPatch{MessageCount: &count}
	if sess.Title != "" {
		title := sess.Title
		patch.Title = &title
	}
	if final {
		if sess.Summary != "" {
			summary := sess.Summary
			patch.Summary = &summary
		}
		patch.EndedAt = sess.EndedAt
	}

	err := r.client.UpdateConversation(ctx, convID, sess.UserID, patch)
	if r.observe(err) != nil && !errors.Is(err, remote.ErrNotFound) {
		r.logger.Warn("patching remote conversation", "conversation_id", convID, "error", err)
	}
}

// PullRemoteHistory lists the user's remote conversations and folds each
// one into local day history. Used opportunistically at startup to recover
// history on a new device; callers run it in the background.
func (r *Replicator) PullRemoteHistory(ctx context.Context, userID string) error {
	if r.client == nil || userID == "" {
		return nil
	}
	if r.breaker.IsOpen() {
		return ErrUnavailable
	}

	pulled := 0
	token := ""
	for {
		page, err := r.client.GetConversationsByUser(ctx, userID, r.pageSize, token)
		if err != nil {
			if errors.Is(r.observe(err), remote.ErrNotFound) {
				break
			}
			return err
		}
		r.observe(nil)
		for i := range page.Items {
			if err := r.pullConversation(ctx, &page.Items[i], userID); err != nil {
				return err
			}
			pulled++
		}
		if page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	if err := r.store.SetLastSyncTime(time.Now()); err != nil {
		r.logger.Warn("recording last sync time", "error", err)
	}
	r.logger.Info("pulled remote history", "conversations", pulled)
	return nil
}

// pullConversation fetches one conversation's messages and merges them into
// local history as a session. The local session id comes from the
// conversation's session tag when present, otherwise one is synthesized.
func (r *Replicator) pullConversation(ctx context.Context, conv *remote.Conversation, userID string) error {
	var msgs []store.ChatMessage
	token := ""
	for {
		page, err := r.client.GetMessagesByConversation(ctx, conv.ID, r.pageSize, token)
		if err != nil {
			if errors.Is(r.observe(err), remote.ErrNotFound) {
				return nil
			}
			return err
		}
		r.observe(nil)
		for _, rm := range page.Items {
			msgs = append(msgs, store.ChatMessage{
				ID:        rm.ID,
				Sender:    rm.Sender,
				Text:      rm.Text,
				Timestamp: rm.Timestamp,
				AudioRef:  rm.AudioRef,
			})
		}
		if page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	sessID := conv.SessionTag
	if sessID == "" {
		sessID = uuid.NewString()
	}

	started := conv.StartedAt
	if started.IsZero() && len(msgs) > 0 {
		started = msgs[0].Timestamp
	}
	if started.IsZero() {
		started = time.Now()
	}

	sess := &store.ChatSession{
		ID:        sessID,
		Date:      started.Format(store.DateFormat),
		StartedAt: started,
		EndedAt:   conv.EndedAt,
		Title:     conv.Title,
		Summary:   conv.Summary,
		Messages:  msgs,
		UserID:    userID,
	}
	return r.store.MergeIntoDayHistory(sess)
}
