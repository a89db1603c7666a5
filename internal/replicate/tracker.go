// ABOUTME: Per-session tracker for the remote conversation mapping and
// ABOUTME: the bounded set of message ids already mirrored remotely

package replicate

import (
	"container/list"
	"sync"
	"time"
)

// Tracker defaults. The size bound keeps a very long-lived session from
// growing the synced set without limit; evicted ids are simply re-sent,
// which the remote store deduplicates by identifier.
const (
	DefaultTrackerTTL  = 12 * time.Hour
	DefaultTrackerSize = 2048
)

// trackEntry stores the mark time and list element for a synced id.
type trackEntry struct {
	marked  time.Time
	element *list.Element
}

// Tracker holds the ephemeral replication state for one active session:
// the remote conversation id mapped to the session, and the set of message
// ids confirmed written to that conversation. An id enters the set only
// after a confirmed remote write.
//
// The set is TTL- and size-bounded; expiry is evaluated lazily on lookup,
// oldest entries are evicted at capacity.
//
// Thread Safety: safe for concurrent use.
type Tracker struct {
	mu             sync.Mutex
	conversationID string
	sessionID      string // session the mapping belongs to
	seen           map[string]*trackEntry
	order          *list.List // insertion order, oldest at front
	ttl            time.Duration
	maxSize        int
}

// NewTracker creates an empty tracker. Zero ttl or maxSize fall back to
// the defaults.
func NewTracker(ttl time.Duration, maxSize int) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTrackerTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultTrackerSize
	}
	return &Tracker{
		seen:    make(map[string]*trackEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// ConversationID returns the remote conversation mapped to the given
// session, if one has been established for it. The mapping is stamped
// with its owning session so a write landing after a reset, from a mirror
// still in flight for the previous session, is never served to the next
// one.
func (t *Tracker) ConversationID(sessionID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conversationID == "" || t.sessionID != sessionID {
		return "", false
	}
	return t.conversationID, true
}

// SetConversationID records the remote conversation for the given session.
func (t *Tracker) SetConversationID(sessionID, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = sessionID
	t.conversationID = id
}

// IsSynced reports whether the message id has a confirmed remote write.
func (t *Tracker) IsSynced(msgID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.seen[msgID]
	if !ok {
		return false
	}
	if time.Since(entry.marked) >= t.ttl {
		t.order.Remove(entry.element)
		delete(t.seen, msgID)
		return false
	}
	return true
}

// MarkSynced records a confirmed remote write for the message id. At
// capacity the oldest entry is evicted.
func (t *Tracker) MarkSynced(msgID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, exists := t.seen[msgID]; exists {
		entry.marked = time.Now()
		t.order.MoveToBack(entry.element)
		return
	}

	if len(t.seen) >= t.maxSize {
		if front := t.order.Front(); front != nil {
			key, _ := front.Value.(string)
			t.order.Remove(front)
			delete(t.seen, key)
		}
	}

	elem := t.order.PushBack(msgID)
	t.seen[msgID] = &trackEntry{marked: time.Now(), element: elem}
}

// SyncedCount returns the number of tracked message ids.
func (t *Tracker) SyncedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Reset discards all state. Called at session boundaries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conversationID = ""
	t.sessionID = ""
	t.seen = make(map[string]*trackEntry)
	t.order.Init()
}
