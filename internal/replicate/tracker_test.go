// ABOUTME: Tests for the per-session sync tracker
// ABOUTME: Validates bounded size, TTL expiry, and reset semantics

package replicate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_MarkAndCheck(t *testing.T) {
	tr := NewTracker(0, 0)

	assert.False(t, tr.IsSynced("m1"))
	tr.MarkSynced("m1")
	assert.True(t, tr.IsSynced("m1"))
	assert.Equal(t, 1, tr.SyncedCount())
}

func TestTracker_ConversationID(t *testing.T) {
	tr := NewTracker(0, 0)

	_, ok := tr.ConversationID("sess-1")
	assert.False(t, ok)

	tr.SetConversationID("sess-1", "conv-1")
	id, ok := tr.ConversationID("sess-1")
	assert.True(t, ok)
	assert.Equal(t, "conv-1", id)
}

func TestTracker_ConversationIDScopedToSession(t *testing.T) {
	tr := NewTracker(0, 0)

	// A mapping written on behalf of one session is invisible to any other
	tr.SetConversationID("sess-1", "conv-1")
	_, ok := tr.ConversationID("sess-2")
	assert.False(t, ok)

	id, ok := tr.ConversationID("sess-1")
	assert.True(t, ok)
	assert.Equal(t, "conv-1", id)
}

func TestTracker_TTLExpiry(t *testing.T) {
	tr := NewTracker(10*time.Millisecond, 0)

	tr.MarkSynced("m1")
	assert.True(t, tr.IsSynced("m1"))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, tr.IsSynced("m1"))
	assert.Zero(t, tr.SyncedCount())
}

func TestTracker_EvictsOldestAtCapacity(t *testing.T) {
	tr := NewTracker(time.Hour, 3)

	for i := 1; i <= 4; i++ {
		tr.MarkSynced(fmt.Sprintf("m%d", i))
	}

	assert.Equal(t, 3, tr.SyncedCount())
	assert.False(t, tr.IsSynced("m1"), "oldest entry evicted")
	assert.True(t, tr.IsSynced("m4"))
}

func TestTracker_RemarkMovesToBack(t *testing.T) {
	tr := NewTracker(time.Hour, 2)

	tr.MarkSynced("m1")
	tr.MarkSynced("m2")
	tr.MarkSynced("m1") // refresh
	tr.MarkSynced("m3") // evicts m2, not m1

	assert.True(t, tr.IsSynced("m1"))
	assert.False(t, tr.IsSynced("m2"))
	assert.True(t, tr.IsSynced("m3"))
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(0, 0)

	tr.SetConversationID("sess-1", "conv-1")
	tr.MarkSynced("m1")
	tr.Reset()

	_, ok := tr.ConversationID("sess-1")
	assert.False(t, ok)
	assert.False(t, tr.IsSynced("m1"))
	assert.Zero(t, tr.SyncedCount())
}
