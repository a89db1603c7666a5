// Package replicate mirrors locally-authoritative chat data to the remote
// store, best effort and at-least-once.
//
// # Design
//
// The local store always wins: replication never blocks or fails a local
// write. Every remote call is gated by a circuit breaker, and every message
// write is keyed by the client-generated message identifier so re-sends
// deduplicate by identifier equality rather than value comparison.
//
// Per-session ephemeral state (the remote conversation mapping and the set
// of already-mirrored message ids) lives in a Tracker, discarded at session
// end and rebuilt at session start. A reopened session rediscovers its
// remote conversation by session tag instead of creating a duplicate.
//
// # Single-flight
//
// EnsureRemoteConversation must not create two remote conversations for one
// session under concurrent message sends. The query-then-maybe-create
// sequence runs under golang.org/x/sync/singleflight keyed by session id;
// concurrent callers share the one in-flight result.
package replicate
