// Package remote is the client for the durable remote store: conversation
// and message CRUD, analytics records, and a health check, all as JSON over
// HTTPS.
//
// The package deliberately knows nothing about replication policy. Callers
// (internal/replicate, internal/analytics) decide when a call is worth
// attempting; this package only classifies the outcome:
//
//   - ErrNotFound: the entity does not exist (404)
//   - AuthError: the caller is not authenticated or not allowed (401/403)
//   - TransientError: network failure, timeout, throttling, or 5xx
//
// A nil Client is the "remote store not configured" capability: decided
// once at startup, never re-derived per call.
package remote
