// Package store provides local, always-available persistence for chat
// sessions and day-indexed history.
//
// # Architecture
//
// The package is split into two layers:
//
//   - KV: a synchronous string key/value primitive. SQLiteKV implements it
//     on SQLite via modernc.org/sqlite; MemoryKV implements it in-memory
//     for tests.
//   - LocalStore: the session store proper, serializing ChatSession and
//     DayHistory values as JSON under well-known keys.
//
// # Data Models
//
//   - ChatMessage: immutable message with client-generated identifier
//   - ChatSession: one chat interaction, append-only while active
//   - DayHistory: all sessions that started on a calendar date
//
// # Keys
//
//   - current-session: the single active ChatSession
//   - chat-history: array of DayHistory, newest date first
//   - last-sync-timestamp: RFC3339 time of the last successful remote pull
//   - chat-history-v1: legacy flat layout, read once by MigrateLegacyFormat
//
// # Error Handling
//
// LocalStore is the correctness boundary for the whole application, so its
// read paths never propagate corruption: a value that fails to parse is
// logged and treated as absent. Write failures are returned to the caller.
package store
