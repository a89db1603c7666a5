// Package session owns the single current chat session and its lifecycle.
//
// All messages flow through Manager.AddMessage: the local store is written
// synchronously and authoritatively before the call returns, then the
// message is handed to the replicator in the background. Replication
// failures never reach the message-send path; the worst user-visible
// outcome is a remote mirror that silently lags.
//
// Exactly one session is current per running client. A current session
// with no messages is reused by StartSession rather than leaked as an
// empty session.
package session
