// Package auth exposes the authentication collaborator to the sync engine.
//
// The engine only ever asks two questions: is the caller authenticated, and
// what is the current user id. Both must be safe to call before any async
// initialization completes and must never fail; every error path degrades
// to "not authenticated".
package auth
