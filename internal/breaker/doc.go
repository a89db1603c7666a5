// Package breaker implements a three-state circuit breaker used to gate
// calls to the remote store and the remote configuration fetch path.
//
// The breaker is demand-driven: the open-to-half-open transition happens on
// the next availability check after the cooldown elapses, not on a timer.
// Health is only probed when a caller actually wants to make a call, so an
// idle process does no background work.
package breaker
