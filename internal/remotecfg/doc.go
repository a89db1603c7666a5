// Package remotecfg fetches named configuration values from the remote
// configuration proxy, gated by its own circuit breaker.
//
// Fetched values are cached as last-known-good: when the circuit is open
// or a fetch fails, callers get the cached value instead of an error, so
// remote outages degrade configuration rather than breaking it.
package remotecfg
