// Package analytics emits fire-and-forget lifecycle telemetry to the
// remote store. It must never affect chat control flow: failures are
// swallowed and logged, and an open circuit or missing user id makes
// tracking a silent no-op.
package analytics
