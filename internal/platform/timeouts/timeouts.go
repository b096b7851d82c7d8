// Package timeouts defines shared timeout constants used across the engine.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// LockRelease bounds how long a per-user lock may stay held while waiting
// for the platform to confirm a role mutation. When the confirmation event
// never arrives the lock is force-released after this duration.
const LockRelease = 5 * time.Second

// TelemetryShutdown limits how long trace export waits to flush during
// process shutdown.
const TelemetryShutdown = 5 * time.Second
