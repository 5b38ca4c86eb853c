// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime counters, live configuration and debug introspection for the file
// server.
//
// Provides concurrent-safe primitives that may be read from any goroutine
// while the event loop updates them:
//   - Metrics: named monotonic counters and gauges with snapshot reads
//   - ConfigStore: key/value runtime settings with reload listeners
//   - DebugProbes: named probe functions dumped on demand
package control
