// Package telemetry wires zap logging and Prometheus counters for the
// console. Diagnostics implements livesync.Diagnostics so stale discards,
// guarded skips and background errors are both logged and counted.
package telemetry
