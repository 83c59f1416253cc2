// Package api implements the HTTP status API and WebSocket event stream
// for boardlink.
//
// This package provides:
//   - REST endpoints for device snapshots, state commands, and history
//   - WebSocket hub broadcasting relay events in real time
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits beside the relay: reads come from the in-memory
// device registry, writes go through the registered peripherals (which
// publish over the shared broker connection), and relay events reach
// WebSocket clients through the hub. The server itself is a relay
// listener, so inbound broker traffic, delivery confirmations, and
// connection loss all surface on the event stream.
//
// # Graceful Degradation
//
// Only the registry is required. Without a board or relay the status
// endpoint omits those sections, without a history repository the
// history endpoints return 503, and without InfluxDB telemetry writes
// are skipped.
package api
