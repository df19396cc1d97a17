// Package server provides the optional status HTTP server of a run: Gin
// behind an h2c handler, with recovery, request-id and request logging
// middleware.
//
// # Endpoints
//
//   - /healthz: aggregated component health (503 when any is unhealthy)
//   - /progress: live counters, worker count and phase of the current run
//   - /version: build version information
//
// The server starts before the pipeline is built, so /progress reads from a
// RunTracker the run is attached to later.
package server
