// Package app wires the dashboard together and owns its lifecycle.
//
// NewApplication builds every component from a config.Config without
// touching the dataset: telemetry providers, the dashboard service, the
// WebSocket hub, the health service, the chi router and the http.Server.
// Load performs the first dataset read; the dashboard command treats a
// failure there as fatal. Run then serves until its context is cancelled.
//
// # Routing
//
// Every route passes RequestID, RealIP, OTel, StructuredLogger and
// Recoverer. /ws and /metrics sit outside the main group so that the
// upgrade is not wrapped by compression or timeouts. The group adds
// security headers, CORS, rate limiting, a request timeout and gzip:
//
//	GET  /                      HTML dashboard
//	GET  /charts/               every chart on one page
//	GET  /charts/{chart}        a single chart, embedded by the dashboard
//	GET  /api/summary           per-platform aggregates
//	GET  /api/timeseries        bucketed series
//	GET  /api/insights          comparisons and verdict
//	GET  /api/records           filtered records
//	GET  /api/dataset           snapshot metadata
//	GET  /api/export/{file}     csv and xlsx downloads
//	GET  /api/health[/ready|/live], /api/version
//	POST /api/client-log        browser diagnostics
//
// # Lifecycle
//
// Run starts the hub, the optional file watcher and the listener under one
// errgroup. Cancelling the context shuts the server down within
// Server.ShutdownTimeout and flushes telemetry.
package app
