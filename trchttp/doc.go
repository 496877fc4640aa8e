// Package trchttp provides an HTTP control service for a trcevent recorder,
// and clients for that service.
//
// The server exposes a small JSON API. GET /trace returns the exported trace
// document, which can be loaded directly into chrome://tracing or Perfetto.
// POST /tracepoint/enable and POST /tracepoint/disable toggle recording, and
// respond with {"ok":"success"}. Additional routes reset the log, report
// stats, manage categories, and stream events live as server-sent events.
//
// The package also provides a request middleware, which records a pair of
// events for every request it serves. The server applies it to its own routes,
// in a category which is disabled by default.
package trchttp
