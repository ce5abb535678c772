// Package server implements the HTTP server using Echo framework.
//
// Routes: /events (SSE stream), /insert (record mutation), /ws/ (relay),
// plus health, metrics and version endpoints. Handlers split by concern:
// handlers_events.go, handlers_insert.go, handlers_ws.go, handlers_health.go.
package server
