// Package api implements the HTTP REST API and WebSocket server for Chimera Core.
//
// This package provides:
//   - REST endpoints to list, inspect, and mutate registry devices
//   - Registry summary and group table endpoints
//   - WebSocket hub broadcasting committed device changes
//   - Optional HS256 bearer authentication on mutating routes
//   - Middleware stack (request ID, logging, recovery, CORS, metrics)
//   - Prometheus exposition on /metrics
//
// # Architecture
//
// Handlers are thin: they parse the path id and body, call device.Service,
// and map its sentinel errors onto status codes. The hub and the metrics
// collector are registered as device.Observer values, so they only see
// changes that were written successfully.
//
// # Security
//
// When security.jwt.secret is empty the API is open, matching a trusted LAN
// deployment. With a secret set, PATCH and POST require a bearer token.
// Read routes and the WebSocket stream are never authenticated.
package api
