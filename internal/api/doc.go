// Package api implements the HTTP REST API and WebSocket server for HomeBot Core.
//
// This package provides:
//   - REST endpoints under /api/v1 for devices, rooms, groups, schedules,
//     sensor readings, admin user management, stats and reports
//   - A WebSocket hub at /ws that fans router events out to room channels
//   - Prometheus exposition at /metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Architecture
//
// Handlers are thin: they decode the request, call the control.Router,
// sensor.Service or identity.Gateway, and map the result onto the
// {success, count, data} envelopes. All error mapping happens in
// writeDomainError.
//
// Mutations run on a context detached from the client connection, so a
// disconnect does not abort a write already in flight.
//
// # Security
//
// Login issues HS256 access tokens and /auth/me decodes them. Other routes
// are not guarded; the admin prefix is a naming convention only.
package api
