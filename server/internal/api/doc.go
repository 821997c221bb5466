// Package api implements the HTTP query API of the ingestion server.
//
// New(store) returns an http.Handler that serves:
//
//	GET /api/v1/health    : status, live record count, accepted total
//	GET /api/v1/log-types : tables with live records ([]LogTypeResponse)
//	GET /api/v1/records   : newest records; ?log_type= filters, ?limit= caps (default 100)
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Read live entries from the store (stale entries excluded)
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
