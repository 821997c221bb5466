// Package auth provides authentication middleware for the ingestion server.
//
// SharedKey(signer, maxSkew) returns HTTP middleware that recomputes the
// SharedKey signature of every request from its method, body length,
// Content-Type, x-ms-date header and path, and compares it with the
// Authorization header in constant time.
//
// When signer is nil all requests pass through (useful for local
// development with auth disabled). A missing or incorrect signature, or a
// stale x-ms-date, is answered with 403 immediately.
package auth
