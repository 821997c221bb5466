// Package receiver implements POST /api/logs, the ingestion endpoint the
// agent ships records to.
//
// Receiver validates the api-version query parameter, the Log-Type header
// (letters, digits and underscores, at most 100) and the JSON content type,
// then parses the body with fastjson. A single object or an array of objects
// is accepted; each becomes one stored record. Authentication is enforced
// upstream by the SharedKey middleware (see package auth), so the receiver
// itself only performs structural validation.
//
// New(st, failFirst) wires the receiver to the record store. failFirst > 0
// answers that many valid requests with HTTP 500 to exercise client retries.
package receiver
