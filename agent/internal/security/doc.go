// Package security checks the TLS certificate of the workspace ingestion
// endpoint. The agent runs Check once at startup and warns when the endpoint
// is unreachable or its certificate is expired or expires within 30 days.
package security
