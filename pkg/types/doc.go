// Package types defines shared Go types used by both the agent and the
// ingestion server. Record is the canonical in-memory representation of one
// captured log event; Fields is the exact JSON document posted to the Log
// Analytics Data Collector API.
package types
