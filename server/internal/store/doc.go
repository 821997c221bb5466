// Package store keeps records accepted by the ingestion server in memory,
// grouped by Log-Type, with a per-group cap and TTL eviction.
package store
