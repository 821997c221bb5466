// Package metrics exposes the shipper's delivery counters in the Prometheus
// text format.
//
// Handler(src) renders logship_records_enqueued_total,
// logship_records_delivered_total, logship_delivery_failures_total,
// logship_cycles_total and the logship_queue_pending gauge from
// src.Stats() on every scrape. The agent mounts it at /metrics.
package metrics
