// Package shipper delivers queued log records to the Log Analytics HTTP Data
// Collector API.
//
// Shipper.Enqueue() is non-blocking: it wraps the fields in a types.Record
// with a fresh UUID and appends it to a mutex-guarded Queue. Nothing is ever
// returned to the caller on failure.
//
// Shipper.Run() is the worker. Each cycle it snapshots the queue, builds one
// signed POST per record (Builder), sends the batch through the Dispatcher
// with at most max_concurrent_requests in flight, waits for every request,
// and removes exactly the records whose response status was 2xx. Everything
// else stays queued and is rebuilt, re-signed and resent next cycle. There is
// no retry limit, backoff or dead-letter queue: delivery is at-least-once and
// the cycle interval is fixed. The next wait starts only after the whole
// batch has resolved, so slow batches delay cycles without skipping them.
//
// Records are immutable. Attempt counts and the last status per record live in
// the Queue's delivery-state map, keyed by record ID.
//
// Transport errors and non-2xx responses are silent by default (debug log
// only); WithErrorHandler installs a hook that observes them.
//
// The Doer is injectable (WithDoer) so tests can count in-flight requests or
// point the shipper at an httptest server.
package shipper
