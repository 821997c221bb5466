// Package logsink is the slog front-end of the shipper.
//
// NewHandler(q, opts) returns a slog.Handler that converts each record into
// the ten workspace fields: level name, RFC-1123 time, message, module, file
// name, line, thread, process name, pid and function. Attributes and groups
// are folded into the message as key=value pairs. Records are handed to the
// Enqueuer and delivered by the shipper's worker loop.
//
// Tee(handlers...) duplicates records so the agent can keep its console log
// while shipping a copy.
package logsink
