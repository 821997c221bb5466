// Package ws streams accepted records to WebSocket clients.
//
// New(store, interval) creates a Hub. Hub.Publish(entries) is called by the
// receiver after every accepted POST and pushes the new records to every
// client at once. Hub.Run(ctx) pushes the server health on each tick and
// closes all connections when ctx is cancelled.
//
// On connect a client receives the current health followed by up to 50 of
// the most recent records.
//
// Message format sent to clients:
//
//	{"event": "health",  "data": { /* GET /api/v1/health */ }}
//	{"event": "records", "data": [ /* GET /api/v1/records items */ ]}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
