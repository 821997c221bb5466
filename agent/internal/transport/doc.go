// Package transport builds the *http.Client the shipper posts with.
//
// New(cfg) applies the shipper TLS options, the per-request timeout and the
// environment proxy settings. A userAgentRoundTripper stamps User-Agent on
// every outgoing request when one is configured, the same way the scrapers
// used to inject auth headers.
package transport
