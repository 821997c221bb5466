package transport

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/obsidianstack/logship/agent/internal/config"
)

const (
	dialTimeout         = 10 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	idleConnTimeout     = 90 * time.Second
)

// userAgentRoundTripper sets User-Agent on every outgoing request.
type userAgentRoundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// New constructs an http.Client for the shipper settings. Idle connections
// are kept per host up to MaxConcurrentRequests so a full cycle reuses them.
func New(cfg config.ShipperConfig) *http.Client {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     tlsCfg,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		IdleConnTimeout:     idleConnTimeout,
		MaxIdleConnsPerHost: cfg.MaxConcurrentRequests,
		ForceAttemptHTTP2:   true,
	}

	var rt http.RoundTripper = base
	if cfg.UserAgent != "" {
		rt = &userAgentRoundTripper{base: base, userAgent: cfg.UserAgent}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.RequestTimeout,
	}
}
