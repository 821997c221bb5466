package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/obsidianstack/logship/agent/internal/config"
)

// CertStatus describes the leaf certificate served by the ingestion endpoint.
type CertStatus struct {
	Endpoint string
	// Status is one of: valid | expiring | expired | unreachable.
	Status   string
	DaysLeft int
	Issuer   string
	NotAfter time.Time
}

// Check dials the workspace ingestion endpoint and returns a CertStatus
// describing its leaf certificate.
//
// Returns nil for non-HTTPS endpoints: there is no TLS certificate to inspect.
// Uses a 10-second dial timeout so a slow/unreachable host does not block
// agent startup indefinitely.
func Check(ctx context.Context, ws config.WorkspaceConfig, tlsCfg config.TLSConfig) *CertStatus {
	endpoint := ws.BaseURL()
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" {
		return nil // nothing to inspect for plain-HTTP or unparseable endpoints
	}

	cs := &CertStatus{Endpoint: endpoint}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		// No explicit port in the URL, append the HTTPS default.
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: tlsCfg.InsecureSkipVerify, //nolint:gosec
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = "unreachable"
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = "unreachable"
		return cs
	}

	leaf := peerCerts[0]
	daysLeft := time.Until(leaf.NotAfter).Hours() / 24

	cs.NotAfter = leaf.NotAfter.UTC()
	cs.Issuer = leaf.Issuer.CommonName
	if cs.Issuer == "" && len(leaf.Issuer.Organization) > 0 {
		cs.Issuer = leaf.Issuer.Organization[0]
	}
	cs.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		cs.Status = "expired"
	case daysLeft <= 30:
		cs.Status = "expiring"
	default:
		cs.Status = "valid"
	}

	return cs
}
