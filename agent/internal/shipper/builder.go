package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obsidianstack/logship/pkg/sharedkey"
	"github.com/obsidianstack/logship/pkg/types"
)

// Data Collector API constants.
const (
	Resource    = "/api/logs"
	APIVersion  = "2016-04-01"
	ContentType = "application/json"

	HeaderLogType = "Log-Type"
	HeaderDate    = "x-ms-date"
)

// Request pairs a record with its signed, unsent HTTP request.
type Request struct {
	Record types.Record
	HTTP   *http.Request
}

// Builder turns records into signed POST requests. It holds no mutable
// state; the only input besides the record is the clock.
type Builder struct {
	signer         *sharedkey.Signer
	uri            string
	defaultLogType string
	now            func() time.Time
}

// NewBuilder returns a Builder posting to baseURL + Resource.
func NewBuilder(signer *sharedkey.Signer, baseURL, defaultLogType string, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		signer:         signer,
		uri:            baseURL + Resource + "?api-version=" + APIVersion,
		defaultLogType: defaultLogType,
		now:            now,
	}
}

// URI returns the ingestion URL every request is posted to.
func (b *Builder) URI() string { return b.uri }

// Build serializes the record fields and signs the request with the current
// time. Building the same record twice yields different x-ms-date values and
// signatures once the clock has moved.
func (b *Builder) Build(ctx context.Context, rec types.Record) (Request, error) {
	body, err := json.Marshal(rec.Fields)
	if err != nil {
		return Request{}, fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.uri, bytes.NewReader(body))
	if err != nil {
		return Request{}, fmt.Errorf("build request: %w", err)
	}

	logType := rec.LogType
	if logType == "" {
		logType = b.defaultLogType
	}
	date := types.FormatTime(b.now())

	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Authorization", b.signer.Sign(date, len(body), http.MethodPost, ContentType, Resource))
	req.Header.Set(HeaderLogType, logType)
	req.Header.Set(HeaderDate, date)

	return Request{Record: rec, HTTP: req}, nil
}
