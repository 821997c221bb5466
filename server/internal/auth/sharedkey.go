package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/obsidianstack/logship/pkg/sharedkey"
	"github.com/obsidianstack/logship/pkg/types"
)

// MaxBodyBytes is the largest request body accepted by the ingestion API.
const MaxBodyBytes = 30 << 20

// SharedKey returns HTTP middleware that enforces SharedKey authentication.
//
// Behaviour:
//   - If signer is nil, all requests pass through.
//   - Otherwise the body is read (at most MaxBodyBytes) and the Authorization
//     header is checked against the signature of method, body length,
//     Content-Type, x-ms-date and path.
//   - An x-ms-date further than maxSkew from the server clock is rejected.
//     A zero maxSkew disables the check.
//   - Failures answer 403 with the API's JSON error body.
//
// The body is restored so the next handler can read it.
func SharedKey(signer *sharedkey.Signer, maxSkew time.Duration) func(http.Handler) http.Handler {
	return sharedKeyAt(signer, maxSkew, time.Now)
}

func sharedKeyAt(signer *sharedkey.Signer, maxSkew time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if signer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
			r.Body.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "InvalidRequest", "failed to read body")
				return
			}
			if len(body) > MaxBodyBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "RequestEntityTooLarge", "body exceeds 30 MB")
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusForbidden, "MissingAuthorization", "Authorization header is required")
				return
			}

			date := r.Header.Get("x-ms-date")
			sent, err := time.Parse(types.TimeLayout, date)
			if err != nil {
				writeError(w, http.StatusForbidden, "InvalidAuthorization", "x-ms-date is missing or not RFC 1123")
				return
			}
			if maxSkew > 0 {
				if d := now().Sub(sent); d > maxSkew || d < -maxSkew {
					writeError(w, http.StatusForbidden, "InvalidAuthorization", "x-ms-date is outside the allowed clock skew")
					return
				}
			}

			if !signer.Verify(header, date, len(body), r.Method, r.Header.Get("Content-Type"), r.URL.Path) {
				id, _, _ := sharedkey.Parse(header)
				slog.Debug("auth: signature rejected", "customer_id", id, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "InvalidAuthorization", "An invalid scheme was specified in the Authorization header")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			next.ServeHTTP(w, r)
		})
	}
}

// errorResponse mirrors the Data Collector API error body.
type errorResponse struct {
	Error   string `json:"Error"`
	Message string `json:"Message"`
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: errCode, Message: msg}) //nolint:errcheck
}
