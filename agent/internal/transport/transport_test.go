package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/obsidianstack/logship/agent/internal/config"
)

func TestNew_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(config.ShipperConfig{
		MaxConcurrentRequests: 2,
		RequestTimeout:        time.Second,
		UserAgent:             "logship-agent/test",
	})

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if got != "logship-agent/test" {
		t.Errorf("User-Agent = %q, want logship-agent/test", got)
	}
}

func TestNew_NoUserAgentKeepsBaseTransport(t *testing.T) {
	client := New(config.ShipperConfig{MaxConcurrentRequests: 1, RequestTimeout: time.Second})
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Errorf("Transport = %T, want *http.Transport", client.Transport)
	}
	if client.Timeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", client.Timeout)
	}
}

func TestNew_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(config.ShipperConfig{MaxConcurrentRequests: 1, RequestTimeout: 50 * time.Millisecond})
	if _, err := client.Get(srv.URL); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}
