package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testKey = "c3VwZXItc2VjcmV0LXdvcmtzcGFjZS1rZXk="

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEST_WS_KEY", testKey)
	p := writeConfig(t, `server:
  auth:
    customer_id: ws-test
    key_env: TEST_WS_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Auth.Mode != DefaultAuthMode {
		t.Errorf("auth.mode: got %q, want %q", cfg.Server.Auth.Mode, DefaultAuthMode)
	}
	if cfg.Server.Auth.MaxSkew != DefaultMaxSkew {
		t.Errorf("auth.max_skew: got %v, want %v", cfg.Server.Auth.MaxSkew, DefaultMaxSkew)
	}
	if cfg.Server.Records.TTL != DefaultRecordTTL {
		t.Errorf("records.ttl: got %v, want %v", cfg.Server.Records.TTL, DefaultRecordTTL)
	}
	if cfg.Server.Records.Max != DefaultMaxRecords {
		t.Errorf("records.max: got %d, want %d", cfg.Server.Records.Max, DefaultMaxRecords)
	}
	if !cfg.Server.Auth.Enabled() {
		t.Error("Enabled(): got false, want true in sharedkey mode")
	}
}

func TestLoad_FullServer(t *testing.T) {
	t.Setenv("TEST_WS_KEY", testKey)
	p := writeConfig(t, `server:
  http_port: 9091
  fail_first: 3
  auth:
    mode: sharedkey
    customer_id: ws-test
    key_env: TEST_WS_KEY
    max_skew: 1m
  records:
    ttl: 10m
    max: 50
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.FailFirst != 3 {
		t.Errorf("fail_first: got %d, want 3", cfg.Server.FailFirst)
	}
	if cfg.Server.Auth.MaxSkew != time.Minute {
		t.Errorf("auth.max_skew: got %v, want 1m", cfg.Server.Auth.MaxSkew)
	}
	if cfg.Server.Records.TTL != 10*time.Minute {
		t.Errorf("records.ttl: got %v, want 10m", cfg.Server.Records.TTL)
	}
	if k := cfg.Server.Auth.Key(); k != testKey {
		t.Errorf("Key(): got %q, want %q", k, testKey)
	}
}

func TestLoad_AuthNone(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: none
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Auth.Enabled() {
		t.Error("Enabled(): got true, want false in none mode")
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TEST_WS_KEY", testKey)
	t.Setenv("TEST_BAD_KEY", "not base64!")
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown mode", "server:\n  auth:\n    mode: oauth2\n"},
		{"missing customer id", "server:\n  auth:\n    key_env: TEST_WS_KEY\n"},
		{"missing key", "server:\n  auth:\n    customer_id: ws\n"},
		{"bad key", "server:\n  auth:\n    customer_id: ws\n    key_env: TEST_BAD_KEY\n"},
		{"port out of range", "server:\n  http_port: 70000\n  auth:\n    mode: none\n"},
		{"zero max", "server:\n  auth:\n    mode: none\n  records:\n    max: 0\n"},
		{"negative fail_first", "server:\n  fail_first: -1\n  auth:\n    mode: none\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
