package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/obsidianstack/logship/pkg/types"
	"github.com/obsidianstack/logship/server/internal/api"
	"github.com/obsidianstack/logship/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

func newStore() *store.Store {
	return store.New(5*time.Minute, 1000)
}

func rec(level, msg string) types.Fields {
	return types.Fields{
		Level:       level,
		Time:        "Wed, 04 Mar 2026 05:08:09 GMT",
		Message:     msg,
		Module:      "worker",
		FileName:    "worker.go",
		LineNumber:  87,
		ThreadName:  "goroutine",
		ProcessName: "app",
		ProcessPID:  4242,
		FuncName:    "worker.run",
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h := api.New(newStore())
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)

	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
	if resp.RecordCount != 0 || resp.LogTypeCount != 0 {
		t.Errorf("counts: got records=%d types=%d, want 0/0", resp.RecordCount, resp.LogTypeCount)
	}
}

func TestHealth_Counts(t *testing.T) {
	st := newStore()
	st.Put("AppLogs", rec("INFO", "a"), rec("ERROR", "b"))
	st.Put("Audit", rec("INFO", "c"))

	rr := get(t, api.New(st), "/api/v1/health")
	var resp api.HealthResponse
	decode(t, rr, &resp)

	if resp.RecordCount != 3 {
		t.Errorf("record_count: got %d, want 3", resp.RecordCount)
	}
	if resp.AcceptedTotal != 3 {
		t.Errorf("accepted_total: got %d, want 3", resp.AcceptedTotal)
	}
	if resp.LogTypeCount != 2 {
		t.Errorf("log_type_count: got %d, want 2", resp.LogTypeCount)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/log-types ------------------------------------------------------

func TestLogTypes(t *testing.T) {
	st := newStore()
	st.Put("Zeta", rec("INFO", "z"))
	st.Put("AppLogs", rec("INFO", "a"), rec("INFO", "b"))

	rr := get(t, api.New(st), "/api/v1/log-types")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []api.LogTypeResponse
	decode(t, rr, &resp)

	if len(resp) != 2 {
		t.Fatalf("len: got %d, want 2", len(resp))
	}
	if resp[0].Name != "AppLogs" || resp[0].RecordCount != 2 {
		t.Errorf("resp[0]: got %+v, want AppLogs with 2 records", resp[0])
	}
	if _, err := time.Parse(time.RFC3339, resp[0].LastSeen); err != nil {
		t.Errorf("last_seen %q is not RFC3339: %v", resp[0].LastSeen, err)
	}
}

func TestLogTypes_EmptyStoreIsArray(t *testing.T) {
	rr := get(t, api.New(newStore()), "/api/v1/log-types")
	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("body: got %q, want []", got)
	}
}

// --- /api/v1/records --------------------------------------------------------

func TestRecords_AllFields(t *testing.T) {
	st := newStore()
	st.Put("AppLogs", rec("ERROR", "boom"))

	rr := get(t, api.New(st), "/api/v1/records?log_type=AppLogs")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []api.RecordResponse
	decode(t, rr, &resp)

	if len(resp) != 1 {
		t.Fatalf("len: got %d, want 1", len(resp))
	}
	r := resp[0]
	if r.LogType != "AppLogs" || r.Level != "ERROR" || r.Message != "boom" {
		t.Errorf("record: got %+v", r)
	}
	if r.LineNumber != 87 || r.ProcessPID != 4242 || r.FuncName != "worker.run" {
		t.Errorf("source fields: got %+v", r)
	}
}

func TestRecords_FilterByLogType(t *testing.T) {
	st := newStore()
	st.Put("AppLogs", rec("INFO", "a"))
	st.Put("Audit", rec("INFO", "b"), rec("INFO", "c"))

	h := api.New(st)

	var audit []api.RecordResponse
	decode(t, get(t, h, "/api/v1/records?log_type=Audit"), &audit)
	if len(audit) != 2 {
		t.Errorf("Audit: got %d records, want 2", len(audit))
	}

	var all []api.RecordResponse
	decode(t, get(t, h, "/api/v1/records"), &all)
	if len(all) != 3 {
		t.Errorf("all: got %d records, want 3", len(all))
	}

	var none []api.RecordResponse
	decode(t, get(t, h, "/api/v1/records?log_type=Missing"), &none)
	if len(none) != 0 {
		t.Errorf("Missing: got %d records, want 0", len(none))
	}
}

func TestRecords_LimitKeepsNewest(t *testing.T) {
	st := newStore()
	for i := 0; i < 10; i++ {
		st.Put("AppLogs", rec("INFO", fmt.Sprintf("m%d", i)))
	}

	var resp []api.RecordResponse
	decode(t, get(t, api.New(st), "/api/v1/records?log_type=AppLogs&limit=3"), &resp)

	if len(resp) != 3 {
		t.Fatalf("len: got %d, want 3", len(resp))
	}
	if resp[0].Message != "m7" || resp[2].Message != "m9" {
		t.Errorf("messages: got %q..%q, want m7..m9", resp[0].Message, resp[2].Message)
	}
}

func TestRecords_LimitKeepsNewestAcrossLogTypes(t *testing.T) {
	st := newStore()
	st.Put("Zeta", rec("INFO", "old-zeta"))
	st.Put("Alpha", rec("INFO", "newest-alpha"))

	var resp []api.RecordResponse
	decode(t, get(t, api.New(st), "/api/v1/records?limit=1"), &resp)

	if len(resp) != 1 {
		t.Fatalf("len: got %d, want 1", len(resp))
	}
	if resp[0].Message != "newest-alpha" {
		t.Errorf("message: got %q, want newest-alpha", resp[0].Message)
	}
}

func TestRecords_InvalidLimit(t *testing.T) {
	h := api.New(newStore())
	for _, q := range []string{"limit=0", "limit=-1", "limit=abc"} {
		rr := get(t, h, "/api/v1/records?"+q)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want 400", q, rr.Code)
		}
	}
}

func TestRecords_ContentType(t *testing.T) {
	rr := get(t, api.New(newStore()), "/api/v1/records")
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
}
