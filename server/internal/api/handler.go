package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/obsidianstack/logship/server/internal/store"
)

// DefaultLimit is the number of records returned when limit is absent.
const DefaultLimit = 100

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads accepted records from the store and returns JSON responses.
type Handler struct {
	store *store.Store
	mux   *http.ServeMux
}

// New creates a Handler wired to the given record store and registers all routes.
func New(st *store.Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/log-types", h.logTypes)
	h.mux.HandleFunc("/api/v1/records", h.records)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: liveness plus record counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildHealth(h.store))
}

// logTypes returns GET /api/v1/log-types, one entry per table with live records.
func (h *Handler) logTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	out := make([]LogTypeResponse, 0)
	for _, name := range h.store.LogTypes() {
		entries := h.store.List(name)
		if len(entries) == 0 {
			continue
		}
		out = append(out, LogTypeResponse{
			Name:        name,
			RecordCount: len(entries),
			LastSeen:    entries[len(entries)-1].ReceivedAt.UTC().Format(time.RFC3339),
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// records returns GET /api/v1/records?log_type=X&limit=N, the newest N live
// records, oldest first. Without log_type every table is included.
func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	limit := DefaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries := h.store.List(q.Get("log_type"))
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	jsonResp(w, http.StatusOK, ToRecordResponses(entries))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// BuildHealth assembles the health payload. It is shared with the
// WebSocket hub, which pushes it on every tick.
func BuildHealth(st *store.Store) HealthResponse {
	return HealthResponse{
		Status:        "ok",
		RecordCount:   len(st.List("")),
		AcceptedTotal: st.Total(),
		LogTypeCount:  len(st.LogTypes()),
	}
}

// ToRecordResponses maps store entries to their JSON representation.
func ToRecordResponses(entries []*store.Entry) []RecordResponse {
	out := make([]RecordResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toRecordResponse(e))
	}
	return out
}

// toRecordResponse maps a store.Entry to its JSON representation.
func toRecordResponse(e *store.Entry) RecordResponse {
	f := e.Fields
	return RecordResponse{
		LogType:     e.LogType,
		ReceivedAt:  e.ReceivedAt.UTC().Format(time.RFC3339),
		Level:       f.Level,
		Time:        f.Time,
		Message:     f.Message,
		Module:      f.Module,
		FileName:    f.FileName,
		LineNumber:  f.LineNumber,
		ThreadName:  f.ThreadName,
		ProcessName: f.ProcessName,
		ProcessPID:  f.ProcessPID,
		FuncName:    f.FuncName,
	}
}
