package receiver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/valyala/fastjson"

	"github.com/obsidianstack/logship/pkg/types"
	"github.com/obsidianstack/logship/server/internal/store"
)

// APIVersion is the only api-version query value accepted.
const APIVersion = "2016-04-01"

// maxBodyBytes caps the body read when the auth middleware is disabled.
const maxBodyBytes = 30 << 20

// Log-Type names are letters, digits and underscores, at most 100 long.
var logTypePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,100}$`)

// Receiver is the POST /api/logs handler. It validates the request shape,
// parses a JSON object or array of objects, and stores every record under
// its Log-Type. Authentication is enforced upstream by the auth middleware.
type Receiver struct {
	store     *store.Store
	parser    fastjson.ParserPool
	failFirst int64
	calls     atomic.Int64
	publisher Publisher
}

// Publisher is notified of every batch of accepted records.
type Publisher interface {
	Publish(entries []*store.Entry)
}

// New creates a Receiver that writes accepted records to st. The first
// failFirst valid requests are answered with HTTP 500.
func New(st *store.Store, failFirst int) *Receiver {
	return &Receiver{store: st, failFirst: int64(failFirst)}
}

// SetPublisher registers p to receive accepted records. It must be called
// before the Receiver serves requests.
func (rc *Receiver) SetPublisher(p Publisher) {
	rc.publisher = p
}

func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "only POST is supported")
		return
	}
	if v := r.URL.Query().Get("api-version"); v != APIVersion {
		writeError(w, http.StatusBadRequest, "InvalidApiVersion", "api-version must be "+APIVersion)
		return
	}
	logType := r.Header.Get("Log-Type")
	if !logTypePattern.MatchString(logType) {
		writeError(w, http.StatusBadRequest, "InvalidLogType", "Log-Type must be 1-100 letters, digits or underscores")
		return
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusBadRequest, "UnsupportedContentType", "Content-Type must be application/json")
		return
	}

	if n := rc.calls.Add(1); n <= rc.failFirst {
		slog.Debug("receiver: injected failure", "call", n, "fail_first", rc.failFirst)
		writeError(w, http.StatusInternalServerError, "ServiceError", "injected failure")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "failed to read body")
		return
	}

	p := rc.parser.Get()
	defer rc.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidDataFormat", "body is not valid JSON: "+err.Error())
		return
	}

	var records []types.Fields
	switch v.Type() {
	case fastjson.TypeObject:
		records = append(records, toFields(v))
	case fastjson.TypeArray:
		arr, _ := v.Array()
		for _, item := range arr {
			if item.Type() != fastjson.TypeObject {
				writeError(w, http.StatusBadRequest, "InvalidDataFormat", "array elements must be JSON objects")
				return
			}
			records = append(records, toFields(item))
		}
	default:
		writeError(w, http.StatusBadRequest, "InvalidDataFormat", "body must be a JSON object or array of objects")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, "InvalidDataFormat", "no records in body")
		return
	}

	added := rc.store.Put(logType, records...)
	if rc.publisher != nil {
		rc.publisher.Publish(added)
	}

	slog.Debug("receiver: records stored",
		"log_type", logType,
		"count", len(records),
	)

	w.WriteHeader(http.StatusOK)
}

// toFields reads the workspace fields from a parsed object. Missing keys
// stay zero; unknown keys are ignored.
func toFields(v *fastjson.Value) types.Fields {
	return types.Fields{
		Level:       string(v.GetStringBytes("level")),
		Time:        string(v.GetStringBytes("time")),
		Message:     string(v.GetStringBytes("message")),
		Module:      string(v.GetStringBytes("module")),
		FileName:    string(v.GetStringBytes("file_name")),
		LineNumber:  v.GetInt("line_number"),
		ThreadName:  string(v.GetStringBytes("thread_name")),
		ProcessName: string(v.GetStringBytes("process_name")),
		ProcessPID:  v.GetInt("process_pid"),
		FuncName:    string(v.GetStringBytes("func_name")),
	}
}

type errorResponse struct {
	Error   string `json:"Error"`
	Message string `json:"Message"`
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: errCode, Message: msg}) //nolint:errcheck
}
