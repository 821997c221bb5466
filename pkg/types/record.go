package types

import (
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the RFC-1123 form used for both the record time field and the
// x-ms-date header. It is always rendered in UTC.
const TimeLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Fields are the semantic attributes of one log event. The JSON encoding is
// the request body sent to the ingestion endpoint, so only these ten keys are
// serialized.
type Fields struct {
	Level       string `json:"level"`
	Time        string `json:"time"`
	Message     string `json:"message"`
	Module      string `json:"module"`
	FileName    string `json:"file_name"`
	LineNumber  int    `json:"line_number"`
	ThreadName  string `json:"thread_name"`
	ProcessName string `json:"process_name"`
	ProcessPID  int    `json:"process_pid"`
	FuncName    string `json:"func_name"`

	// LogType overrides the configured default Log-Type header for this
	// record. It is routing metadata and never part of the body.
	LogType string `json:"-"`
}

// Record is one queued log event. It is never modified after creation;
// delivery progress is tracked separately, keyed by ID.
type Record struct {
	ID string
	Fields
}

// NewRecord wraps fields in a Record with a fresh random ID.
func NewRecord(f Fields) Record {
	return Record{ID: uuid.NewString(), Fields: f}
}

// FormatTime renders t in the RFC-1123 GMT layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
