package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	RecordCount   int    `json:"record_count"`
	AcceptedTotal uint64 `json:"accepted_total"`
	LogTypeCount  int    `json:"log_type_count"`
}

// LogTypeResponse is one entry in GET /api/v1/log-types.
type LogTypeResponse struct {
	Name        string `json:"name"`
	RecordCount int    `json:"record_count"`
	LastSeen    string `json:"last_seen"` // RFC3339
}

// RecordResponse is one stored record in GET /api/v1/records. It carries
// the ten workspace fields plus the table it landed in.
type RecordResponse struct {
	LogType     string `json:"log_type"`
	ReceivedAt  string `json:"received_at"` // RFC3339
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
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
