package shipper

import (
	"sync"
	"time"

	"github.com/obsidianstack/logship/pkg/types"
)

// DeliveryState is the delivery history of one pending record.
type DeliveryState struct {
	Attempts    int
	LastStatus  int // 0 when no response was received
	LastError   string
	LastAttempt time.Time
}

// Queue is the in-memory list of records awaiting acknowledgement.
// All methods are safe for concurrent use; no lock is held during I/O.
type Queue struct {
	mu      sync.Mutex
	records []types.Record
	state   map[string]*DeliveryState
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{state: make(map[string]*DeliveryState)}
}

// Add appends rec to the tail of the queue.
func (q *Queue) Add(rec types.Record) {
	q.mu.Lock()
	q.records = append(q.records, rec)
	q.state[rec.ID] = &DeliveryState{}
	q.mu.Unlock()
}

// Snapshot returns a copy of the pending records in enqueue order. Records
// added afterwards are not part of the returned slice.
func (q *Queue) Snapshot() []types.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]types.Record, len(q.records))
	copy(out, q.records)
	return out
}

// Settle applies one cycle's outcomes: acknowledged records are removed by
// ID, all others get their delivery state updated and stay in place.
// It returns the number of records removed.
func (q *Queue) Settle(outcomes []Outcome, at time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	acked := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		st, ok := q.state[o.RecordID]
		if !ok {
			continue
		}
		if o.Acknowledged() {
			acked[o.RecordID] = struct{}{}
			continue
		}
		st.Attempts++
		st.LastStatus = o.StatusCode
		st.LastAttempt = at
		st.LastError = ""
		if o.Err != nil {
			st.LastError = o.Err.Error()
		}
	}
	if len(acked) == 0 {
		return 0
	}

	kept := q.records[:0]
	for _, rec := range q.records {
		if _, ok := acked[rec.ID]; ok {
			delete(q.state, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}
	// Clear the tail so removed records can be collected.
	for i := len(kept); i < len(q.records); i++ {
		q.records[i] = types.Record{}
	}
	removed := len(q.records) - len(kept)
	q.records = kept
	return removed
}

// Len returns the number of pending records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// State returns the delivery state of a pending record.
func (q *Queue) State(id string) (DeliveryState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.state[id]
	if !ok {
		return DeliveryState{}, false
	}
	return *st, true
}
