package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/logship/pkg/types"
)

// Entry is one accepted record together with its table and arrival time.
type Entry struct {
	LogType    string
	Fields     types.Fields
	ReceivedAt time.Time

	seq uint64 // arrival order across groups
}

// Store is a thread-safe in-memory record store, grouped by Log-Type.
// Each group keeps at most limit entries in arrival order. A background
// goroutine (Run) periodically evicts entries older than the TTL.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]*Entry
	ttl   time.Duration
	limit int
	total uint64
	now   func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL and per Log-Type cap.
func New(ttl time.Duration, limit int) *Store {
	return &Store{
		data:  make(map[string][]*Entry),
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
	}
}

// Put appends records to the logType group, dropping the oldest entries
// once the group exceeds its cap. It returns the entries added.
func (s *Store) Put(logType string, records ...types.Fields) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.now()
	group := s.data[logType]
	added := make([]*Entry, 0, len(records))
	for _, f := range records {
		s.total++
		e := &Entry{LogType: logType, Fields: f, ReceivedAt: at, seq: s.total}
		group = append(group, e)
		added = append(added, e)
	}
	if over := len(group) - s.limit; over > 0 {
		group = append([]*Entry(nil), group[over:]...)
	}
	s.data[logType] = group
	return added
}

// List returns live entries of logType in arrival order. An empty logType
// merges every group, still in arrival order.
func (s *Store) List(logType string) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)

	var names []string
	if logType != "" {
		names = []string{logType}
	} else {
		names = s.logTypesLocked()
	}

	out := make([]*Entry, 0)
	for _, name := range names {
		for _, e := range s.data[name] {
			if e.ReceivedAt.After(cutoff) {
				out = append(out, e)
			}
		}
	}
	if len(names) > 1 {
		sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	}
	return out
}

// LogTypes returns the names of all groups currently held, sorted.
func (s *Store) LogTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logTypesLocked()
}

func (s *Store) logTypesLocked() []string {
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, group := range s.data {
		n += len(group)
	}
	return n
}

// Total returns the number of records accepted since start.
func (s *Store) Total() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// TTL returns the configured retention.
func (s *Store) TTL() time.Duration { return s.ttl }

// Evict removes entries whose ReceivedAt is older than now minus TTL.
// Empty groups are dropped. It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for name, group := range s.data {
		// Entries are in arrival order, so stale ones form a prefix.
		i := 0
		for i < len(group) && !group[i].ReceivedAt.After(cutoff) {
			i++
		}
		if i == 0 {
			continue
		}
		removed += i
		if i == len(group) {
			delete(s.data, name)
			continue
		}
		s.data[name] = append([]*Entry(nil), group[i:]...)
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale records", "count", n)
			}
		}
	}
}
