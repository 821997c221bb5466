package shipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/logship/pkg/types"
)

// doerFunc adapts a function to the Doer interface.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// countingDoer records the peak number of concurrent Do calls.
type countingDoer struct {
	inflight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	delay    time.Duration
	status   int
}

func (d *countingDoer) Do(_ *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	n := d.inflight.Add(1)
	defer d.inflight.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(d.delay)
	return response(d.status, ""), nil
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func noopTelemetry(t *testing.T) *telemetry {
	t.Helper()
	tel, err := newTelemetry(nil, nil, func() int { return 0 })
	require.NoError(t, err)
	return tel
}

func buildBatch(t *testing.T, n int) []Request {
	t.Helper()
	b := NewBuilder(testSigner(t), testBaseURL, "AppLogs", nil)
	reqs := make([]Request, 0, n)
	for i := 0; i < n; i++ {
		f := sampleFields()
		f.Message = fmt.Sprintf("msg-%d", i)
		req, err := b.Build(context.Background(), types.NewRecord(f))
		require.NoError(t, err)
		reqs = append(reqs, req)
	}
	return reqs
}

func TestDispatcher_RespectsConcurrencyLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		n     int
	}{
		{"limit 1", 1, 5},
		{"limit 3", 3, 20},
		{"limit above batch", 50, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doer := &countingDoer{delay: 15 * time.Millisecond, status: http.StatusOK}
			d := newDispatcher(doer, tc.limit, nil, slog.Default(), noopTelemetry(t))

			outcomes := d.Dispatch(context.Background(), buildBatch(t, tc.n))

			require.Len(t, outcomes, tc.n)
			assert.EqualValues(t, tc.n, doer.calls.Load())
			assert.LessOrEqual(t, int(doer.peak.Load()), tc.limit)
			assert.GreaterOrEqual(t, int(doer.peak.Load()), 1)
			for _, o := range outcomes {
				assert.True(t, o.Acknowledged())
			}
		})
	}
}

func TestDispatcher_OutcomesAlignWithRequests(t *testing.T) {
	reqs := buildBatch(t, 6)
	statuses := []int{200, 201, 204, 400, 500, 503}
	statusByMessage := make(map[string]int, len(reqs))
	for i, r := range reqs {
		statusByMessage[r.Record.Message] = statuses[i]
	}

	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		var f types.Fields
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return nil, err
		}
		return response(statusByMessage[f.Message], "rejected"), nil
	})

	d := newDispatcher(doer, 2, nil, slog.Default(), noopTelemetry(t))
	outcomes := d.Dispatch(context.Background(), reqs)

	require.Len(t, outcomes, len(reqs))
	for i, o := range outcomes {
		assert.Equal(t, reqs[i].Record.ID, o.RecordID)
		assert.Equal(t, statuses[i], o.StatusCode)
		if o.StatusCode >= 300 {
			var se *StatusError
			require.ErrorAs(t, o.Err, &se)
			assert.Equal(t, o.StatusCode, se.StatusCode)
			assert.Equal(t, "rejected", se.Body)
			assert.False(t, o.Acknowledged())
		} else {
			assert.NoError(t, o.Err)
			assert.True(t, o.Acknowledged())
		}
	}
}

func TestDispatcher_TransportErrorHasNoStatus(t *testing.T) {
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	var hookCalls atomic.Int32
	hook := func(_ types.Record, err error) {
		hookCalls.Add(1)
		assert.ErrorContains(t, err, "connection refused")
	}

	d := newDispatcher(doer, 4, hook, slog.Default(), noopTelemetry(t))
	outcomes := d.Dispatch(context.Background(), buildBatch(t, 3))

	for _, o := range outcomes {
		assert.Equal(t, 0, o.StatusCode)
		assert.Error(t, o.Err)
		assert.False(t, o.Acknowledged())
	}
	assert.EqualValues(t, 3, hookCalls.Load())
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	var n atomic.Int32
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		if n.Add(1) == 1 {
			panic("transport bug")
		}
		return response(http.StatusOK, ""), nil
	})

	d := newDispatcher(doer, 1, nil, slog.Default(), noopTelemetry(t))
	outcomes := d.Dispatch(context.Background(), buildBatch(t, 3))

	var failed, acked int
	for _, o := range outcomes {
		if o.Acknowledged() {
			acked++
		} else {
			failed++
			assert.ErrorContains(t, o.Err, "transport bug")
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, acked)
}

func TestDispatcher_PanickingErrorHandlerIsContained(t *testing.T) {
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		return response(http.StatusInternalServerError, "down"), nil
	})
	hook := func(types.Record, error) { panic("hook bug") }

	d := newDispatcher(doer, 2, hook, slog.Default(), noopTelemetry(t))
	outcomes := d.Dispatch(context.Background(), buildBatch(t, 2))

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, http.StatusInternalServerError, o.StatusCode)
		assert.False(t, o.Acknowledged())
	}
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	d := newDispatcher(&countingDoer{status: 200}, 2, nil, slog.Default(), noopTelemetry(t))
	assert.Empty(t, d.Dispatch(context.Background(), nil))
}
