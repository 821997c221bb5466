package metrics

import (
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/logship/agent/internal/shipper"
)

// StatsSource reports cumulative delivery counters. *shipper.Shipper
// satisfies it.
type StatsSource interface {
	Stats() shipper.Stats
}

// Families converts a stats snapshot into Prometheus metric families.
func Families(s shipper.Stats) []*dto.MetricFamily {
	return []*dto.MetricFamily{
		counter("logship_records_enqueued_total", "Records accepted by Enqueue.", float64(s.Enqueued)),
		counter("logship_records_delivered_total", "Records acknowledged with a 2xx response and removed from the queue.", float64(s.Delivered)),
		counter("logship_delivery_failures_total", "Failed delivery attempts; each failed record is retried next cycle.", float64(s.FailedAttempts)),
		counter("logship_cycles_total", "Delivery cycles run by the worker.", float64(s.Cycles)),
		gauge("logship_queue_pending", "Records awaiting acknowledgement.", float64(s.Pending)),
	}
}

// Handler serves the text exposition of src's counters.
func Handler(src StatsSource) http.Handler {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range Families(src.Stats()) {
			if err := enc.Encode(mf); err != nil {
				return
			}
		}
	})
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: ptr(v)}}},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(v)}}},
	}
}

func ptr[T any](v T) *T { return &v }
