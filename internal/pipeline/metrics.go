package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/enade/internal/core"
)

const namespace = "enade"

// Metrics are the Prometheus collectors of the run driver. A nil *Metrics
// records nothing.
type Metrics struct {
	files       *prometheus.CounterVec
	rowsRead    prometheus.Counter
	rowsDropped *prometheus.CounterVec
	rowsKept    prometheus.Counter
	rowsWritten *prometheus.CounterVec
	runs        *prometheus.HistogramVec
	active      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Source files processed, by outcome.",
		}, []string{"status"}),
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Rows read from source files.",
		}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by the transform filters, by reason.",
		}, []string{"reason"}),
		rowsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_kept_total",
			Help:      "Rows surviving the transform filters.",
		}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to the output, by format.",
		}, []string{"format"}),
		runs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of pipeline runs, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Pipeline runs in progress.",
		}),
	}

	reg.MustRegister(m.files, m.rowsRead, m.rowsDropped, m.rowsKept, m.rowsWritten, m.runs, m.active)
	return m
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) runFinished(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.runs.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
}

func (m *Metrics) fileProcessed(ext core.ExtractStats, st core.TransformStats, err error) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome(err)).Inc()
	m.rowsRead.Add(float64(ext.Rows))
	m.rowsDropped.WithLabelValues("not_eligible").Add(float64(st.NotEligible))
	m.rowsDropped.WithLabelValues("not_present").Add(float64(st.NotPresent))
	m.rowsKept.Add(float64(st.Kept))
}

func (m *Metrics) rowsLoaded(format string, n int) {
	if m == nil {
		return
	}
	m.rowsWritten.WithLabelValues(format).Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}
