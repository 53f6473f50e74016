package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"dropout/internal/enrollment"
)

const namespace = "dropout"

// Run outcomes recorded on the runs counter.
const (
	ResultSuccess = "success"
	ResultDryRun  = "dry_run"
	ResultSkipped = "skipped"
	ResultNoData  = "no_data"
	ResultError   = "error"
)

// Metrics holds the collectors for dropout runs on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	Checked     prometheus.Counter
	Dropped     prometheus.Counter
	Excluded    prometheus.Counter
	Runs        *prometheus.CounterVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// New registers the dropout collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Checked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "enrollments_checked_total",
			Help: "Enrollments evaluated for dropout.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "enrollments_dropped_total",
			Help: "Enrollments transitioned to DROPOUT.",
		}),
		Excluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "enrollments_excluded_total",
			Help: "Enrollments kept because of an in-progress exam or a submission waiting review.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Dropout runs by outcome.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Wall-clock duration of dropout runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last committed run.",
		}),
	}
	reg.MustRegister(
		m.Checked, m.Dropped, m.Excluded, m.Runs, m.Duration, m.LastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records a finished run. Counters only move for committed runs so
// dry runs do not inflate totals.
func (m *Metrics) Observe(res enrollment.Result, outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	if res.Elapsed > 0 {
		m.Duration.Observe(res.Elapsed.Seconds())
	}
	if outcome != ResultSuccess {
		return
	}
	m.Checked.Add(float64(res.Checked))
	m.Dropped.Add(float64(res.Dropped))
	m.Excluded.Add(float64(res.Excluded()))
	m.LastSuccess.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to a Pushgateway under the enrollments_dropout job.
func (m *Metrics) Push(ctx context.Context, url, instance string) error {
	return push.New(url, "enrollments_dropout").
		Gatherer(m.registry).
		Grouping("instance", instance).
		PushContext(ctx)
}
