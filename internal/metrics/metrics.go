// Package metrics records reconciliation outcomes as Prometheus metrics. A run is a
// short-lived batch job, so the registry is pushed to a Pushgateway when the run ends
// rather than scraped.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/reconcile"
)

const namespace = "fiscal"

// Config represents metrics configuration.
type Config struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url"`
	Job            string `mapstructure:"job" yaml:"job"`
}

// Enabled reports whether a push target is configured.
func (c Config) Enabled() bool {
	return c.PushgatewayURL != ""
}

// Recorder implements reconcile.Recorder on a private registry.
type Recorder struct {
	workflow string
	registry *prometheus.Registry

	records     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.GaugeVec
	runDuration prometheus.Gauge
	lastSuccess prometheus.Gauge
	runsTotal   *prometheus.CounterVec

	last *reconcile.Result
}

var _ reconcile.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder for one workflow run. The workflow name is carried by
// the Pushgateway grouping key, so the series themselves have no workflow label.
func NewRecorder(workflow string) *Recorder {
	r := &Recorder{
		workflow: workflow,
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records written per entity type and outcome",
		}, []string{"entity", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Sub-requests rejected by the list store",
		}, []string{"entity", "kind"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entity_duration_seconds",
			Help:      "Time spent reconciling an entity type",
		}, []string{"entity"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run without failures",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by status",
		}, []string{"status"}),
	}
	r.registry.MustRegister(r.records, r.failures, r.duration, r.runDuration, r.lastSuccess, r.runsTotal)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordEntity implements reconcile.Recorder.
func (r *Recorder) RecordEntity(_ string, e *reconcile.EntityResult) {
	if e == nil {
		return
	}
	outcomes := map[string]int{
		"inserted":       e.Inserted,
		"updated":        e.Updated,
		"closed":         e.Closed,
		"already_closed": e.AlreadyClosed,
		"unchanged":      e.Unchanged,
	}
	for outcome, n := range outcomes {
		r.records.WithLabelValues(e.Name, outcome).Add(float64(n))
	}
	r.failures.WithLabelValues(e.Name, "rejected").Add(float64(e.Failed))
	r.failures.WithLabelValues(e.Name, "transient").Add(float64(e.Transient))
	r.duration.WithLabelValues(e.Name).Set(e.Duration.Seconds())
}

// RecordRun implements reconcile.Recorder.
func (r *Recorder) RecordRun(res *reconcile.Result) {
	if res == nil {
		return
	}
	r.runDuration.Set(res.Duration.Seconds())
	r.last = res
}

// Finish counts the run by status. err is the error the run returned.
func (r *Recorder) Finish(err error) string {
	status := "success"
	switch {
	case err != nil:
		status = "failed"
	case r.last == nil:
	case r.last.DryRun:
		status = "dry_run"
	default:
		if totals := r.last.Totals(); totals.Failed+totals.Transient > 0 {
			status = "partial"
		}
	}
	r.runsTotal.WithLabelValues(status).Inc()
	if status == "success" && r.last != nil {
		r.lastSuccess.Set(float64(r.last.StartTime.Add(r.last.Duration).Unix()))
	}
	return status
}

// Push sends the registry to the Pushgateway, replacing the job's previous metrics.
func (r *Recorder) Push(ctx context.Context, cfg Config) error {
	if !cfg.Enabled() {
		return nil
	}
	job := cfg.Job
	if job == "" {
		job = namespace
	}
	err := push.New(cfg.PushgatewayURL, job).
		Grouping("workflow", r.workflow).
		Gatherer(r.registry).
		PushContext(ctx)
	if err != nil {
		return pkgerrors.WrapResource("push", "pushgateway", cfg.PushgatewayURL, err)
	}
	return nil
}
