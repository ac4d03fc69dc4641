package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/violation-audit/internal/audit"
)

// Metrics collects per-run audit outcomes for the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	// Score of each audit, -1 when the audit errored
	AuditScore *prometheus.GaugeVec

	// Violations reported per audit
	Violations *prometheus.GaugeVec

	// Audit outcomes by status
	Outcomes *prometheus.CounterVec

	RunDuration prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AuditScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "violation_audit_score",
			Help: "Score of the last run of each audit (1 pass, 0 fail, -1 error)",
		}, []string{"audit"}),

		Violations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "violation_audit_violations",
			Help: "Number of violations reported by the last run of each audit",
		}, []string{"audit"}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "violation_audit_outcomes_total",
			Help: "Audit outcomes by status",
		}, []string{"status"}), // status: "passed", "failed", "errored"

		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "violation_audit_run_duration_seconds",
			Help: "Wall time of the last audit run",
		}),
	}
}

// ObserveResult records a single audit result.
func (m *Metrics) ObserveResult(res audit.Result) {
	if m == nil {
		return
	}

	switch {
	case res.Errored():
		m.AuditScore.WithLabelValues(res.ID).Set(-1)
		m.Outcomes.WithLabelValues("errored").Inc()
	case res.Passed():
		m.AuditScore.WithLabelValues(res.ID).Set(*res.Score)
		m.Outcomes.WithLabelValues("passed").Inc()
	default:
		m.AuditScore.WithLabelValues(res.ID).Set(*res.Score)
		m.Outcomes.WithLabelValues("failed").Inc()
	}
	m.Violations.WithLabelValues(res.ID).Set(float64(len(res.Details.Items)))
}

// ObserveRunDuration records how long the run took.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Set(d.Seconds())
	}
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
