package trigger

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultLocked  = "locked"
)

// Metrics records sync job outcomes in Prometheus collectors
type Metrics struct {
	runs        *prometheus.CounterVec
	transitions *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	warnings    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the sync collectors on reg, or on the default registerer when reg is nil.
// Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleet_sync_runs_total",
		Help: "Number of sync job runs by outcome",
	}, []string{"job", "result"})
	if err != nil {
		return nil, err
	}
	transitions, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleet_sync_transitions_total",
		Help: "Number of derived state transitions written by sync jobs",
	}, []string{"job", "entity_kind"})
	if err != nil {
		return nil, err
	}
	skipped, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleet_sync_skipped_total",
		Help: "Number of entities skipped because of a per-entity failure",
	}, []string{"job"})
	if err != nil {
		return nil, err
	}
	warnings, err := registerCounterVec(reg, prometheus.CounterOpts{
		Name: "fleet_sync_warnings_total",
		Help: "Number of warnings reported by sync jobs",
	}, []string{"job"})
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_sync_run_duration_seconds",
		Help:    "Wall time of sync job runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	return &Metrics{
		runs:        runs,
		transitions: transitions,
		skipped:     skipped,
		warnings:    warnings,
		duration:    duration,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		return are.ExistingCollector.(*prometheus.CounterVec), nil
	}
	return c, nil
}

func (m *Metrics) observeRun(job, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, result).Inc()
	if result != resultLocked {
		m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeSummary(s *fleetsync.Summary) {
	if m == nil {
		return
	}
	for _, t := range s.Transitions {
		m.transitions.WithLabelValues(s.Job, t.EntityKind).Inc()
	}
	m.skipped.WithLabelValues(s.Job).Add(float64(s.Skipped))
	m.warnings.WithLabelValues(s.Job).Add(float64(len(s.Warnings)))
}
