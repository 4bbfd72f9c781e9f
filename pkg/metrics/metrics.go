// Package metrics records wizard submissions and step progress as
// Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

const (
	OutcomeResolved = "resolved"
	OutcomeRejected = "rejected"
)

// Metrics holds the collectors shared by every instrumented form.
type Metrics struct {
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inflight    *prometheus.GaugeVec
	step        *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "multistep_submissions_total",
			Help: "Final submissions by flow and outcome.",
		}, []string{"flow", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "multistep_submission_duration_seconds",
			Help:    "Time from submit to settlement.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "multistep_submissions_in_flight",
			Help: "Submissions started but not yet settled.",
		}, []string{"flow"}),
		step: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "multistep_active_step",
			Help: "Zero-based index of the step currently shown.",
		}, []string{"flow"}),
	}
	for _, c := range []prometheus.Collector{m.submissions, m.duration, m.inflight, m.step} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return m, nil
}

// Instrument wraps handler so each submission is counted once, by its first
// settlement.
func (m *Metrics) Instrument(flow string, handler wizard.SubmitHandler) wizard.SubmitHandler {
	if handler == nil {
		return nil
	}
	return func(ctx context.Context, req wizard.SubmitRequest) (err error) {
		start := time.Now()
		m.inflight.WithLabelValues(flow).Inc()

		var once sync.Once
		record := func(outcome string) {
			once.Do(func() {
				m.inflight.WithLabelValues(flow).Dec()
				m.submissions.WithLabelValues(flow, outcome).Inc()
				m.duration.WithLabelValues(flow).Observe(time.Since(start).Seconds())
			})
		}

		wrapped := wizard.SubmitRequest{
			Values: req.Values,
			Resolve: func() {
				record(OutcomeResolved)
				req.Resolve()
			},
			Reject: func(cause ...any) {
				record(OutcomeRejected)
				req.Reject(cause...)
			},
		}
		defer func() {
			if r := recover(); r != nil {
				record(OutcomeRejected)
				panic(r)
			}
			if err != nil {
				record(OutcomeRejected)
			}
		}()
		return handler(ctx, wrapped)
	}
}

// Observe returns a wizard.WithOnChange listener tracking the active step.
func (m *Metrics) Observe(flow string) func(wizard.Snapshot) {
	return func(s wizard.Snapshot) {
		m.step.WithLabelValues(flow).Set(float64(s.Index))
	}
}
