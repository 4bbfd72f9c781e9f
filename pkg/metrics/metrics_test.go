package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-multistep/pkg/metrics"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

func blankPage() wizard.Page {
	return wizard.PageFunc(func(context.Context, wizard.Props) ([]byte, error) { return nil, nil })
}

func TestInstrument_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	fail := true
	handler := m.Instrument("signup", func(_ context.Context, req wizard.SubmitRequest) error {
		if fail {
			fail = false
			return errors.New("offline")
		}
		req.Resolve()
		req.Reject("ignored")
		return nil
	})
	form, err := wizard.New([]wizard.Page{blankPage(), blankPage()},
		wizard.WithSubmitHandler(handler),
		wizard.WithOnChange(m.Observe("signup")),
	)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}

	ctx := context.Background()
	if sub := form.Submit(nil); sub != nil {
		t.Fatalf("expected first step to advance without submission")
	}
	if err := form.Submit(nil).Wait(ctx); err == nil {
		t.Fatalf("expected first submission to fail")
	}
	if err := form.Submit(nil).Wait(ctx); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	if got := sampleValue(t, reg, "multistep_submissions_total", map[string]string{"flow": "signup", "outcome": metrics.OutcomeResolved}); got != 1 {
		t.Fatalf("expected one resolved submission, got %v", got)
	}
	if got := sampleValue(t, reg, "multistep_submissions_total", map[string]string{"flow": "signup", "outcome": metrics.OutcomeRejected}); got != 1 {
		t.Fatalf("expected one rejected submission, got %v", got)
	}
	if got := gaugeValue(t, reg, "multistep_submissions_in_flight"); got != 0 {
		t.Fatalf("expected no submissions in flight, got %v", got)
	}
	if got := gaugeValue(t, reg, "multistep_active_step"); got != 1 {
		t.Fatalf("expected active step 1, got %v", got)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := metrics.New(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := metrics.New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestInstrument_NilHandler(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	if m.Instrument("x", nil) != nil {
		t.Fatalf("expected nil handler to stay nil")
	}
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	return sampleValue(t, reg, name, map[string]string{"flow": "signup"})
}

func sampleValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}
