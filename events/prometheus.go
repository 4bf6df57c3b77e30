package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus counts events as Prometheus metrics.
type Prometheus struct {
	decisions     *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
}

// NewPrometheus creates an emitter and registers its collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratekit_decisions_total",
			Help: "Rate limit decisions by tier, endpoint, and outcome.",
		}, []string{"tier", "endpoint", "outcome"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratekit_store_failures_total",
			Help: "Store failures absorbed by the failure policy, by tier and mode.",
		}, []string{"tier", "mode"}),
	}

	for _, c := range []prometheus.Collector{p.decisions, p.storeFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Decision(_ context.Context, tier, endpoint string, outcome Outcome) {
	p.decisions.WithLabelValues(tier, endpoint, string(outcome)).Inc()
}

func (p *Prometheus) StoreFailure(_ context.Context, tier, _ string, mode, _ string, _ error) {
	p.storeFailures.WithLabelValues(tier, mode).Inc()
}
