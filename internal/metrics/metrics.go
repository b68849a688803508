// Package metrics exposes Prometheus counters for relationship mutations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts mutation outcomes.
type Metrics struct {
	// Mutations by operation and outcome ("ok" or "rejected")
	Mutations *prometheus.CounterVec

	// Rejections and failures by stable reason code
	Rejections *prometheus.CounterVec
}

// New registers the counters on reg. Pass prometheus.NewRegistry() in tests
// to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_mutations_total",
			Help: "Relationship mutations by operation and outcome",
		}, []string{"op", "outcome"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_mutation_rejections_total",
			Help: "Rejected or failed relationship mutations by reason code",
		}, []string{"code"}),
	}
}

// ObserveMutation records one outcome. An empty code means success.
func (m *Metrics) ObserveMutation(op, code string) {
	if m == nil {
		return
	}
	if code == "" {
		m.Mutations.WithLabelValues(op, "ok").Inc()
		return
	}
	m.Mutations.WithLabelValues(op, "rejected").Inc()
	m.Rejections.WithLabelValues(code).Inc()
}
