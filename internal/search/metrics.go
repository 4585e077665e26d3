package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts search work. A nil *Metrics records nothing.
type Metrics struct {
	visited  *prometheus.CounterVec
	pruned   *prometheus.CounterVec
	frontier *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

// NewMetrics registers the search metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		visited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linverify_configs_visited_total",
			Help: "Configurations added to a search frontier",
		}, []string{"tracker"}),
		pruned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linverify_configs_pruned_total",
			Help: "Configurations discarded because an equal configuration was already visited",
		}, []string{"tracker"}),
		frontier: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linverify_frontier_size",
			Help:    "Frontier size after each history event",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"tracker"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linverify_checks_total",
			Help: "Completed checks by outcome",
		}, []string{"tracker", "result"}),
	}
}

func (m *Metrics) visit(kind string, added bool) {
	if m == nil {
		return
	}
	if added {
		m.visited.WithLabelValues(kind).Inc()
	} else {
		m.pruned.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) observeFrontier(kind string, n int) {
	if m == nil {
		return
	}
	m.frontier.WithLabelValues(kind).Observe(float64(n))
}

func (m *Metrics) result(kind string, valid bool) {
	if m == nil {
		return
	}
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	m.results.WithLabelValues(kind, outcome).Inc()
}
