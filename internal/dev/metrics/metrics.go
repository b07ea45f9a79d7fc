// Package metrics exposes the leader's Prometheus instrumentation, grounded
// on the promauto/promhttp pattern dshills-langgraph-go uses to instrument
// its own LLM graph executor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters the leader session and its collaborators
// increment over the life of a `supergraph dev` run. WatcherRetries and
// WatcherRemovals are registered, but no watcher increments them.
type Metrics struct {
	Compositions      *prometheus.CounterVec
	RouterRestarts    prometheus.Counter
	RouterKills       prometheus.Counter
	WatcherRetries    *prometheus.CounterVec
	WatcherRemovals   *prometheus.CounterVec
	RegistrySize      prometheus.Gauge
}

// New registers a fresh set of metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Compositions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supergraph_dev_compositions_total",
			Help: "Number of composition attempts, labeled by outcome.",
		}, []string{"outcome"}),
		RouterRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "supergraph_dev_router_restarts_total",
			Help: "Number of times the router child process was (re)spawned.",
		}),
		RouterKills: factory.NewCounter(prometheus.CounterOpts{
			Name: "supergraph_dev_router_kills_total",
			Help: "Number of router kills issued by leader session shutdown.",
		}),
		WatcherRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supergraph_dev_watcher_retries_total",
			Help: "Number of transport retries consumed by subgraph watchers, labeled by subgraph.",
		}, []string{"subgraph"}),
		WatcherRemovals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supergraph_dev_watcher_removals_total",
			Help: "Number of subgraphs detached after exhausting their retry budget, labeled by subgraph.",
		}, []string{"subgraph"}),
		RegistrySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "supergraph_dev_registry_size",
			Help: "Current number of subgraphs in the leader's registry.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
