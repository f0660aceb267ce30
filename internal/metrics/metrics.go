package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serverSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "javaward",
			Subsystem: "server",
			Name:      "spawns_total",
			Help:      "Number of successful server process spawns.",
		}, []string{"server_id"},
	)
	serverStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "javaward",
			Subsystem: "server",
			Name:      "stops_total",
			Help:      "Number of server stops (graceful or killed).",
		}, []string{"server_id"},
	)
	serverCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "javaward",
			Subsystem: "server",
			Name:      "crashes_total",
			Help:      "Number of unexpected server exits.",
		}, []string{"server_id"},
	)
	serverRestores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "javaward",
			Subsystem: "server",
			Name:      "restores_total",
			Help:      "Number of servers re-attached from pidfiles at startup.",
		}, []string{"server_id"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "javaward",
			Subsystem: "server",
			Name:      "state_transitions_total",
			Help:      "Number of status transitions between server states.",
		}, []string{"server_id", "from", "to"},
	)
	runningServers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "javaward",
			Subsystem: "server",
			Name:      "running",
			Help:      "Current number of supervised server processes.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serverSpawns, serverStops, serverCrashes, serverRestores, stateTransitions, runningServers}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving metrics from the default gatherer.
// The caller wires the route and runs the server.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncSpawn(id string) {
	if regOK.Load() {
		serverSpawns.WithLabelValues(id).Inc()
	}
}

func IncStop(id string) {
	if regOK.Load() {
		serverStops.WithLabelValues(id).Inc()
	}
}

func IncCrash(id string) {
	if regOK.Load() {
		serverCrashes.WithLabelValues(id).Inc()
	}
}

func IncRestore(id string) {
	if regOK.Load() {
		serverRestores.WithLabelValues(id).Inc()
	}
}

func RecordStateTransition(id, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(id, from, to).Inc()
	}
}

func SetRunningServers(n int) {
	if regOK.Load() {
		runningServers.Set(float64(n))
	}
}
