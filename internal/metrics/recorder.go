// Package metrics exports detection results as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/portalwatch/internal/model"
)

const namespace = "portalwatch"

var allStatuses = []model.PortalStatus{
	model.StatusUnknown,
	model.StatusOffline,
	model.StatusOnline,
	model.StatusPortal,
	model.StatusProxyAuthRequired,
}

// Recorder is a detection observer that keeps Prometheus metrics current.
// Its Observe method can be subscribed directly.
type Recorder struct {
	registry *prometheus.Registry

	status       *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	responseCode prometheus.Gauge
	changes      prometheus.Counter

	mu      sync.Mutex
	network model.NetworkIdentity
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "1 for the current portal status of the active network, 0 otherwise.",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Number of portal state changes, by new status.",
		}, []string{"status"}),
		responseCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_response_code",
			Help:      "HTTP status of the last probe, -1 when no response was received.",
		}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "active_network_changes_total",
			Help:      "Number of times notifications switched to a different network.",
		}),
	}

	r.registry.MustRegister(r.status, r.transitions, r.responseCode, r.changes)
	for _, s := range allStatuses {
		r.status.WithLabelValues(s.String()).Set(0)
		r.transitions.WithLabelValues(s.String())
	}
	r.status.WithLabelValues(model.StatusUnknown.String()).Set(1)
	r.responseCode.Set(model.InvalidResponseCode)
	return r
}

// Observe records one notification.
func (r *Recorder) Observe(network model.NetworkIdentity, state model.PortalState) {
	r.mu.Lock()
	if network != r.network {
		r.network = network
		r.changes.Inc()
	}
	r.mu.Unlock()

	for _, s := range allStatuses {
		v := 0.0
		if s == state.Status {
			v = 1
		}
		r.status.WithLabelValues(s.String()).Set(v)
	}
	r.transitions.WithLabelValues(state.Status.String()).Inc()
	r.responseCode.Set(float64(state.ResponseCode))
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
