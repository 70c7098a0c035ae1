package reload

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotserver"

// MetricsEndpoint is where the metrics handler is mounted.
const MetricsEndpoint = "/_hot_server_metrics"

// Metrics holds Prometheus metrics for the notification hub.
type Metrics struct {
	Clients    prometheus.Gauge
	Broadcasts *prometheus.CounterVec
	Dropped    prometheus.Counter
}

// NewMetrics creates hub metrics and registers them on reg, when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reload",
			Name:      "connected_clients",
			Help:      "Number of browsers subscribed to change notifications.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reload",
			Name:      "broadcasts_total",
			Help:      "Total number of notifications broadcast, by message type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reload",
			Name:      "dropped_clients_total",
			Help:      "Total number of clients removed after a failed delivery.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Clients, m.Broadcasts, m.Dropped)
	}
	return m
}

// MetricsHandler serves the metrics registered on reg.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
