package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"revtun/internal/rendezvous"
)

// PromMetrics implements rendezvous.Metrics on top of prometheus counters
// and gauges, registered against reg so cmd/revtun-server can expose them on
// the admin HTTPS endpoint.
type PromMetrics struct {
	tunnelsActive   prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	bytesRelayed    *prometheus.CounterVec
	controllerState prometheus.Gauge
}

var _ rendezvous.Metrics = (*PromMetrics)(nil)

// NewPromMetrics registers and returns a PromMetrics bound to reg. instanceID
// is attached as a constant "instance_id" label on every series, so metrics
// scraped across a server restart (a fresh instanceID each time) aren't
// silently stitched together into one continuous-looking series.
func NewPromMetrics(reg prometheus.Registerer, instanceID string) *PromMetrics {
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"instance_id": instanceID}
	return &PromMetrics{
		tunnelsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "revtun",
			Name:        "tunnels_active",
			Help:        "Number of tunnels currently listening.",
			ConstLabels: constLabels,
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "revtun",
			Name:        "sessions_total",
			Help:        "Count of relayed sessions by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		bytesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "revtun",
			Name:        "bytes_relayed_total",
			Help:        "Bytes relayed by direction.",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		controllerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "revtun",
			Name:        "controller_connected",
			Help:        "1 if a controller is currently connected, else 0.",
			ConstLabels: constLabels,
		}),
	}
}

func (m *PromMetrics) TunnelStarted(port int) { m.tunnelsActive.Inc() }
func (m *PromMetrics) TunnelStopped(port int) { m.tunnelsActive.Dec() }

func (m *PromMetrics) SessionAccepted(port int) {
	m.sessionsTotal.WithLabelValues("accepted").Inc()
}

func (m *PromMetrics) SessionPaired(port int) {
	m.sessionsTotal.WithLabelValues("paired").Inc()
}

func (m *PromMetrics) SessionDropped(port int, reason string) {
	m.sessionsTotal.WithLabelValues("dropped_" + reason).Inc()
}

func (m *PromMetrics) ControllerConnected() { m.controllerState.Set(1) }
func (m *PromMetrics) ControllerDisconnected() { m.controllerState.Set(0) }

func (m *PromMetrics) BytesRelayed(direction string, n int64) {
	m.bytesRelayed.WithLabelValues(direction).Add(float64(n))
}
