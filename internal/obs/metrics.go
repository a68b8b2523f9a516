package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors. Each engine owns its own instance so
// tests and multiple engines never collide on a shared registry.
type Metrics struct {
	opDuration     *prometheus.HistogramVec
	cacheEvents    *prometheus.CounterVec
	authorizations *prometheus.CounterVec
	commissions    prometheus.Counter
}

// NewMetrics builds the collectors and registers them on reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mlm_engine_operation_duration_seconds",
				Help:    "Engine operation latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "outcome"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlm_lookup_cache_events_total",
				Help: "Lookup cache hits, misses, sets, evictions and expirations.",
			},
			[]string{"event"},
		),
		authorizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlm_purchase_authorizations_total",
				Help: "Purchase authorization decisions.",
			},
			[]string{"result"},
		),
		commissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlm_commission_records_created_total",
			Help: "Commission records persisted by distribution.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.opDuration, m.cacheEvents, m.authorizations, m.commissions)
	}
	return m
}

func (m *Metrics) ObserveOp(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op, outcome).Observe(seconds)
}

func (m *Metrics) CacheEvent(event string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Authorization(approved bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if approved {
		result = "approved"
	}
	m.authorizations.WithLabelValues(result).Inc()
}

func (m *Metrics) CommissionRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.commissions.Add(float64(n))
}

// Handler exposes the collectors registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
