package metrics

import (
	"context"
	"time"

	auth "github.com/goliatone/go-headless-auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for auth state changes.
type Metrics struct {
	ChangeEvents     *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
}

var _ auth.EventSink = (*Metrics)(nil)

// New registers the metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ChangeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_change_events_total",
			Help: "Total number of dispatched authentication change events",
		}, []string{"event"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_auth_provider_request_duration_seconds",
			Help:    "Duration of authentication provider requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation", "status"}),
	}
}

// Record implements auth.EventSink.
func (m *Metrics) Record(_ context.Context, n auth.ChangeNotification) error {
	m.ChangeEvents.WithLabelValues(n.Event.String()).Inc()
	return nil
}

// ObserveProvider records the duration of a provider call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveProvider(operation string, status int, start time.Time) {
	m.ProviderDuration.WithLabelValues(operation, statusLabel(status)).Observe(time.Since(start).Seconds())
}

func statusLabel(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
