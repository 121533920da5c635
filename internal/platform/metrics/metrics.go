package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the auth core.
type Metrics struct {
	LoginsStarted      *prometheus.CounterVec
	LoginsCompleted    *prometheus.CounterVec
	LoginsFailed       *prometheus.CounterVec
	AccountsCreated    prometheus.Counter
	TokenVerifications *prometheus.CounterVec
	BrokerExchangeMs   prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		LoginsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caregate_logins_started_total",
			Help: "Login initiations by client type",
		}, []string{"client_type"}),
		LoginsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caregate_logins_completed_total",
			Help: "Successful logins by client type",
		}, []string{"client_type"}),
		LoginsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caregate_logins_failed_total",
			Help: "Failed login attempts by failure code",
		}, []string{"reason"}),
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caregate_accounts_created_total",
			Help: "Accounts created through first-time login",
		}),
		TokenVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caregate_token_verifications_total",
			Help: "Session credential verifications by outcome",
		}, []string{"outcome"}),
		BrokerExchangeMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "caregate_broker_exchange_duration_ms",
			Help:    "Latency of authorization code exchanges in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
}
