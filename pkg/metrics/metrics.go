package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records admin login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaizen_auth_attempts_total",
			Help: "Total number of admin authentication attempts",
		},
		[]string{"result"},
	)

	// RoleChecks counts role gate evaluations by outcome.
	RoleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaizen_role_checks_total",
			Help: "Total number of role checks on admin routes",
		},
		[]string{"role", "result"},
	)

	// QRVerifications counts pass verifications by decode strategy and result.
	// strategy is compact|legacy|none, result is valid|invalid.
	QRVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaizen_qr_verifications_total",
			Help: "Total number of QR pass verifications",
		},
		[]string{"strategy", "result"},
	)

	// Registrations counts accepted registrations by kind (event|fest).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaizen_registrations_total",
			Help: "Total number of accepted registrations",
		},
		[]string{"kind"},
	)

	// CheckIns counts gate check-ins by method (token|code) and result.
	CheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaizen_checkins_total",
			Help: "Total number of check-in attempts",
		},
		[]string{"method", "result"},
	)

	// RealtimeConnections tracks open websocket subscribers.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kaizen_realtime_connections",
			Help: "Number of open realtime websocket connections",
		},
	)

	// MaintenanceMode is 1 while the public site is gated.
	MaintenanceMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kaizen_maintenance_mode",
			Help: "Whether maintenance mode is enabled (1) or not (0)",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaizen_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// BoolGauge converts a flag into a gauge value.
func BoolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
