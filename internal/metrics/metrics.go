package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ewaste"

var (
	RequestsCreated     = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "requests_created_total", Help: "Pickup requests created"})
	RequestsCancelled   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "requests_cancelled_total", Help: "Pickup requests cancelled by their owner"})
	RequestsRejected    = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "requests_rejected_total", Help: "Pickup requests rejected by agencies"})
	CapacityRejections  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "capacity_rejections_total", Help: "Segregation attempts refused for lack of inventory capacity"})
	PointsAwarded       = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "points_awarded_total", Help: "Reward points credited to users"})
	RedemptionsTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "redemptions_total", Help: "Reward products redeemed"})
	MonthlyResetsTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "monthly_resets_total", Help: "Monthly leaderboard resets performed"})
	TrackingConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "tracking_connections", Help: "Open live tracking websocket connections"})

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "milestone_transitions_total", Help: "Milestones recorded on pickup requests"},
		[]string{"milestone"},
	)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Notification deliveries by channel and outcome"},
		[]string{"channel", "outcome"},
	)
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Latency of calls to external collaborators",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collaborator", "outcome"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Outcome labels a call result for the vector metrics.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
