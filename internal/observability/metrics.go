package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camwatch",
		Name:      "frames_fetched_total",
		Help:      "Total number of frames fetched from cameras",
	}, []string{"camera_id"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camwatch",
		Name:      "fetch_failures_total",
		Help:      "Total number of failed frame fetches",
	}, []string{"camera_id", "reason"})

	MotionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camwatch",
		Name:      "motion_events_total",
		Help:      "Total number of detected motion events",
	}, []string{"camera_id"})

	AlertsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camwatch",
		Name:      "alerts_delivered_total",
		Help:      "Total number of alerts delivered to the operator channel",
	})

	AlertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camwatch",
		Name:      "alerts_suppressed_total",
		Help:      "Total number of alerts suppressed by cooldown or delivery failure",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camwatch",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of reachability sweeps",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	CamerasOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camwatch",
		Name:      "cameras_online",
		Help:      "Number of cameras currently marked reachable",
	})

	OpenStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camwatch",
		Name:      "open_streams",
		Help:      "Number of persistent stream handles currently held",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camwatch",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket clients",
	})
)
