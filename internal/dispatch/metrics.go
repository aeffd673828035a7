package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	inferRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "infer",
			Name:      "requests_total",
			Help:      "Total number of inference requests",
		},
		[]string{"model", "version"},
	)

	inferFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "infer",
			Name:      "failures_total",
			Help:      "Total number of failed inference requests",
		},
		[]string{"model", "version"},
	)

	inferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "infer",
			Name:      "request_duration_seconds",
			Help:      "Duration of inference requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model", "version"},
	)
)

func init() {
	prometheus.MustRegister(inferRequestsTotal, inferFailuresTotal, inferDuration)
}
