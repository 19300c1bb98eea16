package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successfully served requests.
	OutcomeSuccess = "success"
	// OutcomeError labels requests that failed downstream (model, registry).
	OutcomeError = "error"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "predictions_total",
			Help:      "Total number of predictions served, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "copilot",
			Name:      "prediction_seconds",
			Help:      "Prediction latency in seconds, including the model call.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "chat_requests_total",
			Help:      "Total number of chat queries, partitioned by dispatched route.",
		},
		[]string{"route"},
	)

	chatDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "copilot",
			Name:      "chat_seconds",
			Help:      "Chat handling latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	telemetryRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "telemetry_refresh_total",
			Help:      "Number of fleet-wide telemetry refresh ticks applied.",
		},
	)
)

// Register attaches copilot collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		predictionDurationSeconds,
		chatRequestsTotal,
		chatDurationSeconds,
		telemetryRefreshTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePrediction records a prediction duration and outcome label.
func ObservePrediction(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionDurationSeconds.Observe(duration.Seconds())
}

// ObserveChat records a chat duration under its dispatched route.
func ObserveChat(duration time.Duration, route string) {
	chatRequestsTotal.WithLabelValues(route).Inc()
	if duration < 0 {
		duration = 0
	}
	chatDurationSeconds.Observe(duration.Seconds())
}

// ObserveTelemetryRefresh counts one fleet-wide simulator tick.
func ObserveTelemetryRefresh() {
	telemetryRefreshTotal.Inc()
}
