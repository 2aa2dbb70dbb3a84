package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitarg/pkg/errors"
)

var (
	// Evaluation metrics
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitarg_evaluations_total",
			Help: "Total number of decision evaluations",
		},
		[]string{"status"}, // status: success|incomplete|error
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gitarg_evaluation_duration_seconds",
			Help:    "Decision evaluation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	BestOption = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitarg_best_option_total",
			Help: "How often each top-level option came out best",
		},
		[]string{"option"},
	)

	// Negotiation metrics
	Negotiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitarg_negotiations_total",
			Help: "Total number of negotiations resolved",
		},
		[]string{"factor", "settled"}, // settled: true when the outcome was fixed without bargaining
	)

	// Elicitation metrics
	IncompleteElicitations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitarg_incomplete_elicitations_total",
			Help: "Evaluations refused because input was missing, by first missing factor",
		},
		[]string{"factor"},
	)

	// Event metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitarg_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"topic", "status"},
	)
)

var registerOnce sync.Once

// Register registers all metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Evaluations)
		prometheus.MustRegister(EvaluationDuration)
		prometheus.MustRegister(BestOption)
		prometheus.MustRegister(Negotiations)
		prometheus.MustRegister(IncompleteElicitations)
		prometheus.MustRegister(EventsPublished)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEvaluation records one evaluation's outcome and duration
func RecordEvaluation(duration time.Duration, best string, err error) {
	EvaluationDuration.Observe(duration.Seconds())

	status := "success"
	switch {
	case err == nil:
		BestOption.WithLabelValues(best).Inc()
	case errors.Is(err, errors.ErrIncompleteElicitation):
		status = "incomplete"
		var incomplete *errors.IncompleteError
		if errors.As(err, &incomplete) {
			IncompleteElicitations.WithLabelValues(incomplete.Factor).Inc()
		}
	default:
		status = "error"
	}
	Evaluations.WithLabelValues(status).Inc()
}

// RecordNegotiation records a resolved negotiation
func RecordNegotiation(factor string, settled bool) {
	label := "false"
	if settled {
		label = "true"
	}
	Negotiations.WithLabelValues(factor, label).Inc()
}

// RecordEventPublished records a publish attempt
func RecordEventPublished(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublished.WithLabelValues(topic, status).Inc()
}
