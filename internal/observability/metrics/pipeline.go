package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

// PipelineMetrics records upload outcomes, per-stage latency and enrichment dispatches.
type PipelineMetrics struct {
	service string

	uploadsTotal  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	dispatchTotal *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
}

func newPipelineMetrics(registry prometheus.Registerer, service string) *PipelineMetrics {
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "uploads_total",
			Help:      "Upload requests by outcome and failing stage.",
		},
		[]string{"service", "outcome", "stage"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each upload stage in seconds.",
			Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service", "stage", "result"},
	)
	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "dispatch_total",
			Help:      "Price enrichment dispatches by status.",
		},
		[]string{"service", "status"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	registry.MustRegister(uploadsTotal, stageDuration, dispatchTotal, breakerState)

	return &PipelineMetrics{
		service:       service,
		uploadsTotal:  uploadsTotal,
		stageDuration: stageDuration,
		dispatchTotal: dispatchTotal,
		breakerState:  breakerState,
	}
}

func (m *PipelineMetrics) ObserveStage(stage domain.Stage, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(m.service, string(stage), resultLabel(err)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveUpload(outcome string, stage domain.Stage) {
	if stage == "" {
		stage = "none"
	}
	m.uploadsTotal.WithLabelValues(m.service, outcome, string(stage)).Inc()
}

func (m *PipelineMetrics) ObserveDispatch(err error) {
	m.dispatchTotal.WithLabelValues(m.service, resultLabel(err)).Inc()
}

func (m *PipelineMetrics) ObserveBreaker(operation string, state gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(state))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
