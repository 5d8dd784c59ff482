package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SuppressReasonCooldown  = "cooldown"
	SuppressReasonDailyCap  = "daily_cap"
	SuppressReasonWeeklyCap = "weekly_cap"
	SuppressReasonInactive  = "inactive"
	SuppressReasonNoMatch   = "no_match"
)

const (
	DeliveryOutcomeSent    = "sent"
	DeliveryOutcomeFailed  = "failed"
	DeliveryOutcomeSkipped = "skipped"
)

// EngineMetrics captures alert engine health signals.
type EngineMetrics struct {
	evaluations      *prometheus.CounterVec
	evaluationErrors *prometheus.CounterVec
	rulesFired       *prometheus.CounterVec
	rulesSuppressed  *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	evalDuration     prometheus.Observer
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton alert engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "pawsentry"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pawsentry_engine_evaluations_total",
		Help:        "Analysis events evaluated by the alert engine.",
		ConstLabels: constLabels,
	}, []string{"source"})
	evaluationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pawsentry_engine_evaluation_errors_total",
		Help:        "Per-rule evaluation errors isolated by the engine.",
		ConstLabels: constLabels,
	}, []string{"stage"})
	rulesFired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pawsentry_engine_rules_fired_total",
		Help:        "Rules that matched an event and passed frequency limits.",
		ConstLabels: constLabels,
	}, []string{"priority"})
	rulesSuppressed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pawsentry_engine_rules_suppressed_total",
		Help:        "Matching rules suppressed by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pawsentry_channel_delivery_total",
		Help:        "Per-channel notification delivery outcomes.",
		ConstLabels: constLabels,
	}, []string{"channel", "outcome"})
	evalDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "pawsentry_engine_evaluation_duration_seconds",
		Help:        "Alert engine evaluation latency per analysis event.",
		Buckets:     []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(evaluations, evaluationErrors, rulesFired, rulesSuppressed, deliveries, evalDuration)

	return &EngineMetrics{
		evaluations:      evaluations,
		evaluationErrors: evaluationErrors,
		rulesFired:       rulesFired,
		rulesSuppressed:  rulesSuppressed,
		deliveries:       deliveries,
		evalDuration:     evalDuration,
	}
}

// ObserveEvaluation records one evaluation run and its duration.
func (m *EngineMetrics) ObserveEvaluation(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(normalizeLabel(source)).Inc()
	m.evalDuration.Observe(elapsed.Seconds())
}

// RecordEvaluationError counts a per-rule error by stage.
func (m *EngineMetrics) RecordEvaluationError(stage string) {
	if m == nil {
		return
	}
	m.evaluationErrors.WithLabelValues(normalizeLabel(stage)).Inc()
}

// RecordRuleFired counts a fired rule by resulting priority.
func (m *EngineMetrics) RecordRuleFired(priority string) {
	if m == nil {
		return
	}
	m.rulesFired.WithLabelValues(normalizeLabel(priority)).Inc()
}

// RecordRuleSuppressed counts a suppressed rule by reason.
func (m *EngineMetrics) RecordRuleSuppressed(reason string) {
	if m == nil {
		return
	}
	m.rulesSuppressed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// RecordDelivery counts a channel delivery outcome.
func (m *EngineMetrics) RecordDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
