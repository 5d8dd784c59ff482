package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	eventsEvaluated      metric.Int64Counter
	alertsFired          metric.Int64Counter
	alertsSuppressed     metric.Int64Counter
	notificationsCreated metric.Int64Counter
	channelDeliveries    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "pawsentry"
	}
	meter := provider.Meter(name)

	eventsEvaluated, err := meter.Int64Counter("pawsentry_analysis_events_evaluated_total")
	if err != nil {
		return nil, err
	}
	alertsFired, err := meter.Int64Counter("pawsentry_alerts_fired_total")
	if err != nil {
		return nil, err
	}
	alertsSuppressed, err := meter.Int64Counter("pawsentry_alerts_suppressed_total")
	if err != nil {
		return nil, err
	}
	notificationsCreated, err := meter.Int64Counter("pawsentry_notifications_created_total")
	if err != nil {
		return nil, err
	}
	channelDeliveries, err := meter.Int64Counter("pawsentry_channel_deliveries_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsEvaluated:      eventsEvaluated,
		alertsFired:          alertsFired,
		alertsSuppressed:     alertsSuppressed,
		notificationsCreated: notificationsCreated,
		channelDeliveries:    channelDeliveries,
	}, nil
}

// RecordEventEvaluated increments evaluated analysis event counts.
func (m *Metrics) RecordEventEvaluated(ctx context.Context, anomalyType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("anomaly_type", strings.TrimSpace(anomalyType)))
	m.eventsEvaluated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAlertFired increments fired alert counts.
func (m *Metrics) RecordAlertFired(ctx context.Context, severity, priority string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("severity", strings.TrimSpace(severity)),
		attribute.String("priority", strings.TrimSpace(priority)),
	)
	m.alertsFired.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAlertSuppressed increments suppressed alert counts by low-cardinality reason.
func (m *Metrics) RecordAlertSuppressed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.alertsSuppressed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationCreated increments notification creation counts.
func (m *Metrics) RecordNotificationCreated(ctx context.Context, notifType, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type", strings.TrimSpace(notifType)),
		attribute.String("category", strings.TrimSpace(category)),
	)
	m.notificationsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordChannelDelivery increments per-channel delivery outcome counts.
func (m *Metrics) RecordChannelDelivery(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("channel", strings.TrimSpace(channel)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.channelDeliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"anomaly_type": {},
	"severity":     {},
	"priority":     {},
	"reason":       {},
	"type":         {},
	"category":     {},
	"channel":      {},
	"outcome":      {},
	"status_code":  {},
	"endpoint":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
