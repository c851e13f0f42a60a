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
	evaluations   metric.Int64Counter
	invoices      metric.Int64Counter
	payments      metric.Int64Counter
	ledgerEntries metric.Int64Counter
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

	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "notalys"
	}
	meter := provider.Meter(name)

	evaluations, err := meter.Int64Counter("notalys_fee_evaluations_total")
	if err != nil {
		return nil, err
	}
	invoices, err := meter.Int64Counter("notalys_invoices_created_total")
	if err != nil {
		return nil, err
	}
	payments, err := meter.Int64Counter("notalys_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("notalys_ledger_entries_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		evaluations:   evaluations,
		invoices:      invoices,
		payments:      payments,
		ledgerEntries: ledgerEntries,
	}, nil
}

// RecordEvaluation counts one engine evaluation by template code.
func (m *Metrics) RecordEvaluation(ctx context.Context, templateCode string) {
	if m == nil || m.evaluations == nil {
		return
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("template", templateCode)))
}

// RecordInvoiceCreated counts one invoice creation.
func (m *Metrics) RecordInvoiceCreated(ctx context.Context) {
	if m == nil || m.invoices == nil {
		return
	}
	m.invoices.Add(ctx, 1)
}

// RecordPayment counts one recorded payment by method.
func (m *Metrics) RecordPayment(ctx context.Context, method string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordLedgerEntry counts one persisted journal entry.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, sourceType string) {
	if m == nil || m.ledgerEntries == nil {
		return
	}
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attribute.String("source_type", sourceType)))
}
