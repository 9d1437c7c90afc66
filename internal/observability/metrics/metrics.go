package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	purchaseEvents   metric.Int64Counter
	creditsDelivered metric.Int64Counter
	creditsConsumed  metric.Int64Counter
	reportsGenerated metric.Int64Counter
	recoveryReplays  metric.Int64Counter
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "astroledger"
	}
	meter := provider.Meter(name)

	purchaseEvents, err := meter.Int64Counter("astroledger_purchase_events_total")
	if err != nil {
		return nil, err
	}
	creditsDelivered, err := meter.Int64Counter("astroledger_credits_delivered_total")
	if err != nil {
		return nil, err
	}
	creditsConsumed, err := meter.Int64Counter("astroledger_credits_consumed_total")
	if err != nil {
		return nil, err
	}
	reportsGenerated, err := meter.Int64Counter("astroledger_reports_generated_total")
	if err != nil {
		return nil, err
	}
	recoveryReplays, err := meter.Int64Counter("astroledger_recovery_replays_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		purchaseEvents:   purchaseEvents,
		creditsDelivered: creditsDelivered,
		creditsConsumed:  creditsConsumed,
		reportsGenerated: reportsGenerated,
		recoveryReplays:  recoveryReplays,
	}, nil
}

// RecordPurchaseEvent increments purchase outcome counts.
func (m *Metrics) RecordPurchaseEvent(ctx context.Context, productID, outcome string) {
	if m == nil {
		return
	}
	m.purchaseEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("product_id", strings.TrimSpace(productID)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}

// RecordCreditsDelivered increments delivered credit counts.
func (m *Metrics) RecordCreditsDelivered(ctx context.Context, category string, quantity int, restored bool) {
	if m == nil {
		return
	}
	m.creditsDelivered.Add(ctx, int64(quantity), metric.WithAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.Bool("restored", restored),
	))
}

// RecordCreditConsumed increments consumed credit counts.
func (m *Metrics) RecordCreditConsumed(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.creditsConsumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", strings.TrimSpace(category)),
	))
}

// RecordReportGenerated increments report generation counts.
func (m *Metrics) RecordReportGenerated(ctx context.Context, category, result string) {
	if m == nil {
		return
	}
	m.reportsGenerated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.String("result", strings.TrimSpace(result)),
	))
}

// RecordRecoveryReplay increments recovery listener replay counts.
func (m *Metrics) RecordRecoveryReplay(ctx context.Context, source string, created bool) {
	if m == nil {
		return
	}
	m.recoveryReplays.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.Bool("created", created),
	))
}
