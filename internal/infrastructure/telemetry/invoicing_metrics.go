// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// InvoicingMetrics provides business metrics for the garage back office.
// It tracks document issuance, payment activity and receivables health.
type InvoicingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	documentIssuedTotal  *Counter
	documentAmountTotal  *Counter
	quoteTransitionTotal *Counter
	paymentTotal         *Counter
	paymentAmountTotal   *Counter
	replacementTotal     *Counter

	// Gauge metrics (point-in-time values)
	overdueInvoiceCount   *Gauge
	outstandingAmountCent *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	receivablesProvider ReceivablesMetricsProvider
}

// ReceivablesMetricsProvider provides receivable figures for periodic metrics collection.
// It lets the telemetry layer query invoice state without depending on the invoicing domain.
type ReceivablesMetricsProvider interface {
	// GetOverdueCount returns the number of active overdue invoices for a tenant
	GetOverdueCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetOutstandingAmount returns the unpaid remainder of active invoices for a tenant
	GetOutstandingAmount(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

// InvoicingMetricsConfig holds configuration for invoicing metrics.
type InvoicingMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	CollectInterval     time.Duration // Default: 5 minutes
	ReceivablesProvider ReceivablesMetricsProvider
}

// NewInvoicingMetrics creates a new InvoicingMetrics instance.
func NewInvoicingMetrics(cfg InvoicingMetricsConfig) (*InvoicingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &InvoicingMetrics{
		meter:               cfg.Meter,
		logger:              logger,
		stopChan:            make(chan struct{}),
		receivablesProvider: cfg.ReceivablesProvider,
	}

	var err error

	im.documentIssuedTotal, err = NewCounter(
		cfg.Meter,
		"garage_document_issued_total",
		"Total number of quotes, invoices and credit notes issued",
		"{documents}",
	)
	if err != nil {
		return nil, err
	}

	im.documentAmountTotal, err = NewCounter(
		cfg.Meter,
		"garage_document_amount_total",
		"Total final payable amount of issued documents in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	im.quoteTransitionTotal, err = NewCounter(
		cfg.Meter,
		"garage_quote_transition_total",
		"Total number of quote status changes",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	im.paymentTotal, err = NewCounter(
		cfg.Meter,
		"garage_payment_total",
		"Total number of payments recorded",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	im.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"garage_payment_amount_total",
		"Total amount of payments recorded in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	im.replacementTotal, err = NewCounter(
		cfg.Meter,
		"garage_invoice_replacement_total",
		"Total number of stale invoices replaced after a quote revision",
		"{replacements}",
	)
	if err != nil {
		return nil, err
	}

	im.overdueInvoiceCount, err = NewGauge(
		cfg.Meter,
		"garage_invoice_overdue_count",
		"Current number of overdue invoices",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	im.outstandingAmountCent, err = NewGauge(
		cfg.Meter,
		"garage_invoice_outstanding_amount",
		"Current unpaid amount of active invoices in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	return im, nil
}

// =============================================================================
// Document Metrics
// =============================================================================

// RecordDocumentIssued records the issuance of a quote, invoice or credit note with its amount.
func (im *InvoicingMetrics) RecordDocumentIssued(ctx context.Context, tenantID uuid.UUID, kind string, amount decimal.Decimal) {
	im.documentIssuedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrDocumentKind.String(kind),
	)
	im.documentAmountTotal.Add(ctx, toCents(amount),
		AttrTenantID.String(tenantID.String()),
		AttrDocumentKind.String(kind),
	)
}

// RecordQuoteTransition records a quote status change.
func (im *InvoicingMetrics) RecordQuoteTransition(ctx context.Context, tenantID uuid.UUID, status string) {
	im.quoteTransitionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrQuoteStatus.String(status),
	)
}

// RecordInvoiceReplaced records the completion of a stale-invoice replacement.
func (im *InvoicingMetrics) RecordInvoiceReplaced(ctx context.Context, tenantID uuid.UUID) {
	im.replacementTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// =============================================================================
// Payment Metrics
// =============================================================================

// RecordPayment records a payment with its method and the resulting invoice status.
func (im *InvoicingMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, method, status string, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(method),
		AttrPaymentStatus.String(status),
	}
	im.paymentTotal.Inc(ctx, attrs...)
	im.paymentAmountTotal.Add(ctx, toCents(amount), attrs...)
}

// =============================================================================
// Receivables Gauges
// =============================================================================

// RecordOverdueCount records the number of overdue invoices for a tenant.
func (im *InvoicingMetrics) RecordOverdueCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	im.overdueInvoiceCount.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// RecordOutstandingAmount records the unpaid amount of active invoices for a tenant.
func (im *InvoicingMetrics) RecordOutstandingAmount(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal) {
	im.outstandingAmountCent.Record(ctx, toCents(amount), AttrTenantID.String(tenantID.String()))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of receivable gauges.
// This is non-blocking - use Stop() to stop collection.
func (im *InvoicingMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	im.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go im.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

func (im *InvoicingMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	im.collectReceivables(ctx, tenantProvider)

	for {
		select {
		case <-im.stopChan:
			im.logger.Info("Stopping periodic invoicing metrics collection")
			return
		case <-ctx.Done():
			im.logger.Info("Context cancelled, stopping periodic invoicing metrics collection")
			return
		case <-ticker.C:
			im.collectReceivables(ctx, tenantProvider)
		}
	}
}

func (im *InvoicingMetrics) collectReceivables(ctx context.Context, tenantProvider TenantProvider) {
	if im.receivablesProvider == nil {
		im.logger.Debug("No receivables provider configured, skipping receivables collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		im.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		im.collectTenantReceivables(ctx, tenantID)
	}
}

func (im *InvoicingMetrics) collectTenantReceivables(ctx context.Context, tenantID uuid.UUID) {
	overdue, err := im.receivablesProvider.GetOverdueCount(ctx, tenantID)
	if err != nil {
		im.logger.Warn("Failed to get overdue count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		im.RecordOverdueCount(ctx, tenantID, overdue)
	}

	outstanding, err := im.receivablesProvider.GetOutstandingAmount(ctx, tenantID)
	if err != nil {
		im.logger.Warn("Failed to get outstanding amount for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		im.RecordOutstandingAmount(ctx, tenantID, outstanding)
	}
}

// Stop stops the periodic collection.
func (im *InvoicingMetrics) Stop() {
	im.stopOnce.Do(func() {
		close(im.stopChan)
	})
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewInvoicingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
