package invoicing

import (
	"context"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MetricsRecorder receives business counters derived from invoicing events
type MetricsRecorder interface {
	RecordDocumentIssued(ctx context.Context, tenantID uuid.UUID, kind string, amount decimal.Decimal)
	RecordQuoteTransition(ctx context.Context, tenantID uuid.UUID, status string)
	RecordInvoiceReplaced(ctx context.Context, tenantID uuid.UUID)
	RecordPayment(ctx context.Context, tenantID uuid.UUID, method, status string, amount decimal.Decimal)
}

// InvoicingMetricsHandler turns invoicing domain events into business metrics
type InvoicingMetricsHandler struct {
	recorder MetricsRecorder
	logger   *zap.Logger
}

// NewInvoicingMetricsHandler creates a new InvoicingMetricsHandler
func NewInvoicingMetricsHandler(recorder MetricsRecorder, logger *zap.Logger) *InvoicingMetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoicingMetricsHandler{recorder: recorder, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoicingMetricsHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeQuoteCreated,
		invoicing.EventTypeQuoteStatusChanged,
		invoicing.EventTypeInvoiceIssued,
		invoicing.EventTypeInvoicePaymentRecorded,
		invoicing.EventTypeInvoiceReplaced,
		invoicing.EventTypeCreditNoteIssued,
	}
}

// Handle records the metric matching the event
func (h *InvoicingMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	tenantID := event.TenantID()

	switch e := event.(type) {
	case *invoicing.QuoteCreatedEvent:
		h.recorder.RecordDocumentIssued(ctx, tenantID, invoicing.DocumentKindQuote.String(), e.FinalPayableTotal)
	case *invoicing.QuoteStatusChangedEvent:
		h.recorder.RecordQuoteTransition(ctx, tenantID, e.Status.String())
	case *invoicing.InvoiceIssuedEvent:
		h.recorder.RecordDocumentIssued(ctx, tenantID, invoicing.DocumentKindInvoice.String(), e.FinalPayableTotal)
	case *invoicing.CreditNoteIssuedEvent:
		h.recorder.RecordDocumentIssued(ctx, tenantID, invoicing.DocumentKindCreditNote.String(), e.Amount)
	case *invoicing.InvoicePaymentRecordedEvent:
		h.recorder.RecordPayment(ctx, tenantID, string(e.Method), e.PaymentStatus.String(), e.Amount)
	case *invoicing.InvoiceReplacedEvent:
		h.recorder.RecordInvoiceReplaced(ctx, tenantID)
	default:
		h.logger.Debug("Ignoring event without metric",
			zap.String("event_type", event.EventType()),
		)
	}
	return nil
}

var _ shared.EventHandler = (*InvoicingMetricsHandler)(nil)
