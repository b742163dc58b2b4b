package invoicing

import (
	"context"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoicingAuditHandler writes one structured audit line per invoicing event
// to the "audit" logger.
type InvoicingAuditHandler struct {
	logger *zap.Logger
}

// NewInvoicingAuditHandler creates a new InvoicingAuditHandler
func NewInvoicingAuditHandler(logger *zap.Logger) *InvoicingAuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoicingAuditHandler{logger: logger.Named("audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoicingAuditHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeQuoteCreated,
		invoicing.EventTypeQuoteRevised,
		invoicing.EventTypeQuoteStatusChanged,
		invoicing.EventTypeQuoteDeleted,
		invoicing.EventTypeInvoiceIssued,
		invoicing.EventTypeInvoicePaymentRecorded,
		invoicing.EventTypeInvoiceCancelled,
		invoicing.EventTypeInvoiceReplaced,
		invoicing.EventTypeCreditNoteIssued,
	}
}

// Handle logs the event with its identifying fields
func (h *InvoicingAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *invoicing.QuoteCreatedEvent:
		fields = append(fields,
			zap.String("quote_number", e.QuoteNumber),
			zap.String("client_id", e.ClientID.String()),
			zap.String("final_payable_total", e.FinalPayableTotal.String()),
		)
	case *invoicing.QuoteRevisedEvent:
		fields = append(fields,
			zap.String("quote_number", e.QuoteNumber),
			zap.Int("revision", e.Revision),
			zap.String("previous_status", e.PreviousStatus.String()),
			zap.String("final_payable_total", e.FinalPayableTotal.String()),
		)
	case *invoicing.QuoteStatusChangedEvent:
		fields = append(fields,
			zap.String("quote_number", e.QuoteNumber),
			zap.String("previous_status", e.PreviousStatus.String()),
			zap.String("status", e.Status.String()),
		)
	case *invoicing.QuoteDeletedEvent:
		fields = append(fields, zap.String("quote_number", e.QuoteNumber))
	case *invoicing.InvoiceIssuedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("quote_id", e.QuoteID.String()),
			zap.Int("quote_revision", e.QuoteRevision),
			zap.String("final_payable_total", e.FinalPayableTotal.String()),
			zap.Time("due_date", e.DueDate),
		)
	case *invoicing.InvoicePaymentRecordedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("amount", e.Amount.String()),
			zap.String("method", string(e.Method)),
			zap.String("paid_amount", e.PaidAmount.String()),
			zap.String("previous_status", e.PreviousStatus.String()),
			zap.String("payment_status", e.PaymentStatus.String()),
		)
	case *invoicing.InvoiceCancelledEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("reason", e.Reason),
		)
		if e.CreditNoteID != nil {
			fields = append(fields, zap.String("credit_note_id", e.CreditNoteID.String()))
		}
	case *invoicing.InvoiceReplacedEvent:
		fields = append(fields,
			zap.String("replacement_id", e.ReplacementID.String()),
			zap.String("old_invoice_id", e.OldInvoiceID.String()),
			zap.String("new_invoice_id", e.NewInvoiceID.String()),
			zap.String("credit_note_id", e.CreditNoteID.String()),
			zap.Int("quote_revision", e.QuoteRevision),
		)
	case *invoicing.CreditNoteIssuedEvent:
		fields = append(fields,
			zap.String("credit_note_number", e.CreditNoteNumber),
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("amount", e.Amount.String()),
			zap.String("reason", e.Reason),
		)
	}

	h.logger.Info("Invoicing event", fields...)
	return nil
}

var _ shared.EventHandler = (*InvoicingAuditHandler)(nil)
