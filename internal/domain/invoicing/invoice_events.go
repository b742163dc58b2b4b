package invoicing

import (
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant for Invoice
const AggregateTypeInvoice = "Invoice"

// Event type constants for Invoice
const (
	EventTypeInvoiceIssued          = "InvoiceIssued"
	EventTypeInvoicePaymentRecorded = "InvoicePaymentRecorded"
	EventTypeInvoiceCancelled       = "InvoiceCancelled"
	EventTypeInvoiceReplaced        = "InvoiceReplaced"
)

// InvoiceIssuedEvent is raised when an invoice is issued from a quote
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	QuoteID           uuid.UUID       `json:"quote_id"`
	QuoteRevision     int             `json:"quote_revision"`
	ClientID          uuid.UUID       `json:"client_id"`
	FinalPayableTotal decimal.Decimal `json:"final_payable_total"`
	DueDate           time.Time       `json:"due_date"`
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(i *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInvoiceIssued, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:         i.ID,
		InvoiceNumber:     i.InvoiceNumber,
		QuoteID:           i.QuoteID,
		QuoteRevision:     i.QuoteRevision,
		ClientID:          i.ClientID,
		FinalPayableTotal: i.FinalPayableTotal,
		DueDate:           i.DueDate,
	}
}

// InvoicePaymentRecordedEvent is raised after a payment has been committed
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	PreviousStatus PaymentStatus   `json:"previous_status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
}

// NewInvoicePaymentRecordedEvent creates a new InvoicePaymentRecordedEvent
func NewInvoicePaymentRecordedEvent(i *Invoice, p *Payment, previous PaymentStatus) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentRecorded, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Method:          p.Method,
		PaidAmount:      i.PaidAmount,
		PreviousStatus:  previous,
		PaymentStatus:   i.PaymentStatus,
	}
}

// InvoiceCancelledEvent is raised when an invoice leaves the active state
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	InvoiceNumber string     `json:"invoice_number"`
	QuoteID       uuid.UUID  `json:"quote_id"`
	CreditNoteID  *uuid.UUID `json:"credit_note_id,omitempty"`
	Reason        string     `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(i *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		QuoteID:         i.QuoteID,
		CreditNoteID:    i.CreditNoteID,
		Reason:          i.CancelReason,
	}
}

// InvoiceReplacedEvent is raised when a replacement has issued the new invoice
type InvoiceReplacedEvent struct {
	shared.BaseDomainEvent
	ReplacementID uuid.UUID `json:"replacement_id"`
	QuoteID       uuid.UUID `json:"quote_id"`
	OldInvoiceID  uuid.UUID `json:"old_invoice_id"`
	NewInvoiceID  uuid.UUID `json:"new_invoice_id"`
	CreditNoteID  uuid.UUID `json:"credit_note_id"`
	QuoteRevision int       `json:"quote_revision"`
}

// NewInvoiceReplacedEvent creates a new InvoiceReplacedEvent
func NewInvoiceReplacedEvent(r *InvoiceReplacement) *InvoiceReplacedEvent {
	var newID uuid.UUID
	if r.NewInvoiceID != nil {
		newID = *r.NewInvoiceID
	}
	return &InvoiceReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceReplaced, AggregateTypeInvoice, r.OldInvoiceID, r.TenantID),
		ReplacementID:   r.ID,
		QuoteID:         r.QuoteID,
		OldInvoiceID:    r.OldInvoiceID,
		NewInvoiceID:    newID,
		CreditNoteID:    r.CreditNoteID,
		QuoteRevision:   r.QuoteRevision,
	}
}
