package invoicing

import (
	"strings"
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant for CreditNote
const AggregateTypeCreditNote = "CreditNote"

// EventTypeCreditNoteIssued is raised when a credit note reverses an invoice
const EventTypeCreditNoteIssued = "CreditNoteIssued"

// CreditNote (avoir) reverses an invoice for its full final payable total.
// It is immutable once issued and at most one exists per invoice.
type CreditNote struct {
	shared.TenantAggregateRoot
	CreditNoteNumber string
	InvoiceID        uuid.UUID
	InvoiceNumber    string
	QuoteID          uuid.UUID
	ClientID         uuid.UUID
	ClientName       string
	Amount           decimal.Decimal
	Reason           string
	IssuedAt         time.Time
}

// IssueCreditNote creates the credit note reversing an active invoice
func IssueCreditNote(number string, invoice *Invoice, reason string, createdBy *uuid.UUID) (*CreditNote, error) {
	if number == "" {
		return nil, shared.NewValidationError("Credit note number cannot be empty")
	}
	if !invoice.IsActive() {
		return nil, shared.NewInvalidStateError("Only an active invoice can be reversed", invoice.LifecycleStatus.String())
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Reversal of invoice " + invoice.InvoiceNumber
	}

	cn := &CreditNote{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(invoice.TenantID, createdBy),
		CreditNoteNumber:    number,
		InvoiceID:           invoice.ID,
		InvoiceNumber:       invoice.InvoiceNumber,
		QuoteID:             invoice.QuoteID,
		ClientID:            invoice.ClientID,
		ClientName:          invoice.ClientName,
		Amount:              invoice.FinalPayableTotal,
		Reason:              reason,
	}
	cn.IssuedAt = cn.CreatedAt

	cn.AddDomainEvent(NewCreditNoteIssuedEvent(cn))
	return cn, nil
}

// CreditNoteIssuedEvent is raised when a credit note is issued
type CreditNoteIssuedEvent struct {
	shared.BaseDomainEvent
	CreditNoteID     uuid.UUID       `json:"credit_note_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
}

// NewCreditNoteIssuedEvent creates a new CreditNoteIssuedEvent
func NewCreditNoteIssuedEvent(cn *CreditNote) *CreditNoteIssuedEvent {
	return &CreditNoteIssuedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCreditNoteIssued, AggregateTypeCreditNote, cn.ID, cn.TenantID),
		CreditNoteID:     cn.ID,
		CreditNoteNumber: cn.CreditNoteNumber,
		InvoiceID:        cn.InvoiceID,
		InvoiceNumber:    cn.InvoiceNumber,
		Amount:           cn.Amount,
		Reason:           cn.Reason,
	}
}
