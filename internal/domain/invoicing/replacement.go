package invoicing

import (
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ReplacementStatus tracks how far an invoice replacement has progressed
type ReplacementStatus string

const (
	// ReplacementStatusCreditNoteIssued means the old invoice is reversed and cancelled
	// but the new invoice has not been issued yet.
	ReplacementStatusCreditNoteIssued ReplacementStatus = "credit_note_issued"
	ReplacementStatusCompleted        ReplacementStatus = "completed"
)

// String returns the string representation of ReplacementStatus
func (s ReplacementStatus) String() string {
	return string(s)
}

// InvoiceReplacement is the durable record of one stale-invoice replacement:
// reverse the old invoice with a credit note, then issue a new invoice.
// An unfinished record is resumed instead of reversing again.
type InvoiceReplacement struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	QuoteID       uuid.UUID
	OldInvoiceID  uuid.UUID
	CreditNoteID  uuid.UUID
	NewInvoiceID  *uuid.UUID
	QuoteRevision int
	Status        ReplacementStatus
	Attempts      int
	LastError     string
	CompletedAt   *time.Time
	Version       int
}

// StartReplacement records that old has been reversed by creditNote for the given quote revision
func StartReplacement(old *Invoice, creditNote *CreditNote, quoteRevision int) *InvoiceReplacement {
	return &InvoiceReplacement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      old.TenantID,
		QuoteID:       old.QuoteID,
		OldInvoiceID:  old.ID,
		CreditNoteID:  creditNote.ID,
		QuoteRevision: quoteRevision,
		Status:        ReplacementStatusCreditNoteIssued,
		Version:       1,
	}
}

// IsCompleted returns true once the new invoice exists
func (r *InvoiceReplacement) IsCompleted() bool {
	return r.Status == ReplacementStatusCompleted
}

// Complete links the new invoice and closes the replacement
func (r *InvoiceReplacement) Complete(newInvoice *Invoice) error {
	if r.IsCompleted() {
		return shared.NewInvalidStateError("Replacement is already completed", r.Status.String())
	}
	if newInvoice.QuoteID != r.QuoteID {
		return shared.NewValidationError("New invoice does not belong to the replaced quote")
	}
	now := time.Now().UTC()
	r.NewInvoiceID = &newInvoice.ID
	r.Status = ReplacementStatusCompleted
	r.CompletedAt = &now
	r.LastError = ""
	r.Attempts++
	r.UpdatedAt = now
	r.Version++
	return nil
}

// RecordFailure notes a failed attempt at issuing the new invoice
func (r *InvoiceReplacement) RecordFailure(err error) {
	r.Attempts++
	if err != nil {
		r.LastError = err.Error()
	}
	r.Touch()
	r.Version++
}

// NewReplacementIncompleteError reports that the old invoice was reversed but the new one
// was not issued. Calling ensureInvoice again resumes the replacement.
func NewReplacementIncompleteError(r *InvoiceReplacement, cause error) *shared.DomainError {
	return &shared.DomainError{
		Code:    shared.CodeReplacementIncomplete,
		Message: "Invoice was reversed but the replacement invoice could not be issued; retry to resume",
		Details: map[string]any{
			"replacement_id": r.ID.String(),
			"credit_note_id": r.CreditNoteID.String(),
			"old_invoice_id": r.OldInvoiceID.String(),
			"quote_id":       r.QuoteID.String(),
		},
		Err: cause,
	}
}
