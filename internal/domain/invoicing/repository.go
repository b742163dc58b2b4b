package invoicing

import (
	"context"
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteFilter defines filtering options for quote queries
type QuoteFilter struct {
	shared.Filter
	Status   *QuoteStatus
	ClientID *uuid.UUID
	FromDate *time.Time
	ToDate   *time.Time
}

// QuoteRepository defines the interface for quote persistence
type QuoteRepository interface {
	// FindByIDForTenant finds a quote by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindByIDForUpdate loads a quote and holds a row lock until the transaction ends.
	// Concurrent issuers for the same quote serialize on this lock.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindAllForTenant finds all quotes for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter QuoteFilter) ([]Quote, error)

	// CountForTenant counts quotes for a tenant with filtering
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter QuoteFilter) (int64, error)

	// Create inserts a new quote
	Create(ctx context.Context, quote *Quote) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, quote *Quote) error

	// DeleteForTenant removes a quote
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	PaymentStatus   *PaymentStatus
	LifecycleStatus *LifecycleStatus
	QuoteID         *uuid.UUID
	ClientID        *uuid.UUID
	DueFrom         *time.Time
	DueTo           *time.Time
}

// InvoiceStatistics summarises the invoices of a tenant
type InvoiceStatistics struct {
	TotalCount         int64
	ActiveCount        int64
	CancelledCount     int64
	PendingCount       int64
	PartiallyPaidCount int64
	PaidCount          int64
	OverdueCount       int64
	TotalInvoiced      decimal.Decimal // final payable total of active invoices
	TotalPaid          decimal.Decimal // paid amount of active invoices
	TotalOutstanding   decimal.Decimal // unpaid remainder of active invoices
	TotalOverdue       decimal.Decimal // unpaid remainder of overdue invoices
	TotalCredited      decimal.Decimal // amount of all credit notes
}

// PaymentOutcome is the committed state of an invoice after an atomic payment update
type PaymentOutcome struct {
	PaidAmount    decimal.Decimal
	PaymentStatus PaymentStatus
	Version       int
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID for a specific tenant, including its payments
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindActiveByQuote finds the single active invoice of a quote
	FindActiveByQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (*Invoice, error)

	// ExistsForQuote reports whether any invoice, active or cancelled, references the quote
	ExistsForQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (bool, error)

	// FindAllForTenant finds all invoices for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForTenant counts invoices for a tenant with filtering
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// Create inserts a new invoice. A second active invoice for the same quote is a Conflict.
	Create(ctx context.Context, invoice *Invoice) error

	// SaveCancellation persists a cancellation, conditional on the invoice still being
	// active at its previous version. Losing that race is a Conflict.
	SaveCancellation(ctx context.Context, invoice *Invoice) error

	// ApplyPayment inserts the ledger entry and adds its amount to the invoice in one
	// atomic update whose payment status is derived from the updated amount.
	// A cancelled invoice is reported as InvalidState.
	ApplyPayment(ctx context.Context, payment *Payment, now time.Time) (*PaymentOutcome, error)

	// MarkOverdue moves every underpaid active invoice past its due date to overdue
	// and returns the number of invoices changed.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	// MarkOverdueForTenant is MarkOverdue restricted to one tenant
	MarkOverdueForTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error)

	// GetStatistics aggregates invoice figures for a tenant
	GetStatistics(ctx context.Context, tenantID uuid.UUID) (*InvoiceStatistics, error)
}

// CreditNoteFilter defines filtering options for credit note queries
type CreditNoteFilter struct {
	shared.Filter
	InvoiceID *uuid.UUID
	QuoteID   *uuid.UUID
}

// CreditNoteRepository defines the interface for credit note persistence
type CreditNoteRepository interface {
	// FindByIDForTenant finds a credit note by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CreditNote, error)

	// FindByInvoice finds the credit note reversing an invoice
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*CreditNote, error)

	// FindAllForTenant finds all credit notes for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter CreditNoteFilter) ([]CreditNote, error)

	// CountForTenant counts credit notes for a tenant with filtering
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter CreditNoteFilter) (int64, error)

	// Create inserts a credit note. A second credit note for the same invoice is a Conflict.
	Create(ctx context.Context, creditNote *CreditNote) error
}

// ReplacementRepository defines the interface for replacement saga persistence
type ReplacementRepository interface {
	// FindPendingByQuote finds the unfinished replacement of a quote, if any
	FindPendingByQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (*InvoiceReplacement, error)

	// FindPending lists unfinished replacements across tenants, oldest first
	FindPending(ctx context.Context, limit int) ([]InvoiceReplacement, error)

	// Create inserts a replacement record. A second record for the same old invoice is a Conflict.
	Create(ctx context.Context, replacement *InvoiceReplacement) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, replacement *InvoiceReplacement) error
}
