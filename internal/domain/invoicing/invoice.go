package invoicing

import (
	"strings"
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPaymentTerm is the delay between issuance and due date
const DefaultPaymentTerm = 30 * 24 * time.Hour

// PaymentStatus represents how much of an invoice has been settled
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusOverdue       PaymentStatus = "overdue"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartiallyPaid, PaymentStatusPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// ResolvePaymentStatus derives the payment status from the cumulative paid amount.
// The SQL payment update in the persistence layer encodes the same rule.
func ResolvePaymentStatus(paid, total decimal.Decimal, dueDate, now time.Time) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case dueDate.Before(now):
		return PaymentStatusOverdue
	case paid.IsPositive():
		return PaymentStatusPartiallyPaid
	default:
		return PaymentStatusPending
	}
}

// LifecycleStatus tells whether an invoice is in force
type LifecycleStatus string

const (
	LifecycleStatusActive    LifecycleStatus = "active"
	LifecycleStatusCancelled LifecycleStatus = "cancelled"
)

// IsValid checks if the status is a valid LifecycleStatus
func (s LifecycleStatus) IsValid() bool {
	return s == LifecycleStatusActive || s == LifecycleStatusCancelled
}

// String returns the string representation of LifecycleStatus
func (s LifecycleStatus) String() string {
	return string(s)
}

// PaymentMethod is how the client settled a payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCheck:
		return true
	}
	return false
}

// Payment is one entry of an invoice's payment ledger
type Payment struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	Method     PaymentMethod
	PaidAt     time.Time
	Reference  string
	RecordedBy *uuid.UUID
	CreatedAt  time.Time
}

// Invoice is a legally numbered demand for payment (facture) issued from an accepted quote.
// An invoice is never deleted; it is cancelled instead.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string
	QuoteID       uuid.UUID
	QuoteNumber   string
	QuoteRevision int
	ClientID      uuid.UUID
	PartySnapshot
	LineItems    []LineItem
	LaborCost    decimal.Decimal
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	Totals
	IssuedAt        time.Time
	DueDate         time.Time
	PaidAmount      decimal.Decimal
	PaymentStatus   PaymentStatus
	LifecycleStatus LifecycleStatus
	CreditNoteID    *uuid.UUID
	CancelledAt     *time.Time
	CancelReason    string
	Payments        []Payment
}

// IssueInvoice creates an active invoice from an accepted quote.
// Quote content, totals and party data are copied so that later quote edits never alter the invoice.
func IssueInvoice(
	number string,
	quote *Quote,
	parties PartySnapshot,
	issuedAt time.Time,
	paymentTerm time.Duration,
	createdBy *uuid.UUID,
) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewValidationError("Invoice number cannot be empty")
	}
	if err := quote.EnsureInvoiceable(); err != nil {
		return nil, err
	}
	if paymentTerm <= 0 {
		paymentTerm = DefaultPaymentTerm
	}

	pricing := quote.Pricing()
	issuedAt = issuedAt.UTC()
	dueDate := issuedAt.Add(paymentTerm)

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(quote.TenantID, createdBy),
		InvoiceNumber:       number,
		QuoteID:             quote.ID,
		QuoteNumber:         quote.QuoteNumber,
		QuoteRevision:       quote.Revision,
		ClientID:            quote.ClientID,
		PartySnapshot:       parties,
		LineItems:           pricing.LineItems,
		LaborCost:           pricing.LaborCost,
		TaxRate:             pricing.TaxRate,
		DiscountRate:        pricing.DiscountRate,
		Totals:              quote.Totals,
		IssuedAt:            issuedAt,
		DueDate:             dueDate,
		PaidAmount:          decimal.Zero,
		LifecycleStatus:     LifecycleStatusActive,
	}
	inv.PaymentStatus = ResolvePaymentStatus(inv.PaidAmount, inv.FinalPayableTotal, dueDate, issuedAt)

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	return inv, nil
}

// IsActive returns true if the invoice is in force
func (i *Invoice) IsActive() bool {
	return i.LifecycleStatus == LifecycleStatusActive
}

// IsStale reports whether the quote was edited after this invoice was issued
func (i *Invoice) IsStale(q *Quote) bool {
	return i.QuoteID == q.ID && i.QuoteRevision != q.Revision
}

// OutstandingAmount returns what remains to be paid, never negative
func (i *Invoice) OutstandingAmount() decimal.Decimal {
	remaining := i.FinalPayableTotal.Sub(i.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// NewPayment validates a payment against the invoice without applying it.
// The cumulative amount is applied atomically by the repository.
func (i *Invoice) NewPayment(
	amount decimal.Decimal,
	method PaymentMethod,
	paidAt time.Time,
	reference string,
	recordedBy *uuid.UUID,
) (*Payment, error) {
	amount = roundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be at least 0.01")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method: " + string(method))
	}
	if !i.IsActive() {
		return nil, shared.NewInvalidStateError("Cannot record a payment on a cancelled invoice", i.LifecycleStatus.String())
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return &Payment{
		ID:         uuid.New(),
		TenantID:   i.TenantID,
		InvoiceID:  i.ID,
		Amount:     amount,
		Method:     method,
		PaidAt:     paidAt.UTC(),
		Reference:  strings.TrimSpace(reference),
		RecordedBy: recordedBy,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ConfirmPayment records the persisted outcome of a payment on the aggregate.
// paidAmount and status are the values committed by the atomic update.
func (i *Invoice) ConfirmPayment(p *Payment, paidAmount decimal.Decimal, status PaymentStatus) {
	previous := i.PaymentStatus
	i.PaidAmount = paidAmount
	i.PaymentStatus = status
	i.Payments = append(i.Payments, *p)
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoicePaymentRecordedEvent(i, p, previous))
}

// ReplaceWith cancels the invoice because a credit note reverses it.
// This is the only cancellation path available once payments exist.
func (i *Invoice) ReplaceWith(creditNote *CreditNote) error {
	if !i.IsActive() {
		return shared.NewInvalidStateError("Invoice is already cancelled", i.LifecycleStatus.String())
	}
	if creditNote.InvoiceID != i.ID {
		return shared.NewValidationError("Credit note does not reverse this invoice")
	}
	i.cancel("Replaced after quote revision", &creditNote.ID)
	return nil
}

// Cancel is the administrative cancellation. It is refused once any payment has been recorded;
// settled invoices can only be reversed through a credit note.
func (i *Invoice) Cancel(reason string) error {
	if !i.IsActive() {
		return shared.NewInvalidStateError("Invoice is already cancelled", i.LifecycleStatus.String())
	}
	if i.PaidAmount.IsPositive() {
		return shared.NewInvalidStateError("Cannot cancel an invoice with recorded payments", i.PaymentStatus.String())
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("Cancel reason is required")
	}
	i.cancel(strings.TrimSpace(reason), nil)
	return nil
}

func (i *Invoice) cancel(reason string, creditNoteID *uuid.UUID) {
	now := time.Now().UTC()
	i.LifecycleStatus = LifecycleStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = reason
	i.CreditNoteID = creditNoteID
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceCancelledEvent(i))
}
