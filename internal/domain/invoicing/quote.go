package invoicing

import (
	"strings"
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRefused  QuoteStatus = "refused"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRefused:
		return true
	}
	return false
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// QuoteTransition is the closed set of ways a quote can change status
type QuoteTransition string

const (
	// TransitionRevise happens on every content edit and always lands on draft
	TransitionRevise QuoteTransition = "revise"
	TransitionSend   QuoteTransition = "send"
	TransitionAccept QuoteTransition = "accept"
	TransitionRefuse QuoteTransition = "refuse"
)

// Apply returns the status reached by taking transition t from s.
// The table is permissive: send, accept and refuse are allowed from every status.
func (s QuoteStatus) Apply(t QuoteTransition) (QuoteStatus, error) {
	switch t {
	case TransitionRevise:
		return QuoteStatusDraft, nil
	case TransitionSend:
		return QuoteStatusSent, nil
	case TransitionAccept:
		return QuoteStatusAccepted, nil
	case TransitionRefuse:
		return QuoteStatusRefused, nil
	}
	return s, shared.NewValidationError("Unknown quote transition: " + string(t))
}

// TransitionTo maps a requested target status to its transition.
// Draft is not a valid target: a quote only returns to draft by being edited.
func TransitionTo(target QuoteStatus) (QuoteTransition, error) {
	switch target {
	case QuoteStatusSent:
		return TransitionSend, nil
	case QuoteStatusAccepted:
		return TransitionAccept, nil
	case QuoteStatusRefused:
		return TransitionRefuse, nil
	case QuoteStatusDraft:
		return "", shared.NewValidationError("A quote returns to draft only when it is edited")
	}
	return "", shared.NewValidationError("Invalid quote status: " + string(target))
}

// QuoteContent is the editable content of a quote
type QuoteContent struct {
	ClientID                 uuid.UUID
	VehicleID                *uuid.UUID
	VehicleDescription       string
	InspectionDate           *time.Time
	EstimatedDurationMinutes int
	Notes                    string
	Pricing
}

// Validate checks the content independently of any stored state
func (c QuoteContent) Validate() error {
	if c.ClientID == uuid.Nil {
		return shared.NewValidationError("Client is required")
	}
	if strings.TrimSpace(c.VehicleDescription) == "" && c.VehicleID == nil {
		return shared.NewValidationError("Vehicle is required")
	}
	if c.EstimatedDurationMinutes < 0 {
		return shared.NewValidationError("Estimated duration cannot be negative")
	}
	return c.Pricing.Validate()
}

// Quote represents a priced proposal (devis) for work on a client's vehicle
type Quote struct {
	shared.TenantAggregateRoot
	QuoteNumber              string
	ClientID                 uuid.UUID
	VehicleID                *uuid.UUID
	VehicleDescription       string
	InspectionDate           *time.Time
	EstimatedDurationMinutes int
	Notes                    string
	LineItems                []LineItem
	LaborCost                decimal.Decimal
	TaxRate                  decimal.Decimal
	DiscountRate             decimal.Decimal
	Totals
	Status            QuoteStatus
	Revision          int
	ContentModifiedAt time.Time
	LastDispatchedAt  *time.Time
	DispatchReference string
}

// NewQuote creates a draft quote with totals computed from content
func NewQuote(tenantID uuid.UUID, number string, content QuoteContent, createdBy *uuid.UUID) (*Quote, error) {
	if number == "" {
		return nil, shared.NewValidationError("Quote number cannot be empty")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	q := &Quote{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy),
		QuoteNumber:         number,
		Status:              QuoteStatusDraft,
		Revision:            1,
	}
	q.applyContent(content)
	q.ContentModifiedAt = q.CreatedAt

	q.AddDomainEvent(NewQuoteCreatedEvent(q))
	return q, nil
}

// Revise replaces the content of the quote, recomputes its totals,
// bumps the content revision and returns the quote to draft.
func (q *Quote) Revise(content QuoteContent) error {
	if err := content.Validate(); err != nil {
		return err
	}
	previous := q.Status
	next, err := q.Status.Apply(TransitionRevise)
	if err != nil {
		return err
	}

	q.applyContent(content)
	q.Status = next
	q.Revision++
	q.Touch()
	q.ContentModifiedAt = q.UpdatedAt
	q.IncrementVersion()

	q.AddDomainEvent(NewQuoteRevisedEvent(q, previous))
	return nil
}

// ChangeStatus moves the quote to target, which must be sent, accepted or refused
func (q *Quote) ChangeStatus(target QuoteStatus) error {
	transition, err := TransitionTo(target)
	if err != nil {
		return err
	}
	return q.apply(transition)
}

// MarkDispatched records a successful delivery to the client and moves the quote to sent
func (q *Quote) MarkDispatched(reference string, dispatchedAt time.Time) error {
	if err := q.apply(TransitionSend); err != nil {
		return err
	}
	at := dispatchedAt.UTC()
	q.LastDispatchedAt = &at
	q.DispatchReference = reference
	return nil
}

func (q *Quote) apply(t QuoteTransition) error {
	previous := q.Status
	next, err := q.Status.Apply(t)
	if err != nil {
		return err
	}
	q.Status = next
	q.Touch()
	q.IncrementVersion()

	if previous != next {
		q.AddDomainEvent(NewQuoteStatusChangedEvent(q, previous))
	}
	return nil
}

// EnsureDeletable reports whether the quote may be destroyed.
// invoiced is true when any invoice, active or cancelled, references the quote.
func (q *Quote) EnsureDeletable(invoiced bool) error {
	if q.Status == QuoteStatusAccepted {
		return shared.NewInvalidStateError("An accepted quote cannot be deleted", q.Status.String())
	}
	if invoiced {
		return shared.NewInvalidStateError("A quote that has been invoiced cannot be deleted", q.Status.String())
	}
	q.AddDomainEvent(NewQuoteDeletedEvent(q))
	return nil
}

// EnsureInvoiceable reports whether an invoice may be issued from the quote
func (q *Quote) EnsureInvoiceable() error {
	if q.Status != QuoteStatusAccepted {
		return shared.NewInvalidStateError("Only an accepted quote can be invoiced", q.Status.String())
	}
	return nil
}

// Pricing returns the pricing input the totals were computed from
func (q *Quote) Pricing() Pricing {
	items := make([]LineItem, len(q.LineItems))
	copy(items, q.LineItems)
	return Pricing{
		LineItems:    items,
		LaborCost:    q.LaborCost,
		TaxRate:      q.TaxRate,
		DiscountRate: q.DiscountRate,
	}
}

func (q *Quote) applyContent(c QuoteContent) {
	q.ClientID = c.ClientID
	q.VehicleID = c.VehicleID
	q.VehicleDescription = strings.TrimSpace(c.VehicleDescription)
	q.InspectionDate = c.InspectionDate
	q.EstimatedDurationMinutes = c.EstimatedDurationMinutes
	q.Notes = c.Notes

	q.LineItems = make([]LineItem, len(c.LineItems))
	copy(q.LineItems, c.LineItems)
	q.LaborCost = c.LaborCost
	q.TaxRate = c.TaxRate
	q.DiscountRate = c.DiscountRate
	q.Totals = CalculateTotals(c.Pricing)
}
