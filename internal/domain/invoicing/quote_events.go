package invoicing

import (
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant for Quote
const AggregateTypeQuote = "Quote"

// Event type constants for Quote
const (
	EventTypeQuoteCreated       = "QuoteCreated"
	EventTypeQuoteRevised       = "QuoteRevised"
	EventTypeQuoteStatusChanged = "QuoteStatusChanged"
	EventTypeQuoteDeleted       = "QuoteDeleted"
)

// QuoteCreatedEvent is raised when a new quote is created
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	QuoteID           uuid.UUID       `json:"quote_id"`
	QuoteNumber       string          `json:"quote_number"`
	ClientID          uuid.UUID       `json:"client_id"`
	FinalPayableTotal decimal.Decimal `json:"final_payable_total"`
}

// NewQuoteCreatedEvent creates a new QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateTypeQuote, q.ID, q.TenantID),
		QuoteID:           q.ID,
		QuoteNumber:       q.QuoteNumber,
		ClientID:          q.ClientID,
		FinalPayableTotal: q.FinalPayableTotal,
	}
}

// QuoteRevisedEvent is raised when the content of a quote is edited
type QuoteRevisedEvent struct {
	shared.BaseDomainEvent
	QuoteID           uuid.UUID       `json:"quote_id"`
	QuoteNumber       string          `json:"quote_number"`
	Revision          int             `json:"revision"`
	PreviousStatus    QuoteStatus     `json:"previous_status"`
	FinalPayableTotal decimal.Decimal `json:"final_payable_total"`
}

// NewQuoteRevisedEvent creates a new QuoteRevisedEvent
func NewQuoteRevisedEvent(q *Quote, previous QuoteStatus) *QuoteRevisedEvent {
	return &QuoteRevisedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeQuoteRevised, AggregateTypeQuote, q.ID, q.TenantID),
		QuoteID:           q.ID,
		QuoteNumber:       q.QuoteNumber,
		Revision:          q.Revision,
		PreviousStatus:    previous,
		FinalPayableTotal: q.FinalPayableTotal,
	}
}

// QuoteStatusChangedEvent is raised on send, accept and refuse
type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	QuoteID        uuid.UUID   `json:"quote_id"`
	QuoteNumber    string      `json:"quote_number"`
	PreviousStatus QuoteStatus `json:"previous_status"`
	Status         QuoteStatus `json:"status"`
}

// NewQuoteStatusChangedEvent creates a new QuoteStatusChangedEvent
func NewQuoteStatusChangedEvent(q *Quote, previous QuoteStatus) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteStatusChanged, AggregateTypeQuote, q.ID, q.TenantID),
		QuoteID:         q.ID,
		QuoteNumber:     q.QuoteNumber,
		PreviousStatus:  previous,
		Status:          q.Status,
	}
}

// QuoteDeletedEvent is raised when a quote is destroyed
type QuoteDeletedEvent struct {
	shared.BaseDomainEvent
	QuoteID     uuid.UUID `json:"quote_id"`
	QuoteNumber string    `json:"quote_number"`
}

// NewQuoteDeletedEvent creates a new QuoteDeletedEvent
func NewQuoteDeletedEvent(q *Quote) *QuoteDeletedEvent {
	return &QuoteDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteDeleted, AggregateTypeQuote, q.ID, q.TenantID),
		QuoteID:         q.ID,
		QuoteNumber:     q.QuoteNumber,
	}
}
