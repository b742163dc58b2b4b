package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentKind identifies a numbered document series
type DocumentKind string

const (
	DocumentKindQuote      DocumentKind = "quote"
	DocumentKindInvoice    DocumentKind = "invoice"
	DocumentKindCreditNote DocumentKind = "credit_note"
)

// NumberWidth is the zero-padded width of the numeric part of a document number
const NumberWidth = 6

// IsValid checks if the kind is known
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindQuote, DocumentKindInvoice, DocumentKindCreditNote:
		return true
	}
	return false
}

// Prefix returns the printed prefix of the series
func (k DocumentKind) Prefix() string {
	switch k {
	case DocumentKindQuote:
		return "DEV"
	case DocumentKindInvoice:
		return "FAC"
	case DocumentKindCreditNote:
		return "AV"
	}
	return ""
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// FormatDocumentNumber renders a counter value, e.g. FAC-000042
func FormatDocumentNumber(kind DocumentKind, value int64) string {
	return fmt.Sprintf("%s-%0*d", kind.Prefix(), NumberWidth, value)
}

// CounterStore atomically increments and returns the counter of a series.
// Implementations must never return the same value twice for the same tenant and kind.
type CounterStore interface {
	NextValue(ctx context.Context, tenantID uuid.UUID, kind DocumentKind) (int64, error)
}

// SequenceGenerator hands out document numbers from a CounterStore
type SequenceGenerator struct {
	store CounterStore
}

// NewSequenceGenerator creates a generator over the given store
func NewSequenceGenerator(store CounterStore) *SequenceGenerator {
	return &SequenceGenerator{store: store}
}

// Next returns the next number of the series.
// Store failures are reported as Unavailable so that no document is created without a number.
func (g *SequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, kind DocumentKind) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewValidationError("Unknown document kind: " + string(kind))
	}
	value, err := g.store.NextValue(ctx, tenantID, kind)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return "", err
		}
		return "", shared.NewUnavailableError("Document sequence unavailable", err)
	}
	if value <= 0 {
		return "", shared.NewUnavailableError("Document sequence returned an invalid value", nil)
	}
	return FormatDocumentNumber(kind, value), nil
}
