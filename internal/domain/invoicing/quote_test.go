package invoicing

import (
	"errors"
	"testing"
	"time"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a DomainError, got %v", err)
	assert.Equal(t, code, de.Code)
}

func testContent() QuoteContent {
	return QuoteContent{
		ClientID:           uuid.New(),
		VehicleDescription: "Peugeot 208 (AB-123-CD)",
		Pricing: Pricing{
			LineItems:    []LineItem{{Description: "Brake pads", Quantity: dec("2"), UnitPrice: dec("100")}},
			LaborCost:    dec("50"),
			TaxRate:      dec("20"),
			DiscountRate: dec("10"),
		},
	}
}

func createTestQuote(t *testing.T) *Quote {
	t.Helper()
	q, err := NewQuote(uuid.New(), "DEV-000001", testContent(), nil)
	require.NoError(t, err)
	return q
}

func TestNewQuote(t *testing.T) {
	t.Run("computes totals and starts in draft", func(t *testing.T) {
		createdBy := uuid.New()
		q, err := NewQuote(uuid.New(), "DEV-000001", testContent(), &createdBy)

		require.NoError(t, err)
		assert.Equal(t, QuoteStatusDraft, q.Status)
		assert.Equal(t, 1, q.Revision)
		assert.Equal(t, 1, q.Version)
		assert.Equal(t, &createdBy, q.CreatedBy)
		assert.True(t, q.ServicesSubtotal.Equal(dec("200")))
		assert.True(t, q.FinalPayableTotal.Equal(dec("270")))
		assert.False(t, q.ContentModifiedAt.IsZero())
		require.Len(t, q.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeQuoteCreated, q.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		c := testContent()
		c.LineItems[0].Quantity = dec("0")

		_, err := NewQuote(uuid.New(), "DEV-000001", c, nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects negative unit price", func(t *testing.T) {
		c := testContent()
		c.LineItems[0].UnitPrice = dec("-1")

		_, err := NewQuote(uuid.New(), "DEV-000001", c, nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("requires client", func(t *testing.T) {
		c := testContent()
		c.ClientID = uuid.Nil

		_, err := NewQuote(uuid.New(), "DEV-000001", c, nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("requires number", func(t *testing.T) {
		_, err := NewQuote(uuid.New(), "", testContent(), nil)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestQuoteStatus_Apply(t *testing.T) {
	statuses := []QuoteStatus{QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRefused}
	transitions := map[QuoteTransition]QuoteStatus{
		TransitionRevise: QuoteStatusDraft,
		TransitionSend:   QuoteStatusSent,
		TransitionAccept: QuoteStatusAccepted,
		TransitionRefuse: QuoteStatusRefused,
	}

	for _, from := range statuses {
		for transition, want := range transitions {
			got, err := from.Apply(transition)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s --%s-->", from, transition)
		}
	}

	_, err := QuoteStatusDraft.Apply("archive")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestQuote_Revise(t *testing.T) {
	q := createTestQuote(t)
	require.NoError(t, q.ChangeStatus(QuoteStatusAccepted))
	q.ClearDomainEvents()

	c := testContent()
	c.ClientID = q.ClientID
	c.LineItems[0].UnitPrice = dec("150")

	require.NoError(t, q.Revise(c))

	assert.Equal(t, QuoteStatusDraft, q.Status, "an edit always returns the quote to draft")
	assert.Equal(t, 2, q.Revision)
	assert.True(t, q.ServicesSubtotal.Equal(dec("300")))
	assert.True(t, q.FinalPayableTotal.Equal(dec("378")))
	require.Len(t, q.GetDomainEvents(), 1)
	revised, ok := q.GetDomainEvents()[0].(*QuoteRevisedEvent)
	require.True(t, ok)
	assert.Equal(t, QuoteStatusAccepted, revised.PreviousStatus)
}

func TestQuote_ReviseRejectsInvalidContentWithoutChanges(t *testing.T) {
	q := createTestQuote(t)
	require.NoError(t, q.ChangeStatus(QuoteStatusAccepted))

	c := testContent()
	c.LineItems[0].Quantity = dec("-2")

	err := q.Revise(c)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, QuoteStatusAccepted, q.Status)
	assert.Equal(t, 1, q.Revision)
}

func TestQuote_ChangeStatus(t *testing.T) {
	t.Run("status change does not bump revision", func(t *testing.T) {
		q := createTestQuote(t)
		require.NoError(t, q.ChangeStatus(QuoteStatusSent))
		require.NoError(t, q.ChangeStatus(QuoteStatusAccepted))
		require.NoError(t, q.ChangeStatus(QuoteStatusRefused))
		require.NoError(t, q.ChangeStatus(QuoteStatusAccepted))

		assert.Equal(t, QuoteStatusAccepted, q.Status)
		assert.Equal(t, 1, q.Revision)
		assert.Equal(t, 5, q.Version)
	})

	t.Run("draft is not a valid target", func(t *testing.T) {
		q := createTestQuote(t)
		err := q.ChangeStatus(QuoteStatusDraft)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("unknown target", func(t *testing.T) {
		q := createTestQuote(t)
		err := q.ChangeStatus("archived")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestQuote_MarkDispatched(t *testing.T) {
	q := createTestQuote(t)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, q.MarkDispatched("mail-4521", at))

	assert.Equal(t, QuoteStatusSent, q.Status)
	assert.Equal(t, "mail-4521", q.DispatchReference)
	require.NotNil(t, q.LastDispatchedAt)
	assert.True(t, q.LastDispatchedAt.Equal(at))
}

func TestQuote_EnsureDeletable(t *testing.T) {
	t.Run("accepted quote", func(t *testing.T) {
		q := createTestQuote(t)
		require.NoError(t, q.ChangeStatus(QuoteStatusAccepted))

		err := q.EnsureDeletable(false)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		state, ok := shared.CurrentState(err)
		require.True(t, ok)
		assert.Equal(t, "accepted", state)
	})

	t.Run("invoiced quote", func(t *testing.T) {
		q := createTestQuote(t)
		err := q.EnsureDeletable(true)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("draft quote", func(t *testing.T) {
		q := createTestQuote(t)
		q.ClearDomainEvents()
		require.NoError(t, q.EnsureDeletable(false))
		require.Len(t, q.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeQuoteDeleted, q.GetDomainEvents()[0].EventType())
	})
}
