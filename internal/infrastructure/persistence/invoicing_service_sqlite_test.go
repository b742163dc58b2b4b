package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type invoicingStack struct {
	db       *gorm.DB
	quotes   *appinv.QuoteService
	invoices *appinv.InvoicingService
}

func newInvoicingStack(t *testing.T) *invoicingStack {
	t.Helper()
	db := newSQLiteDB(t)
	scope := NewGormTransactionScope(db)
	directory := NewGormPartyDirectory(db)
	quoteRepo := NewGormQuoteRepository(db)
	invoiceRepo := NewGormInvoiceRepository(db)

	quotes := appinv.NewQuoteService(quoteRepo, invoiceRepo, scope, zap.NewNop())
	quotes.SetDirectories(directory, directory)

	invoices := appinv.NewInvoicingService(
		quoteRepo,
		invoiceRepo,
		NewGormCreditNoteRepository(db),
		NewGormReplacementRepository(db),
		scope,
		appinv.Config{PaymentTerm: 30 * 24 * time.Hour},
		zap.NewNop(),
	)
	invoices.SetDirectories(directory, directory)

	return &invoicingStack{db: db, quotes: quotes, invoices: invoices}
}

func quoteRequest(clientID uuid.UUID, vehicleID *uuid.UUID, unitPrice string) appinv.QuoteContentRequest {
	return appinv.QuoteContentRequest{
		ClientID:  clientID,
		VehicleID: vehicleID,
		LineItems: []appinv.LineItemInput{
			{Description: "Brake pads", Quantity: decimal.NewFromInt(2), UnitPrice: dec(unitPrice)},
		},
		LaborCost:    dec("50"),
		TaxRate:      dec("20"),
		DiscountRate: dec("10"),
	}
}

func (s *invoicingStack) acceptedQuote(t *testing.T, ctx context.Context, tenantID uuid.UUID) *appinv.QuoteResponse {
	t.Helper()
	clientID := seedClient(t, s.db, tenantID, "Jeanne Martin")
	vehicleID := seedVehicle(t, s.db, tenantID, clientID)

	quote, err := s.quotes.Create(ctx, tenantID, nil, appinv.CreateQuoteRequest{QuoteContentRequest: quoteRequest(clientID, &vehicleID, "100")})
	require.NoError(t, err)
	quote, err = s.quotes.ChangeStatus(ctx, tenantID, quote.ID, appinv.ChangeQuoteStatusRequest{Status: "accepted"})
	require.NoError(t, err)
	return quote
}

func TestInvoicingLifecycle_SQLite(t *testing.T) {
	stack := newInvoicingStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	quote := stack.acceptedQuote(t, ctx, tenantID)
	assert.Equal(t, "DEV-000001", quote.QuoteNumber)

	issued, err := stack.invoices.EnsureInvoice(ctx, tenantID, quote.ID, &userID)
	require.NoError(t, err)
	assert.Equal(t, appinv.OutcomeIssued, issued.Outcome)
	assert.Equal(t, "FAC-000001", issued.Invoice.InvoiceNumber)
	assert.Equal(t, "Jeanne Martin", issued.Invoice.ClientName)
	assert.Equal(t, "Renault Clio (AB-123-CD)", issued.Invoice.VehicleDescription)
	assert.Equal(t, "VF1RJA00000000001", issued.Invoice.VehicleVIN)
	assert.True(t, issued.Invoice.FinalPayableTotal.Equal(dec("270")))

	again, err := stack.invoices.EnsureInvoice(ctx, tenantID, quote.ID, &userID)
	require.NoError(t, err)
	assert.Equal(t, appinv.OutcomeExisting, again.Outcome)
	assert.Equal(t, issued.Invoice.ID, again.Invoice.ID)

	paid, err := stack.invoices.RecordPayment(ctx, tenantID, issued.Invoice.ID, &userID, appinv.RecordPaymentRequest{
		Amount: dec("70"),
		Method: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, invoicing.PaymentStatusPartiallyPaid.String(), paid.PaymentStatus)

	t.Run("a sub-cent payment is refused and leaves no ledger entry", func(t *testing.T) {
		_, err := stack.invoices.RecordPayment(ctx, tenantID, issued.Invoice.ID, &userID, appinv.RecordPaymentRequest{
			Amount: dec("0.004"),
			Method: "cash",
		})
		assert.ErrorIs(t, err, shared.ErrValidation)

		current, err := stack.invoices.GetInvoice(ctx, tenantID, issued.Invoice.ID)
		require.NoError(t, err)
		assert.True(t, current.PaidAmount.Equal(dec("70")))
		assert.Len(t, current.Payments, 1)
	})

	t.Run("a paid invoice cannot be cancelled administratively", func(t *testing.T) {
		_, err := stack.invoices.CancelInvoice(ctx, tenantID, issued.Invoice.ID, appinv.CancelInvoiceRequest{Reason: "mistake"})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("an invoiced quote cannot be deleted", func(t *testing.T) {
		err := stack.quotes.Delete(ctx, tenantID, quote.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	// Revise the quote, accept it again and replace the stale invoice.
	revised, err := stack.quotes.Update(ctx, tenantID, quote.ID, appinv.UpdateQuoteRequest{
		QuoteContentRequest: quoteRequest(quote.ClientID, quote.VehicleID, "150"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, revised.Revision)

	_, err = stack.invoices.EnsureInvoice(ctx, tenantID, quote.ID, &userID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "a draft quote is not invoiceable")

	_, err = stack.quotes.ChangeStatus(ctx, tenantID, quote.ID, appinv.ChangeQuoteStatusRequest{Status: "accepted"})
	require.NoError(t, err)

	replaced, err := stack.invoices.EnsureInvoice(ctx, tenantID, quote.ID, &userID)
	require.NoError(t, err)
	assert.Equal(t, appinv.OutcomeReplaced, replaced.Outcome)
	assert.Equal(t, "FAC-000002", replaced.Invoice.InvoiceNumber)
	assert.Equal(t, 2, replaced.Invoice.QuoteRevision)
	assert.True(t, replaced.Invoice.FinalPayableTotal.Equal(dec("378")))
	require.NotNil(t, replaced.CreditNote)
	assert.Equal(t, "AV-000001", replaced.CreditNote.CreditNoteNumber)
	assert.True(t, replaced.CreditNote.Amount.Equal(dec("270")))
	require.NotNil(t, replaced.ReplacedInvoiceID)
	assert.Equal(t, issued.Invoice.ID, *replaced.ReplacedInvoiceID)

	old, err := stack.invoices.GetInvoice(ctx, tenantID, issued.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.LifecycleStatusCancelled.String(), old.LifecycleStatus)
	require.NotNil(t, old.CreditNoteID)
	assert.Equal(t, replaced.CreditNote.ID, *old.CreditNoteID)
	assert.True(t, old.PaidAmount.Equal(dec("70")), "payments stay on the reversed invoice")

	t.Run("payments on the reversed invoice are refused", func(t *testing.T) {
		_, err := stack.invoices.RecordPayment(ctx, tenantID, old.ID, &userID, appinv.RecordPaymentRequest{
			Amount: dec("10"),
			Method: "cash",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("statistics reflect the replacement", func(t *testing.T) {
		stats, err := stack.invoices.GetInvoiceStatistics(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalCount)
		assert.Equal(t, int64(1), stats.ActiveCount)
		assert.Equal(t, int64(1), stats.CancelledCount)
		assert.True(t, stats.TotalInvoiced.Equal(dec("378")), "got %s", stats.TotalInvoiced)
		assert.True(t, stats.TotalCredited.Equal(dec("270")), "got %s", stats.TotalCredited)
	})

	t.Run("list credit notes of the quote", func(t *testing.T) {
		notes, total, err := stack.invoices.ListCreditNotes(ctx, tenantID, appinv.CreditNoteListFilter{QuoteID: quote.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, notes, 1)
		assert.Equal(t, issued.Invoice.ID, notes[0].InvoiceID)
	})
}

func TestEnsureInvoice_ConcurrentCallersIssueOnce_SQLite(t *testing.T) {
	stack := newInvoicingStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	quote := stack.acceptedQuote(t, ctx, tenantID)

	const callers = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[string]int{}
		ids      = map[uuid.UUID]bool{}
		errs     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := stack.invoices.EnsureInvoice(ctx, tenantID, quote.ID, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[resp.Outcome]++
			ids[resp.Invoice.ID] = true
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, outcomes[appinv.OutcomeIssued])
	assert.Equal(t, callers-1, outcomes[appinv.OutcomeExisting])
	assert.Len(t, ids, 1, "every caller sees the same invoice")

	invoices, total, err := stack.invoices.ListInvoices(ctx, tenantID, appinv.InvoiceListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, invoices, 1)
	assert.Equal(t, "FAC-000001", invoices[0].InvoiceNumber)
}

func TestResumePendingReplacements_SQLite(t *testing.T) {
	stack := newInvoicingStack(t)
	ctx := context.Background()
	tenantID := uuid.New()

	quote := stack.acceptedQuote(t, ctx, tenantID)
	issued, err := stack.invoices.EnsureInvoice(ctx, tenantID, quote.ID, nil)
	require.NoError(t, err)

	// Simulate a replacement interrupted after the credit note was committed.
	_, err = stack.quotes.Update(ctx, tenantID, quote.ID, appinv.UpdateQuoteRequest{
		QuoteContentRequest: quoteRequest(quote.ClientID, quote.VehicleID, "120"),
	})
	require.NoError(t, err)
	_, err = stack.quotes.ChangeStatus(ctx, tenantID, quote.ID, appinv.ChangeQuoteStatusRequest{Status: "accepted"})
	require.NoError(t, err)

	invoiceRepo := NewGormInvoiceRepository(stack.db)
	old, err := invoiceRepo.FindByIDForTenant(ctx, tenantID, issued.Invoice.ID)
	require.NoError(t, err)
	cn, err := invoicing.IssueCreditNote("AV-000001", old, "Quote revised", nil)
	require.NoError(t, err)
	require.NoError(t, NewGormCreditNoteRepository(stack.db).Create(ctx, cn))
	require.NoError(t, old.ReplaceWith(cn))
	require.NoError(t, invoiceRepo.SaveCancellation(ctx, old))
	require.NoError(t, NewGormReplacementRepository(stack.db).Create(ctx, invoicing.StartReplacement(old, cn, 2)))

	resumed, err := stack.invoices.ResumePendingReplacements(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)

	active, err := invoiceRepo.FindActiveByQuote(ctx, tenantID, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, active.QuoteRevision)

	credits, total, err := stack.invoices.ListCreditNotes(ctx, tenantID, appinv.CreditNoteListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "resuming never issues a second credit note")
	assert.Len(t, credits, 1)

	again, err := stack.invoices.ResumePendingReplacements(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, again)
}
