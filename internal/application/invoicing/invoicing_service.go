package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/garage/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxEnsureAttempts bounds how often ensureInvoice re-reads state after losing a race
const maxEnsureAttempts = 3

// Config holds invoicing policy settings
type Config struct {
	// PaymentTerm is the delay between issuance and due date
	PaymentTerm time.Duration
}

// InvoicingService orchestrates invoice issuance, payments and credit-note replacement
type InvoicingService struct {
	quoteRepo       invoicing.QuoteRepository
	invoiceRepo     invoicing.InvoiceRepository
	creditNoteRepo  invoicing.CreditNoteRepository
	replacementRepo invoicing.ReplacementRepository
	txScope         TransactionScope
	clients         invoicing.ClientDirectory
	vehicles        invoicing.VehicleDirectory
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
	config          Config
	now             func() time.Time
}

// NewInvoicingService creates a new InvoicingService
func NewInvoicingService(
	quoteRepo invoicing.QuoteRepository,
	invoiceRepo invoicing.InvoiceRepository,
	creditNoteRepo invoicing.CreditNoteRepository,
	replacementRepo invoicing.ReplacementRepository,
	txScope TransactionScope,
	config Config,
	logger *zap.Logger,
) *InvoicingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PaymentTerm <= 0 {
		config.PaymentTerm = invoicing.DefaultPaymentTerm
	}
	return &InvoicingService{
		quoteRepo:       quoteRepo,
		invoiceRepo:     invoiceRepo,
		creditNoteRepo:  creditNoteRepo,
		replacementRepo: replacementRepo,
		txScope:         txScope,
		logger:          logger,
		config:          config,
		now:             time.Now,
	}
}

// SetDirectories sets the client and vehicle lookups used for invoice snapshots
func (s *InvoicingService) SetDirectories(clients invoicing.ClientDirectory, vehicles invoicing.VehicleDirectory) {
	s.clients = clients
	s.vehicles = vehicles
}

// SetEventPublisher sets the event publisher
func (s *InvoicingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source
func (s *InvoicingService) SetClock(now func() time.Time) {
	s.now = now
}

// EnsureInvoice makes sure an accepted quote has exactly one active, up-to-date invoice.
//
// It issues the first invoice, returns the current one unchanged, or reverses a stale
// invoice with a credit note and issues a replacement. An interrupted replacement is
// resumed without issuing a second credit note.
func (s *InvoicingService) EnsureInvoice(ctx context.Context, tenantID, quoteID uuid.UUID, userID *uuid.UUID) (resp *EnsureInvoiceResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "invoice.ensure",
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrQuoteID, quoteID,
	)
	defer func() {
		if resp != nil {
			telemetry.SetAttributes(span,
				"outcome", string(resp.Outcome),
				telemetry.SpanAttrInvoiceID, resp.Invoice.ID,
			)
		}
		telemetry.EndSpan(span, err)
	}()

	var lastErr error
	for attempt := 1; attempt <= maxEnsureAttempts; attempt++ {
		resp, err = s.ensureInvoice(ctx, tenantID, quoteID, userID)
		if err == nil {
			return resp, nil
		}
		if !isRetryableConflict(err) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("Invoice state changed concurrently, re-reading",
			zap.String("quote_id", quoteID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

func (s *InvoicingService) ensureInvoice(ctx context.Context, tenantID, quoteID uuid.UUID, userID *uuid.UUID) (*EnsureInvoiceResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	// Refuse before any replacement step so that no credit note exists for an unaccepted quote.
	if err := quote.EnsureInvoiceable(); err != nil {
		return nil, err
	}

	pending, err := s.replacementRepo.FindPendingByQuote(ctx, tenantID, quoteID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if pending != nil {
		return s.completeReplacement(ctx, quote, pending, userID, OutcomeResumed)
	}

	active, err := s.invoiceRepo.FindActiveByQuote(ctx, tenantID, quoteID)
	if errors.Is(err, shared.ErrNotFound) {
		return s.issue(ctx, quote, userID)
	}
	if err != nil {
		return nil, err
	}
	if !active.IsStale(quote) {
		return &EnsureInvoiceResponse{Outcome: OutcomeExisting, Invoice: ToInvoiceResponse(active)}, nil
	}
	return s.replace(ctx, quote, active, userID)
}

// issue creates the first active invoice of a quote under the quote row lock
func (s *InvoicingService) issue(ctx context.Context, quote *invoicing.Quote, userID *uuid.UUID) (*EnsureInvoiceResponse, error) {
	parties, err := s.snapshotParties(ctx, quote)
	if err != nil {
		return nil, err
	}

	var invoice *invoicing.Invoice
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := s.lockInvoiceableQuote(ctx, repos, quote)
		if err != nil {
			return err
		}
		if _, err := repos.Invoices().FindActiveByQuote(ctx, quote.TenantID, quote.ID); err == nil {
			return shared.NewConflictError("An active invoice already exists for this quote")
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		invoice, err = s.issueWithin(ctx, repos, locked, parties, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice issued",
		zap.String("tenant_id", quote.TenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("final_payable_total", invoice.FinalPayableTotal.String()),
	)
	s.publishInvoice(ctx, invoice)

	return &EnsureInvoiceResponse{Outcome: OutcomeIssued, Invoice: ToInvoiceResponse(invoice)}, nil
}

// replace reverses a stale invoice and issues its replacement.
// The reversal (credit note, cancellation, replacement record) commits first so that
// a failure while issuing the new invoice leaves a resumable record behind.
func (s *InvoicingService) replace(ctx context.Context, quote *invoicing.Quote, stale *invoicing.Invoice, userID *uuid.UUID) (*EnsureInvoiceResponse, error) {
	var (
		creditNote  *invoicing.CreditNote
		old         *invoicing.Invoice
		replacement *invoicing.InvoiceReplacement
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := s.lockInvoiceableQuote(ctx, repos, quote)
		if err != nil {
			return err
		}
		old, err = repos.Invoices().FindActiveByQuote(ctx, quote.TenantID, quote.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewConflictError("Active invoice changed while replacing")
			}
			return err
		}
		if old.ID != stale.ID || !old.IsStale(locked) {
			return shared.NewConflictError("Active invoice changed while replacing")
		}

		number, err := repos.Sequences().Next(ctx, quote.TenantID, invoicing.DocumentKindCreditNote)
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("Quote %s revised (revision %d replaces %d)", locked.QuoteNumber, locked.Revision, old.QuoteRevision)
		creditNote, err = invoicing.IssueCreditNote(number, old, reason, userID)
		if err != nil {
			return err
		}
		if err := repos.CreditNotes().Create(ctx, creditNote); err != nil {
			return err
		}
		if err := old.ReplaceWith(creditNote); err != nil {
			return err
		}
		if err := repos.Invoices().SaveCancellation(ctx, old); err != nil {
			return err
		}
		replacement = invoicing.StartReplacement(old, creditNote, locked.Revision)
		return repos.Replacements().Create(ctx, replacement)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stale invoice reversed by credit note",
		zap.String("tenant_id", quote.TenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("invoice_id", old.ID.String()),
		zap.String("credit_note_id", creditNote.ID.String()),
		zap.String("credit_note_number", creditNote.CreditNoteNumber),
		zap.String("amount", creditNote.Amount.String()),
	)
	s.publishCreditNote(ctx, creditNote)
	s.publishInvoice(ctx, old)

	return s.completeReplacement(ctx, quote, replacement, userID, OutcomeReplaced)
}

// completeReplacement issues the new invoice of a replacement and closes the record.
// Any failure other than a lost race is reported as ReplacementIncomplete.
func (s *InvoicingService) completeReplacement(
	ctx context.Context,
	quote *invoicing.Quote,
	replacement *invoicing.InvoiceReplacement,
	userID *uuid.UUID,
	outcome string,
) (*EnsureInvoiceResponse, error) {
	parties, err := s.snapshotParties(ctx, quote)
	if err != nil {
		return nil, s.replacementFailed(ctx, replacement, err)
	}

	var invoice *invoicing.Invoice
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := s.lockInvoiceableQuote(ctx, repos, quote)
		if err != nil {
			return err
		}
		current, err := repos.Replacements().FindPendingByQuote(ctx, quote.TenantID, quote.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewConflictError("Replacement was completed concurrently")
			}
			return err
		}
		if current.ID != replacement.ID {
			return shared.NewConflictError("Replacement was completed concurrently")
		}

		invoice, err = s.issueWithin(ctx, repos, locked, parties, userID)
		if err != nil {
			return err
		}
		if err := current.Complete(invoice); err != nil {
			return err
		}
		if err := repos.Replacements().SaveWithLock(ctx, current); err != nil {
			return err
		}
		replacement = current
		return nil
	})
	if err != nil {
		if isRetryableConflict(err) {
			return nil, err
		}
		return nil, s.replacementFailed(ctx, replacement, err)
	}

	s.logger.Info("Replacement invoice issued",
		zap.String("tenant_id", quote.TenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("replacement_id", replacement.ID.String()),
		zap.String("old_invoice_id", replacement.OldInvoiceID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("outcome", outcome),
	)
	s.publishInvoice(ctx, invoice)
	publishEvents(ctx, s.eventPublisher, s.logger, []shared.DomainEvent{invoicing.NewInvoiceReplacedEvent(replacement)})

	resp := &EnsureInvoiceResponse{
		Outcome:           outcome,
		Invoice:           ToInvoiceResponse(invoice),
		ReplacedInvoiceID: &replacement.OldInvoiceID,
	}
	if creditNote, err := s.creditNoteRepo.FindByIDForTenant(ctx, quote.TenantID, replacement.CreditNoteID); err == nil {
		cn := ToCreditNoteResponse(creditNote)
		resp.CreditNote = &cn
	} else {
		s.logger.Warn("Failed to load credit note of completed replacement",
			zap.String("credit_note_id", replacement.CreditNoteID.String()),
			zap.Error(err),
		)
	}
	return resp, nil
}

// replacementFailed records the failed attempt and wraps the cause
func (s *InvoicingService) replacementFailed(ctx context.Context, replacement *invoicing.InvoiceReplacement, cause error) error {
	replacement.RecordFailure(cause)
	if err := s.replacementRepo.SaveWithLock(ctx, replacement); err != nil {
		s.logger.Warn("Failed to record replacement failure",
			zap.String("replacement_id", replacement.ID.String()),
			zap.Error(err),
		)
	}
	s.logger.Error("Invoice replacement incomplete",
		zap.String("tenant_id", replacement.TenantID.String()),
		zap.String("replacement_id", replacement.ID.String()),
		zap.String("quote_id", replacement.QuoteID.String()),
		zap.String("old_invoice_id", replacement.OldInvoiceID.String()),
		zap.String("credit_note_id", replacement.CreditNoteID.String()),
		zap.Int("attempts", replacement.Attempts),
		zap.Error(cause),
	)
	return invoicing.NewReplacementIncompleteError(replacement, cause)
}

// lockInvoiceableQuote re-reads the quote under a row lock and checks that it
// is still accepted at the revision observed before the transaction.
func (s *InvoicingService) lockInvoiceableQuote(ctx context.Context, repos TransactionalRepositories, observed *invoicing.Quote) (*invoicing.Quote, error) {
	locked, err := repos.Quotes().FindByIDForUpdate(ctx, observed.TenantID, observed.ID)
	if err != nil {
		return nil, err
	}
	if err := locked.EnsureInvoiceable(); err != nil {
		return nil, err
	}
	if locked.Revision != observed.Revision {
		return nil, shared.NewConflictError("Quote was revised while invoicing")
	}
	return locked, nil
}

func (s *InvoicingService) issueWithin(
	ctx context.Context,
	repos TransactionalRepositories,
	quote *invoicing.Quote,
	parties invoicing.PartySnapshot,
	userID *uuid.UUID,
) (*invoicing.Invoice, error) {
	number, err := repos.Sequences().Next(ctx, quote.TenantID, invoicing.DocumentKindInvoice)
	if err != nil {
		return nil, err
	}
	invoice, err := invoicing.IssueInvoice(number, quote, parties, s.now(), s.config.PaymentTerm, userID)
	if err != nil {
		return nil, err
	}
	if err := repos.Invoices().Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// snapshotParties reads the client and vehicle records printed on the invoice.
// Records missing from the directory leave their snapshot fields empty.
func (s *InvoicingService) snapshotParties(ctx context.Context, quote *invoicing.Quote) (invoicing.PartySnapshot, error) {
	var (
		client  *invoicing.Client
		vehicle *invoicing.Vehicle
		err     error
	)
	if s.clients != nil {
		client, err = s.clients.GetClient(ctx, quote.TenantID, quote.ClientID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return invoicing.PartySnapshot{}, shared.NewUnavailableError("Client directory lookup failed", err)
		}
		if client == nil {
			s.logger.Warn("Client missing from directory at invoicing time",
				zap.String("quote_id", quote.ID.String()),
				zap.String("client_id", quote.ClientID.String()),
			)
		}
	}
	if s.vehicles != nil && quote.VehicleID != nil {
		vehicle, err = s.vehicles.GetVehicle(ctx, quote.TenantID, *quote.VehicleID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return invoicing.PartySnapshot{}, shared.NewUnavailableError("Vehicle directory lookup failed", err)
		}
	}
	return invoicing.NewPartySnapshot(quote, client, vehicle), nil
}

// RecordPayment adds a payment to an active invoice
func (s *InvoicingService) RecordPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, userID *uuid.UUID, req RecordPaymentRequest) (_ *InvoiceResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "invoice.record_payment",
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrInvoiceID, invoiceID,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	paidAt := time.Time{}
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	payment, err := invoice.NewPayment(req.Amount, invoicing.PaymentMethod(req.Method), paidAt, req.Reference, userID)
	if err != nil {
		return nil, err
	}

	var outcome *invoicing.PaymentOutcome
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		outcome, err = repos.Invoices().ApplyPayment(ctx, payment, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	invoice.ConfirmPayment(payment, outcome.PaidAmount, outcome.PaymentStatus)
	invoice.Version = outcome.Version

	s.logger.Info("Payment recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("method", string(payment.Method)),
		zap.String("paid_amount", outcome.PaidAmount.String()),
		zap.String("payment_status", outcome.PaymentStatus.String()),
	)
	s.publishInvoice(ctx, invoice)

	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// CancelInvoice is the administrative cancellation of an invoice without payments
func (s *InvoicingService) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveCancellation(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("reason", invoice.CancelReason),
	)
	s.publishInvoice(ctx, invoice)

	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// GetInvoice retrieves an invoice with its payment ledger
func (s *InvoicingService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	if err := s.sweepTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// ListInvoices retrieves a paginated list of invoices
func (s *InvoicingService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceListItemResponse, int64, error) {
	domainFilter, err := filter.toDomain()
	if err != nil {
		return nil, 0, err
	}
	if err := s.sweepTenant(ctx, tenantID); err != nil {
		return nil, 0, err
	}

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceListItemResponses(invoices), total, nil
}

// GetInvoiceStatistics aggregates invoice figures for a tenant
func (s *InvoicingService) GetInvoiceStatistics(ctx context.Context, tenantID uuid.UUID) (*InvoiceStatisticsResponse, error) {
	if err := s.sweepTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	stats, err := s.invoiceRepo.GetStatistics(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceStatisticsResponse(stats)
	return &resp, nil
}

// GetCreditNote retrieves a credit note by ID
func (s *InvoicingService) GetCreditNote(ctx context.Context, tenantID, creditNoteID uuid.UUID) (*CreditNoteResponse, error) {
	creditNote, err := s.creditNoteRepo.FindByIDForTenant(ctx, tenantID, creditNoteID)
	if err != nil {
		return nil, err
	}
	resp := ToCreditNoteResponse(creditNote)
	return &resp, nil
}

// ListCreditNotes retrieves a paginated list of credit notes
func (s *InvoicingService) ListCreditNotes(ctx context.Context, tenantID uuid.UUID, filter CreditNoteListFilter) ([]CreditNoteResponse, int64, error) {
	domainFilter, err := filter.toDomain()
	if err != nil {
		return nil, 0, err
	}
	notes, err := s.creditNoteRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.creditNoteRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToCreditNoteResponses(notes), total, nil
}

// SweepOverdue moves every underpaid invoice past its due date to overdue.
// It is idempotent and safe to run concurrently with payments.
func (s *InvoicingService) SweepOverdue(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "invoice.sweep_overdue")
	changed, err := s.invoiceRepo.MarkOverdue(ctx, s.now())
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, changed)
	telemetry.EndSpan(span, err)
	return changed, err
}

// ResumePendingReplacements retries replacements whose new invoice was never issued.
// Quotes that are no longer accepted are skipped; their replacement resumes on the
// next ensureInvoice after re-acceptance.
func (s *InvoicingService) ResumePendingReplacements(ctx context.Context, limit int) (int, error) {
	pending, err := s.replacementRepo.FindPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for i := range pending {
		r := &pending[i]
		_, err := s.EnsureInvoice(ctx, r.TenantID, r.QuoteID, nil)
		switch {
		case err == nil:
			resumed++
		case errors.Is(err, shared.ErrInvalidState):
			s.logger.Debug("Skipping replacement of a quote that is not accepted",
				zap.String("replacement_id", r.ID.String()),
				zap.String("quote_id", r.QuoteID.String()),
			)
		default:
			s.logger.Warn("Failed to resume replacement",
				zap.String("replacement_id", r.ID.String()),
				zap.String("quote_id", r.QuoteID.String()),
				zap.Error(err),
			)
		}
	}
	return resumed, nil
}

func (s *InvoicingService) sweepTenant(ctx context.Context, tenantID uuid.UUID) error {
	changed, err := s.invoiceRepo.MarkOverdueForTenant(ctx, tenantID, s.now())
	if err != nil {
		return err
	}
	if changed > 0 {
		s.logger.Debug("Invoices marked overdue before read",
			zap.String("tenant_id", tenantID.String()),
			zap.Int64("count", changed),
		)
	}
	return nil
}

func (s *InvoicingService) publishInvoice(ctx context.Context, invoice *invoicing.Invoice) {
	events := invoice.GetDomainEvents()
	invoice.ClearDomainEvents()
	publishEvents(ctx, s.eventPublisher, s.logger, events)
}

func (s *InvoicingService) publishCreditNote(ctx context.Context, creditNote *invoicing.CreditNote) {
	events := creditNote.GetDomainEvents()
	creditNote.ClearDomainEvents()
	publishEvents(ctx, s.eventPublisher, s.logger, events)
}

// isRetryableConflict reports a lost race that a fresh read can resolve.
// A ReplacementIncomplete error wrapping a conflict is not retried here.
func isRetryableConflict(err error) bool {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == shared.CodeConflict
}
