package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteService handles quote business operations
type QuoteService struct {
	quoteRepo      invoicing.QuoteRepository
	invoiceRepo    invoicing.InvoiceRepository
	txScope        TransactionScope
	clients        invoicing.ClientDirectory
	vehicles       invoicing.VehicleDirectory
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	quoteRepo invoicing.QuoteRepository,
	invoiceRepo invoicing.InvoiceRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		txScope:     txScope,
		logger:      logger,
	}
}

// SetDirectories sets the client and vehicle lookups used to validate references
func (s *QuoteService) SetDirectories(clients invoicing.ClientDirectory, vehicles invoicing.VehicleDirectory) {
	s.clients = clients
	s.vehicles = vehicles
}

// SetEventPublisher sets the event publisher
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new draft quote
func (s *QuoteService) Create(ctx context.Context, tenantID uuid.UUID, createdBy *uuid.UUID, req CreateQuoteRequest) (*QuoteResponse, error) {
	content := req.toContent()
	if err := content.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, tenantID, content); err != nil {
		return nil, err
	}

	var quote *invoicing.Quote
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.Sequences().Next(ctx, tenantID, invoicing.DocumentKindQuote)
		if err != nil {
			return err
		}
		quote, err = invoicing.NewQuote(tenantID, number, content, createdBy)
		if err != nil {
			return err
		}
		return repos.Quotes().Create(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quote created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("quote_number", quote.QuoteNumber),
		zap.String("final_payable_total", quote.FinalPayableTotal.String()),
	)
	s.publish(ctx, quote)

	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// GetByID retrieves a quote by ID
func (s *QuoteService) GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// List retrieves a paginated list of quotes
func (s *QuoteService) List(ctx context.Context, tenantID uuid.UUID, filter QuoteListFilter) ([]QuoteListItemResponse, int64, error) {
	domainFilter, err := filter.toDomain()
	if err != nil {
		return nil, 0, err
	}

	quotes, err := s.quoteRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.quoteRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToQuoteListItemResponses(quotes), total, nil
}

// Update replaces the content of a quote. The quote returns to draft and
// must be accepted again before it can be invoiced.
func (s *QuoteService) Update(ctx context.Context, tenantID, quoteID uuid.UUID, req UpdateQuoteRequest) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	content := req.toContent()
	if err := content.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, tenantID, content); err != nil {
		return nil, err
	}
	previous := quote.Status
	if err := quote.Revise(content); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.SaveWithLock(ctx, quote); err != nil {
		return nil, err
	}

	s.logger.Info("Quote revised",
		zap.String("tenant_id", tenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.Int("revision", quote.Revision),
		zap.String("previous_status", previous.String()),
	)
	s.publish(ctx, quote)

	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// ChangeStatus moves a quote to sent, accepted or refused
func (s *QuoteService) ChangeStatus(ctx context.Context, tenantID, quoteID uuid.UUID, req ChangeQuoteStatusRequest) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if err := quote.ChangeStatus(invoicing.QuoteStatus(req.Status)); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.SaveWithLock(ctx, quote); err != nil {
		return nil, err
	}

	s.logger.Info("Quote status changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("status", quote.Status.String()),
	)
	s.publish(ctx, quote)

	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// AcknowledgeDispatch records that the document dispatcher delivered the quote
// to the client, which moves the quote to sent.
func (s *QuoteService) AcknowledgeDispatch(ctx context.Context, tenantID, quoteID uuid.UUID, req DispatchAcknowledgementRequest) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	dispatchedAt := time.Now()
	if req.DispatchedAt != nil {
		dispatchedAt = *req.DispatchedAt
	}
	if err := quote.MarkDispatched(req.Reference, dispatchedAt); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.SaveWithLock(ctx, quote); err != nil {
		return nil, err
	}

	s.logger.Info("Quote dispatch acknowledged",
		zap.String("tenant_id", tenantID.String()),
		zap.String("quote_id", quote.ID.String()),
		zap.String("reference", req.Reference),
		zap.String("channel", req.Channel),
	)
	s.publish(ctx, quote)

	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// Delete destroys a quote that is not accepted and was never invoiced
func (s *QuoteService) Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error {
	var quote *invoicing.Quote
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		quote, err = repos.Quotes().FindByIDForUpdate(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		invoiced, err := repos.Invoices().ExistsForQuote(ctx, tenantID, quoteID)
		if err != nil {
			return err
		}
		if err := quote.EnsureDeletable(invoiced); err != nil {
			return err
		}
		return repos.Quotes().DeleteForTenant(ctx, tenantID, quoteID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Quote deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("quote_id", quoteID.String()),
		zap.String("quote_number", quote.QuoteNumber),
	)
	s.publish(ctx, quote)
	return nil
}

// checkReferences verifies that the client and vehicle exist in their directories
func (s *QuoteService) checkReferences(ctx context.Context, tenantID uuid.UUID, content invoicing.QuoteContent) error {
	if s.clients != nil {
		if _, err := s.clients.GetClient(ctx, tenantID, content.ClientID); err != nil {
			return directoryError(err, "Unknown client")
		}
	}
	if s.vehicles != nil && content.VehicleID != nil {
		vehicle, err := s.vehicles.GetVehicle(ctx, tenantID, *content.VehicleID)
		if err != nil {
			return directoryError(err, "Unknown vehicle")
		}
		if vehicle.ClientID != uuid.Nil && vehicle.ClientID != content.ClientID {
			return shared.NewValidationError("Vehicle does not belong to the client")
		}
	}
	return nil
}

func (s *QuoteService) publish(ctx context.Context, quote *invoicing.Quote) {
	events := quote.GetDomainEvents()
	quote.ClearDomainEvents()
	publishEvents(ctx, s.eventPublisher, s.logger, events)
}

// directoryError turns a lookup failure into a validation error for unknown
// references and an unavailable error for anything else.
func directoryError(err error, notFoundMessage string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewValidationError(notFoundMessage)
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewUnavailableError("Directory lookup failed", err)
}

func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}
