package handler

import (
	"context"

	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockQuoteService implements QuoteService for testing
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) Create(ctx context.Context, tenantID uuid.UUID, createdBy *uuid.UUID, req appinv.CreateQuoteRequest) (*appinv.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, createdBy, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*appinv.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) List(ctx context.Context, tenantID uuid.UUID, filter appinv.QuoteListFilter) ([]appinv.QuoteListItemResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]appinv.QuoteListItemResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuoteService) Update(ctx context.Context, tenantID, quoteID uuid.UUID, req appinv.UpdateQuoteRequest) (*appinv.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) ChangeStatus(ctx context.Context, tenantID, quoteID uuid.UUID, req appinv.ChangeQuoteStatusRequest) (*appinv.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) AcknowledgeDispatch(ctx context.Context, tenantID, quoteID uuid.UUID, req appinv.DispatchAcknowledgementRequest) (*appinv.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error {
	args := m.Called(ctx, tenantID, quoteID)
	return args.Error(0)
}

// MockInvoicingService implements InvoicingService for testing
type MockInvoicingService struct {
	mock.Mock
}

func (m *MockInvoicingService) EnsureInvoice(ctx context.Context, tenantID, quoteID uuid.UUID, userID *uuid.UUID) (*appinv.EnsureInvoiceResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.EnsureInvoiceResponse), args.Error(1)
}

func (m *MockInvoicingService) RecordPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, userID *uuid.UUID, req appinv.RecordPaymentRequest) (*appinv.InvoiceResponse, error) {
	args := m.Called(ctx, tenantID, invoiceID, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.InvoiceResponse), args.Error(1)
}

func (m *MockInvoicingService) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, req appinv.CancelInvoiceRequest) (*appinv.InvoiceResponse, error) {
	args := m.Called(ctx, tenantID, invoiceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.InvoiceResponse), args.Error(1)
}

func (m *MockInvoicingService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appinv.InvoiceResponse, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.InvoiceResponse), args.Error(1)
}

func (m *MockInvoicingService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter appinv.InvoiceListFilter) ([]appinv.InvoiceListItemResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]appinv.InvoiceListItemResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoicingService) GetInvoiceStatistics(ctx context.Context, tenantID uuid.UUID) (*appinv.InvoiceStatisticsResponse, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.InvoiceStatisticsResponse), args.Error(1)
}

func (m *MockInvoicingService) GetCreditNote(ctx context.Context, tenantID, creditNoteID uuid.UUID) (*appinv.CreditNoteResponse, error) {
	args := m.Called(ctx, tenantID, creditNoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appinv.CreditNoteResponse), args.Error(1)
}

func (m *MockInvoicingService) ListCreditNotes(ctx context.Context, tenantID uuid.UUID, filter appinv.CreditNoteListFilter) ([]appinv.CreditNoteResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]appinv.CreditNoteResponse), args.Get(1).(int64), args.Error(2)
}

var (
	_ QuoteService     = (*MockQuoteService)(nil)
	_ InvoicingService = (*MockInvoicingService)(nil)
)
