package invoicing

import (
	"context"
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockQuoteRepository is a mock implementation of QuoteRepository
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.QuoteFilter) ([]invoicing.Quote, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Quote), args.Error(1)
}

func (m *MockQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.QuoteFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuoteRepository) Create(ctx context.Context, quote *invoicing.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepository) SaveWithLock(ctx context.Context, quote *invoicing.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindActiveByQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, tenantID, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsForQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, quoteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveCancellation(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ApplyPayment(ctx context.Context, payment *invoicing.Payment, now time.Time) (*invoicing.PaymentOutcome, error) {
	args := m.Called(ctx, payment, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.PaymentOutcome), args.Error(1)
}

func (m *MockInvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) MarkOverdueForTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) GetStatistics(ctx context.Context, tenantID uuid.UUID) (*invoicing.InvoiceStatistics, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.InvoiceStatistics), args.Error(1)
}

// MockCreditNoteRepository is a mock implementation of CreditNoteRepository
type MockCreditNoteRepository struct {
	mock.Mock
}

func (m *MockCreditNoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.CreditNote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.CreditNote), args.Error(1)
}

func (m *MockCreditNoteRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*invoicing.CreditNote, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.CreditNote), args.Error(1)
}

func (m *MockCreditNoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.CreditNoteFilter) ([]invoicing.CreditNote, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.CreditNote), args.Error(1)
}

func (m *MockCreditNoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.CreditNoteFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCreditNoteRepository) Create(ctx context.Context, creditNote *invoicing.CreditNote) error {
	args := m.Called(ctx, creditNote)
	return args.Error(0)
}

// MockReplacementRepository is a mock implementation of ReplacementRepository
type MockReplacementRepository struct {
	mock.Mock
}

func (m *MockReplacementRepository) FindPendingByQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (*invoicing.InvoiceReplacement, error) {
	args := m.Called(ctx, tenantID, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.InvoiceReplacement), args.Error(1)
}

func (m *MockReplacementRepository) FindPending(ctx context.Context, limit int) ([]invoicing.InvoiceReplacement, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.InvoiceReplacement), args.Error(1)
}

func (m *MockReplacementRepository) Create(ctx context.Context, replacement *invoicing.InvoiceReplacement) error {
	args := m.Called(ctx, replacement)
	return args.Error(0)
}

func (m *MockReplacementRepository) SaveWithLock(ctx context.Context, replacement *invoicing.InvoiceReplacement) error {
	args := m.Called(ctx, replacement)
	return args.Error(0)
}

// MockCounterStore is a mock implementation of CounterStore
type MockCounterStore struct {
	mock.Mock
}

func (m *MockCounterStore) NextValue(ctx context.Context, tenantID uuid.UUID, kind invoicing.DocumentKind) (int64, error) {
	args := m.Called(ctx, tenantID, kind)
	return args.Get(0).(int64), args.Error(1)
}

// MockClientDirectory is a mock implementation of ClientDirectory
type MockClientDirectory struct {
	mock.Mock
}

func (m *MockClientDirectory) GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*invoicing.Client, error) {
	args := m.Called(ctx, tenantID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Client), args.Error(1)
}

// MockVehicleDirectory is a mock implementation of VehicleDirectory
type MockVehicleDirectory struct {
	mock.Mock
}

func (m *MockVehicleDirectory) GetVehicle(ctx context.Context, tenantID, vehicleID uuid.UUID) (*invoicing.Vehicle, error) {
	args := m.Called(ctx, tenantID, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Vehicle), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordDocumentIssued(ctx context.Context, tenantID uuid.UUID, kind string, amount decimal.Decimal) {
	m.Called(ctx, tenantID, kind, amount)
}

func (m *MockMetricsRecorder) RecordQuoteTransition(ctx context.Context, tenantID uuid.UUID, status string) {
	m.Called(ctx, tenantID, status)
}

func (m *MockMetricsRecorder) RecordInvoiceReplaced(ctx context.Context, tenantID uuid.UUID) {
	m.Called(ctx, tenantID)
}

func (m *MockMetricsRecorder) RecordPayment(ctx context.Context, tenantID uuid.UUID, method, status string, amount decimal.Decimal) {
	m.Called(ctx, tenantID, method, status, amount)
}

// Test helpers
var (
	testTenantID = uuid.New()
	testUserID   = uuid.New()
	testClientID = uuid.New()
)

type testRepos struct {
	quotes       *MockQuoteRepository
	invoices     *MockInvoiceRepository
	creditNotes  *MockCreditNoteRepository
	replacements *MockReplacementRepository
	counters     *MockCounterStore
	scope        *NoOpTransactionScope
}

func newTestRepos() *testRepos {
	r := &testRepos{
		quotes:       new(MockQuoteRepository),
		invoices:     new(MockInvoiceRepository),
		creditNotes:  new(MockCreditNoteRepository),
		replacements: new(MockReplacementRepository),
		counters:     new(MockCounterStore),
	}
	r.scope = NewNoOpTransactionScope(r.quotes, r.invoices, r.creditNotes, r.replacements, invoicing.NewSequenceGenerator(r.counters))
	return r
}

func testContentRequest() QuoteContentRequest {
	return QuoteContentRequest{
		ClientID:           testClientID,
		VehicleDescription: "Renault Clio (AB-123-CD)",
		LineItems: []LineItemInput{
			{Description: "Brake pads", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
		},
		LaborCost:    decimal.NewFromInt(120),
		TaxRate:      decimal.NewFromInt(20),
		DiscountRate: decimal.NewFromInt(10),
	}
}

// newAcceptedQuote builds an accepted quote with final payable total 345.60
func newAcceptedQuote() *invoicing.Quote {
	q, err := invoicing.NewQuote(testTenantID, "DEV-000001", testContentRequest().toContent(), &testUserID)
	if err != nil {
		panic(err)
	}
	if err := q.ChangeStatus(invoicing.QuoteStatusAccepted); err != nil {
		panic(err)
	}
	q.ClearDomainEvents()
	return q
}

func newIssuedInvoice(q *invoicing.Quote, number string) *invoicing.Invoice {
	inv, err := invoicing.IssueInvoice(number, q, invoicing.NewPartySnapshot(q, nil, nil), time.Now(), invoicing.DefaultPaymentTerm, &testUserID)
	if err != nil {
		panic(err)
	}
	inv.ClearDomainEvents()
	return inv
}
