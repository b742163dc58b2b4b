package invoicing

import (
	"context"

	"github.com/garage/backoffice/internal/domain/invoicing"
)

// TransactionScope provides transactional access to invoicing repositories.
// All repository operations inside fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all invoicing repositories within a transaction.
//
// Sequences draws document numbers from the same transaction when the counter
// lives in the database, so a rolled back document never consumes a number.
type TransactionalRepositories interface {
	Quotes() invoicing.QuoteRepository
	Invoices() invoicing.InvoiceRepository
	CreditNotes() invoicing.CreditNoteRepository
	Replacements() invoicing.ReplacementRepository
	Sequences() *invoicing.SequenceGenerator
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// It is used by unit tests.
type NoOpTransactionScope struct {
	quotes       invoicing.QuoteRepository
	invoices     invoicing.InvoiceRepository
	creditNotes  invoicing.CreditNoteRepository
	replacements invoicing.ReplacementRepository
	sequences    *invoicing.SequenceGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	quotes invoicing.QuoteRepository,
	invoices invoicing.InvoiceRepository,
	creditNotes invoicing.CreditNoteRepository,
	replacements invoicing.ReplacementRepository,
	sequences *invoicing.SequenceGenerator,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		quotes:       quotes,
		invoices:     invoices,
		creditNotes:  creditNotes,
		replacements: replacements,
		sequences:    sequences,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Quotes returns the quote repository.
func (s *NoOpTransactionScope) Quotes() invoicing.QuoteRepository { return s.quotes }

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() invoicing.InvoiceRepository { return s.invoices }

// CreditNotes returns the credit note repository.
func (s *NoOpTransactionScope) CreditNotes() invoicing.CreditNoteRepository { return s.creditNotes }

// Replacements returns the replacement repository.
func (s *NoOpTransactionScope) Replacements() invoicing.ReplacementRepository {
	return s.replacements
}

// Sequences returns the document number generator.
func (s *NoOpTransactionScope) Sequences() *invoicing.SequenceGenerator { return s.sequences }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
