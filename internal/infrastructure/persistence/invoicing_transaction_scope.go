package persistence

import (
	"context"

	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/garage/backoffice/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db       *gorm.DB
	counters invoicing.CounterStore
}

// NewGormTransactionScope creates a new GormTransactionScope.
// Document numbers come from the document_sequences table of the same transaction.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// WithCounterStore returns a scope that draws document numbers from an external
// counter store instead of the database. Numbers drawn by a transaction that
// rolls back are then lost, leaving a gap in the series.
func (s *GormTransactionScope) WithCounterStore(counters invoicing.CounterStore) *GormTransactionScope {
	return &GormTransactionScope{db: s.db, counters: counters}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx, counters: s.counters}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx       *gorm.DB
	counters invoicing.CounterStore
}

// Quotes returns the quote repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Quotes() invoicing.QuoteRepository {
	return NewGormQuoteRepository(r.tx)
}

// Invoices returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Invoices() invoicing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// CreditNotes returns the credit note repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CreditNotes() invoicing.CreditNoteRepository {
	return NewGormCreditNoteRepository(r.tx)
}

// Replacements returns the replacement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Replacements() invoicing.ReplacementRepository {
	return NewGormReplacementRepository(r.tx)
}

// Sequences returns the document number generator for the current transaction.
func (r *gormTransactionalRepositories) Sequences() *invoicing.SequenceGenerator {
	if r.counters != nil {
		return invoicing.NewSequenceGenerator(r.counters)
	}
	return invoicing.NewSequenceGenerator(NewGormCounterStore(r.tx))
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
