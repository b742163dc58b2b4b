package persistence

import (
	"context"
	"strings"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/garage/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCreditNoteRepository implements CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// FindByIDForTenant finds a credit note by ID for a specific tenant
func (r *GormCreditNoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.CreditNote, error) {
	var model models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "Credit note")
	}
	return model.ToDomain(), nil
}

// FindByInvoice finds the credit note reversing an invoice
func (r *GormCreditNoteRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*invoicing.CreditNote, error) {
	var model models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("invoice_id = ?", invoiceID).
		First(&model).Error; err != nil {
		return nil, translateError(err, "Credit note")
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all credit notes for a tenant with filtering
func (r *GormCreditNoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.CreditNoteFilter) ([]invoicing.CreditNote, error) {
	var noteModels []models.CreditNoteModel
	query := r.db.WithContext(ctx).Model(&models.CreditNoteModel{}).
		Scopes(tenant.TenantScope(tenantID))
	query = r.applyFilter(query, filter)
	query = applyPaging(query, filter.Filter, CreditNoteSortFields)

	if err := query.Find(&noteModels).Error; err != nil {
		return nil, translateError(err, "Credit note")
	}
	notes := make([]invoicing.CreditNote, len(noteModels))
	for i := range noteModels {
		notes[i] = *noteModels[i].ToDomain()
	}
	return notes, nil
}

// CountForTenant counts credit notes for a tenant with filtering
func (r *GormCreditNoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.CreditNoteFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.CreditNoteModel{}).
		Scopes(tenant.TenantScope(tenantID))
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err, "Credit note")
	}
	return count, nil
}

// Create inserts a credit note. The unique index on invoice_id refuses a second reversal.
func (r *GormCreditNoteRepository) Create(ctx context.Context, creditNote *invoicing.CreditNote) error {
	model := models.CreditNoteModelFromDomain(creditNote)
	return translateError(r.db.WithContext(ctx).Create(model).Error, "Credit note for invoice "+creditNote.InvoiceNumber)
}

func (r *GormCreditNoteRepository) applyFilter(query *gorm.DB, filter invoicing.CreditNoteFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(credit_note_number) LIKE ? OR LOWER(invoice_number) LIKE ? OR LOWER(client_name) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.QuoteID != nil {
		query = query.Where("quote_id = ?", *filter.QuoteID)
	}
	return query
}

var _ invoicing.CreditNoteRepository = (*GormCreditNoteRepository)(nil)
