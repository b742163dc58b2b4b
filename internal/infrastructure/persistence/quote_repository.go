package persistence

import (
	"context"
	"strings"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/garage/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByIDForTenant finds a quote by ID for a specific tenant
func (r *GormQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "Quote")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads a quote with SELECT ... FOR UPDATE.
// SQLite has no row locks; its single writer already serializes transactions.
func (r *GormQuoteRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Quote, error) {
	var model models.QuoteModel
	query := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&model).Error; err != nil {
		return nil, translateError(err, "Quote")
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all quotes for a tenant with filtering
func (r *GormQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.QuoteFilter) ([]invoicing.Quote, error) {
	var quoteModels []models.QuoteModel
	query := r.db.WithContext(ctx).Model(&models.QuoteModel{}).
		Scopes(tenant.TenantScope(tenantID))
	query = r.applyFilter(query, filter)
	query = applyPaging(query, filter.Filter, QuoteSortFields)

	if err := query.Find(&quoteModels).Error; err != nil {
		return nil, translateError(err, "Quote")
	}
	quotes := make([]invoicing.Quote, len(quoteModels))
	for i := range quoteModels {
		quotes[i] = *quoteModels[i].ToDomain()
	}
	return quotes, nil
}

// CountForTenant counts quotes for a tenant with filtering
func (r *GormQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.QuoteFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.QuoteModel{}).
		Scopes(tenant.TenantScope(tenantID))
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err, "Quote")
	}
	return count, nil
}

// Create inserts a new quote
func (r *GormQuoteRepository) Create(ctx context.Context, quote *invoicing.Quote) error {
	model := models.QuoteModelFromDomain(quote)
	return translateError(r.db.WithContext(ctx).Create(model).Error, "Quote")
}

// SaveWithLock saves with optimistic locking.
// quote.Version has already been incremented by the domain change being saved.
func (r *GormQuoteRepository) SaveWithLock(ctx context.Context, quote *invoicing.Quote) error {
	model := models.QuoteModelFromDomain(quote)
	result := r.db.WithContext(ctx).
		Model(&models.QuoteModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", quote.ID, quote.TenantID, quote.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)

	if result.Error != nil {
		return translateError(result.Error, "Quote")
	}
	if result.RowsAffected == 0 {
		return optimisticLockError("Quote")
	}
	return nil
}

// DeleteForTenant removes a quote
func (r *GormQuoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		Delete(&models.QuoteModel{})
	if result.Error != nil {
		return translateError(result.Error, "Quote")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "Quote")
	}
	return nil
}

func (r *GormQuoteRepository) applyFilter(query *gorm.DB, filter invoicing.QuoteFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(quote_number) LIKE ? OR LOWER(vehicle_description) LIKE ? OR LOWER(notes) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", filter.ToDate.UTC())
	}
	return query
}

var _ invoicing.QuoteRepository = (*GormQuoteRepository)(nil)
