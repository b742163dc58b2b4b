package persistence

import (
	"context"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/garage/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReplacementRepository implements ReplacementRepository using GORM
type GormReplacementRepository struct {
	db *gorm.DB
}

// NewGormReplacementRepository creates a new GormReplacementRepository
func NewGormReplacementRepository(db *gorm.DB) *GormReplacementRepository {
	return &GormReplacementRepository{db: db}
}

// FindPendingByQuote finds the unfinished replacement of a quote
func (r *GormReplacementRepository) FindPendingByQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (*invoicing.InvoiceReplacement, error) {
	var model models.InvoiceReplacementModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("quote_id = ? AND status <> ?", quoteID, invoicing.ReplacementStatusCompleted).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		return nil, translateError(err, "Pending replacement")
	}
	return model.ToDomain(), nil
}

// FindPending lists unfinished replacements across tenants, oldest first
func (r *GormReplacementRepository) FindPending(ctx context.Context, limit int) ([]invoicing.InvoiceReplacement, error) {
	if limit <= 0 {
		limit = 100
	}
	var replacementModels []models.InvoiceReplacementModel
	if err := r.db.WithContext(ctx).
		Where("status <> ?", invoicing.ReplacementStatusCompleted).
		Order("created_at ASC").
		Limit(limit).
		Find(&replacementModels).Error; err != nil {
		return nil, translateError(err, "Replacement")
	}
	replacements := make([]invoicing.InvoiceReplacement, len(replacementModels))
	for i := range replacementModels {
		replacements[i] = *replacementModels[i].ToDomain()
	}
	return replacements, nil
}

// Create inserts a replacement record. An old invoice is replaced at most once.
func (r *GormReplacementRepository) Create(ctx context.Context, replacement *invoicing.InvoiceReplacement) error {
	model := models.InvoiceReplacementModelFromDomain(replacement)
	return translateError(r.db.WithContext(ctx).Create(model).Error, "Replacement")
}

// SaveWithLock saves with optimistic locking
func (r *GormReplacementRepository) SaveWithLock(ctx context.Context, replacement *invoicing.InvoiceReplacement) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceReplacementModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", replacement.ID, replacement.TenantID, replacement.Version-1).
		Updates(map[string]any{
			"new_invoice_id": replacement.NewInvoiceID,
			"status":         replacement.Status,
			"attempts":       replacement.Attempts,
			"last_error":     replacement.LastError,
			"completed_at":   replacement.CompletedAt,
			"version":        replacement.Version,
			"updated_at":     replacement.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "Replacement")
	}
	if result.RowsAffected == 0 {
		return optimisticLockError("Replacement")
	}
	return nil
}

var _ invoicing.ReplacementRepository = (*GormReplacementRepository)(nil)
