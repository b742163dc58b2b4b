package persistence

import (
	"context"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/garage/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceivablesMetricsProvider supplies the receivable gauges and the tenant
// list used by periodic metrics collection
type GormReceivablesMetricsProvider struct {
	db *gorm.DB
}

// NewGormReceivablesMetricsProvider creates a new GormReceivablesMetricsProvider
func NewGormReceivablesMetricsProvider(db *gorm.DB) *GormReceivablesMetricsProvider {
	return &GormReceivablesMetricsProvider{db: db}
}

// GetOverdueCount returns the number of active overdue invoices for a tenant
func (p *GormReceivablesMetricsProvider) GetOverdueCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("lifecycle_status = ? AND payment_status = ?", invoicing.LifecycleStatusActive, invoicing.PaymentStatusOverdue).
		Count(&count).Error
	return count, err
}

// GetOutstandingAmount returns the unpaid remainder of active invoices for a tenant
func (p *GormReceivablesMetricsProvider) GetOutstandingAmount(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := p.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(final_payable_total - paid_amount), 0)").
		Scopes(tenant.TenantScope(tenantID)).
		Where("lifecycle_status = ? AND paid_amount < final_payable_total", invoicing.LifecycleStatusActive).
		Scan(&amount).Error
	return amount.Round(2), err
}

// GetActiveTenantIDs returns the tenants that hold at least one active invoice
func (p *GormReceivablesMetricsProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := p.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Distinct("tenant_id").
		Where("lifecycle_status = ?", invoicing.LifecycleStatusActive).
		Pluck("tenant_id", &tenantIDs).Error
	return tenantIDs, err
}
