package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/garage/backoffice/internal/infrastructure/persistence/models"
	"github.com/garage/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyPaymentSQL adds a payment to an active invoice and derives the new payment
// status from the updated amount in the same statement, so concurrent payments
// can never overwrite each other. Every reference to paid_amount on the right-hand
// side reads the pre-update value.
const applyPaymentSQL = `UPDATE invoices SET
	paid_amount = paid_amount + ?,
	payment_status = CASE
		WHEN paid_amount + ? >= final_payable_total THEN ?
		WHEN due_date < ? THEN ?
		WHEN paid_amount + ? > 0 THEN ?
		ELSE ?
	END,
	version = version + 1,
	updated_at = ?
WHERE id = ? AND tenant_id = ? AND lifecycle_status = ?
RETURNING paid_amount, payment_status, version`

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func orderedPayments(db *gorm.DB) *gorm.DB {
	return db.Order("paid_at ASC, created_at ASC")
}

// FindByIDForTenant finds an invoice by ID for a specific tenant, including its payments
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Payments", orderedPayments).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateError(err, "Invoice")
	}
	return model.ToDomain(), nil
}

// FindActiveByQuote finds the single active invoice of a quote
func (r *GormInvoiceRepository) FindActiveByQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Payments", orderedPayments).
		Where("quote_id = ? AND lifecycle_status = ?", quoteID, invoicing.LifecycleStatusActive).
		First(&model).Error; err != nil {
		return nil, translateError(err, "Invoice")
	}
	return model.ToDomain(), nil
}

// ExistsForQuote reports whether any invoice, active or cancelled, references the quote
func (r *GormInvoiceRepository) ExistsForQuote(ctx context.Context, tenantID, quoteID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("quote_id = ?", quoteID).
		Count(&count).Error; err != nil {
		return false, translateError(err, "Invoice")
	}
	return count > 0, nil
}

// FindAllForTenant finds all invoices for a tenant with filtering.
// Payments are not loaded for list results.
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(tenant.TenantScope(tenantID))
	query = r.applyFilter(query, filter)
	query = applyPaging(query, filter.Filter, InvoiceSortFields)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, translateError(err, "Invoice")
	}
	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// CountForTenant counts invoices for a tenant with filtering
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter invoicing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(tenant.TenantScope(tenantID))
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err, "Invoice")
	}
	return count, nil
}

// Create inserts a new invoice. The partial unique index on active invoices
// turns a second active invoice for the same quote into a Conflict.
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error
	return translateError(err, "Active invoice for quote "+inv.QuoteNumber)
}

// SaveCancellation persists a cancellation, conditional on the invoice still being
// active at its previous version
func (r *GormInvoiceRepository) SaveCancellation(ctx context.Context, inv *invoicing.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND tenant_id = ? AND version = ? AND lifecycle_status = ?",
			inv.ID, inv.TenantID, inv.Version-1, invoicing.LifecycleStatusActive).
		Updates(map[string]any{
			"lifecycle_status": inv.LifecycleStatus,
			"cancelled_at":     inv.CancelledAt,
			"cancel_reason":    inv.CancelReason,
			"credit_note_id":   inv.CreditNoteID,
			"version":          inv.Version,
			"updated_at":       inv.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "Invoice")
	}
	if result.RowsAffected == 0 {
		return optimisticLockError("Invoice")
	}
	return nil
}

type paymentOutcomeRow struct {
	PaidAmount    decimal.Decimal
	PaymentStatus string
	Version       int
}

// ApplyPayment inserts the ledger entry and adds its amount to the invoice atomically.
// It must run inside a transaction so that the ledger row and the cumulative amount commit together.
func (r *GormInvoiceRepository) ApplyPayment(ctx context.Context, payment *invoicing.Payment, now time.Time) (*invoicing.PaymentOutcome, error) {
	db := r.db.WithContext(ctx)
	now = now.UTC()

	var row paymentOutcomeRow
	result := db.Raw(applyPaymentSQL,
		payment.Amount,
		payment.Amount, invoicing.PaymentStatusPaid,
		now, invoicing.PaymentStatusOverdue,
		payment.Amount, invoicing.PaymentStatusPartiallyPaid,
		invoicing.PaymentStatusPending,
		now,
		payment.InvoiceID, payment.TenantID, invoicing.LifecycleStatusActive,
	).Scan(&row)
	if result.Error != nil {
		return nil, translateError(result.Error, "Invoice")
	}
	if result.RowsAffected == 0 {
		return nil, r.paymentRefusal(ctx, payment)
	}

	if err := db.Create(models.InvoicePaymentModelFromDomain(payment)).Error; err != nil {
		return nil, translateError(err, "Payment")
	}

	return &invoicing.PaymentOutcome{
		PaidAmount:    row.PaidAmount.Round(2),
		PaymentStatus: invoicing.PaymentStatus(row.PaymentStatus),
		Version:       row.Version,
	}, nil
}

// paymentRefusal explains why the payment update matched no row
func (r *GormInvoiceRepository) paymentRefusal(ctx context.Context, payment *invoicing.Payment) error {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Select("id", "lifecycle_status").
		Scopes(tenant.TenantScope(payment.TenantID)).
		Where("id = ?", payment.InvoiceID).
		First(&model).Error
	if err != nil {
		return translateError(err, "Invoice")
	}
	return shared.NewInvalidStateError("Cannot record a payment on a cancelled invoice", model.LifecycleStatus.String())
}

// MarkOverdue moves every underpaid active invoice past its due date to overdue
func (r *GormInvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	return r.markOverdue(r.db.WithContext(ctx), now)
}

// MarkOverdueForTenant is MarkOverdue restricted to one tenant
func (r *GormInvoiceRepository) MarkOverdueForTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	return r.markOverdue(r.db.WithContext(ctx).Scopes(tenant.TenantScope(tenantID)), now)
}

func (r *GormInvoiceRepository) markOverdue(db *gorm.DB, now time.Time) (int64, error) {
	now = now.UTC()
	result := db.Model(&models.InvoiceModel{}).
		Where("lifecycle_status = ? AND payment_status IN ? AND due_date < ? AND paid_amount < final_payable_total",
			invoicing.LifecycleStatusActive,
			[]invoicing.PaymentStatus{invoicing.PaymentStatusPending, invoicing.PaymentStatusPartiallyPaid},
			now).
		Updates(map[string]any{
			"payment_status": invoicing.PaymentStatusOverdue,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if result.Error != nil {
		return 0, translateError(result.Error, "Invoice")
	}
	return result.RowsAffected, nil
}

type invoiceStatisticsRow struct {
	TotalCount         int64
	ActiveCount        int64
	CancelledCount     int64
	PendingCount       int64
	PartiallyPaidCount int64
	PaidCount          int64
	OverdueCount       int64
	TotalInvoiced      decimal.Decimal
	TotalPaid          decimal.Decimal
	TotalOutstanding   decimal.Decimal
	TotalOverdue       decimal.Decimal
}

var invoiceStatisticsSelect = fmt.Sprintf(`COUNT(*) AS total_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' THEN 1 ELSE 0 END), 0) AS active_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[2]s' THEN 1 ELSE 0 END), 0) AS cancelled_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' AND payment_status = '%[3]s' THEN 1 ELSE 0 END), 0) AS pending_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' AND payment_status = '%[4]s' THEN 1 ELSE 0 END), 0) AS partially_paid_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' AND payment_status = '%[5]s' THEN 1 ELSE 0 END), 0) AS paid_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' AND payment_status = '%[6]s' THEN 1 ELSE 0 END), 0) AS overdue_count,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' THEN final_payable_total ELSE 0 END), 0) AS total_invoiced,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' THEN paid_amount ELSE 0 END), 0) AS total_paid,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' AND paid_amount < final_payable_total THEN final_payable_total - paid_amount ELSE 0 END), 0) AS total_outstanding,
	COALESCE(SUM(CASE WHEN lifecycle_status = '%[1]s' AND payment_status = '%[6]s' THEN final_payable_total - paid_amount ELSE 0 END), 0) AS total_overdue`,
	invoicing.LifecycleStatusActive,
	invoicing.LifecycleStatusCancelled,
	invoicing.PaymentStatusPending,
	invoicing.PaymentStatusPartiallyPaid,
	invoicing.PaymentStatusPaid,
	invoicing.PaymentStatusOverdue,
)

// GetStatistics aggregates invoice figures for a tenant
func (r *GormInvoiceRepository) GetStatistics(ctx context.Context, tenantID uuid.UUID) (*invoicing.InvoiceStatistics, error) {
	var row invoiceStatisticsRow
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Select(invoiceStatisticsSelect).
		Scopes(tenant.TenantScope(tenantID)).
		Scan(&row).Error; err != nil {
		return nil, translateError(err, "Invoice")
	}

	var credited decimal.Decimal
	if err := r.db.WithContext(ctx).Model(&models.CreditNoteModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Scopes(tenant.TenantScope(tenantID)).
		Scan(&credited).Error; err != nil {
		return nil, translateError(err, "Credit note")
	}

	return &invoicing.InvoiceStatistics{
		TotalCount:         row.TotalCount,
		ActiveCount:        row.ActiveCount,
		CancelledCount:     row.CancelledCount,
		PendingCount:       row.PendingCount,
		PartiallyPaidCount: row.PartiallyPaidCount,
		PaidCount:          row.PaidCount,
		OverdueCount:       row.OverdueCount,
		TotalInvoiced:      row.TotalInvoiced.Round(2),
		TotalPaid:          row.TotalPaid.Round(2),
		TotalOutstanding:   row.TotalOutstanding.Round(2),
		TotalOverdue:       row.TotalOverdue.Round(2),
		TotalCredited:      credited.Round(2),
	}, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(invoice_number) LIKE ? OR LOWER(quote_number) LIKE ? OR LOWER(client_name) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.LifecycleStatus != nil {
		query = query.Where("lifecycle_status = ?", *filter.LifecycleStatus)
	}
	if filter.QuoteID != nil {
		query = query.Where("quote_id = ?", *filter.QuoteID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", filter.DueFrom.UTC())
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", filter.DueTo.UTC())
	}
	return query
}

var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
