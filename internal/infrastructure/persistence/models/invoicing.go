package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItems stores quote and invoice lines as a JSON document
type LineItems []invoicing.LineItem

// Value implements driver.Valuer
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *LineItems) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = LineItems{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into LineItems", value)
	}
	items := LineItems{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// TotalsColumns holds the derived figures shared by quotes and invoices
type TotalsColumns struct {
	ServicesSubtotal  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PreTaxTotal       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PostTaxTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FinalPayableTotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

func totalsColumns(t invoicing.Totals) TotalsColumns {
	return TotalsColumns{
		ServicesSubtotal:  t.ServicesSubtotal,
		PreTaxTotal:       t.PreTaxTotal,
		TaxAmount:         t.TaxAmount,
		PostTaxTotal:      t.PostTaxTotal,
		DiscountAmount:    t.DiscountAmount,
		FinalPayableTotal: t.FinalPayableTotal,
	}
}

func (c TotalsColumns) toDomain() invoicing.Totals {
	return invoicing.Totals{
		ServicesSubtotal:  c.ServicesSubtotal,
		PreTaxTotal:       c.PreTaxTotal,
		TaxAmount:         c.TaxAmount,
		PostTaxTotal:      c.PostTaxTotal,
		DiscountAmount:    c.DiscountAmount,
		FinalPayableTotal: c.FinalPayableTotal,
	}
}

// QuoteModel is the persistence model for the Quote aggregate root.
type QuoteModel struct {
	AggregateModel
	TenantID                 uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_quotes_tenant_number,priority:1;index:idx_quotes_tenant_status,priority:1"`
	CreatedBy                *uuid.UUID            `gorm:"type:uuid"`
	QuoteNumber              string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_quotes_tenant_number,priority:2"`
	ClientID                 uuid.UUID             `gorm:"type:uuid;not null;index"`
	VehicleID                *uuid.UUID            `gorm:"type:uuid"`
	VehicleDescription       string                `gorm:"type:varchar(300)"`
	InspectionDate           *time.Time
	EstimatedDurationMinutes int                   `gorm:"not null;default:0"`
	Notes                    string                `gorm:"type:text"`
	LineItems                LineItems             `gorm:"type:jsonb;not null"`
	LaborCost                decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	TaxRate                  decimal.Decimal       `gorm:"type:decimal(7,4);not null"`
	DiscountRate             decimal.Decimal       `gorm:"type:decimal(7,4);not null"`
	TotalsColumns            `gorm:"embedded"`
	Status                   invoicing.QuoteStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_quotes_tenant_status,priority:2"`
	Revision                 int                   `gorm:"not null;default:1"`
	ContentModifiedAt        time.Time             `gorm:"not null"`
	LastDispatchedAt         *time.Time
	DispatchReference        string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote entity.
func (m *QuoteModel) ToDomain() *invoicing.Quote {
	return &invoicing.Quote{
		TenantAggregateRoot:      m.tenantAggregateRoot(m.TenantID, m.CreatedBy),
		QuoteNumber:              m.QuoteNumber,
		ClientID:                 m.ClientID,
		VehicleID:                m.VehicleID,
		VehicleDescription:       m.VehicleDescription,
		InspectionDate:           utcPtr(m.InspectionDate),
		EstimatedDurationMinutes: m.EstimatedDurationMinutes,
		Notes:                    m.Notes,
		LineItems:                []invoicing.LineItem(m.LineItems),
		LaborCost:                m.LaborCost,
		TaxRate:                  m.TaxRate,
		DiscountRate:             m.DiscountRate,
		Totals:                   m.TotalsColumns.toDomain(),
		Status:                   m.Status,
		Revision:                 m.Revision,
		ContentModifiedAt:        m.ContentModifiedAt.UTC(),
		LastDispatchedAt:         utcPtr(m.LastDispatchedAt),
		DispatchReference:        m.DispatchReference,
	}
}

// FromDomain populates the persistence model from a domain Quote entity.
func (m *QuoteModel) FromDomain(q *invoicing.Quote) {
	m.FromDomainTenantAggregateRoot(q.TenantAggregateRoot)
	m.TenantID = q.TenantID
	m.CreatedBy = q.CreatedBy
	m.QuoteNumber = q.QuoteNumber
	m.ClientID = q.ClientID
	m.VehicleID = q.VehicleID
	m.VehicleDescription = q.VehicleDescription
	m.InspectionDate = q.InspectionDate
	m.EstimatedDurationMinutes = q.EstimatedDurationMinutes
	m.Notes = q.Notes
	m.LineItems = LineItems(q.LineItems)
	m.LaborCost = q.LaborCost
	m.TaxRate = q.TaxRate
	m.DiscountRate = q.DiscountRate
	m.TotalsColumns = totalsColumns(q.Totals)
	m.Status = q.Status
	m.Revision = q.Revision
	m.ContentModifiedAt = q.ContentModifiedAt
	m.LastDispatchedAt = q.LastDispatchedAt
	m.DispatchReference = q.DispatchReference
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote.
func QuoteModelFromDomain(q *invoicing.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
// At most one active invoice may reference a quote.
type InvoiceModel struct {
	AggregateModel
	TenantID           uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_tenant_number,priority:1;index:idx_invoices_tenant_status,priority:1"`
	CreatedBy          *uuid.UUID                `gorm:"type:uuid"`
	InvoiceNumber      string                    `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_tenant_number,priority:2"`
	QuoteID            uuid.UUID                 `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_active_quote,where:lifecycle_status = 'active'"`
	QuoteNumber        string                    `gorm:"type:varchar(50);not null"`
	QuoteRevision      int                       `gorm:"not null"`
	ClientID           uuid.UUID                 `gorm:"type:uuid;not null;index"`
	ClientName         string                    `gorm:"type:varchar(200)"`
	ClientEmail        string                    `gorm:"type:varchar(200)"`
	ClientPhone        string                    `gorm:"type:varchar(50)"`
	ClientAddress      string                    `gorm:"type:varchar(500)"`
	VehicleDescription string                    `gorm:"type:varchar(300)"`
	VehiclePlate       string                    `gorm:"type:varchar(20)"`
	VehicleVIN         string                    `gorm:"column:vehicle_vin;type:varchar(17)"`
	LineItems          LineItems                 `gorm:"type:jsonb;not null"`
	LaborCost          decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	TaxRate            decimal.Decimal           `gorm:"type:decimal(7,4);not null"`
	DiscountRate       decimal.Decimal           `gorm:"type:decimal(7,4);not null"`
	TotalsColumns      `gorm:"embedded"`
	IssuedAt           time.Time                 `gorm:"not null"`
	DueDate            time.Time                 `gorm:"not null;index"`
	PaidAmount         decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus      invoicing.PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index:idx_invoices_tenant_status,priority:2"`
	LifecycleStatus    invoicing.LifecycleStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	CreditNoteID       *uuid.UUID                `gorm:"type:uuid"`
	CancelledAt        *time.Time
	CancelReason       string                `gorm:"type:varchar(500)"`
	Payments           []InvoicePaymentModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	payments := make([]invoicing.Payment, len(m.Payments))
	for i := range m.Payments {
		payments[i] = *m.Payments[i].ToDomain()
	}
	return &invoicing.Invoice{
		TenantAggregateRoot: m.tenantAggregateRoot(m.TenantID, m.CreatedBy),
		InvoiceNumber:       m.InvoiceNumber,
		QuoteID:             m.QuoteID,
		QuoteNumber:         m.QuoteNumber,
		QuoteRevision:       m.QuoteRevision,
		ClientID:            m.ClientID,
		PartySnapshot: invoicing.PartySnapshot{
			ClientName:         m.ClientName,
			ClientEmail:        m.ClientEmail,
			ClientPhone:        m.ClientPhone,
			ClientAddress:      m.ClientAddress,
			VehicleDescription: m.VehicleDescription,
			VehiclePlate:       m.VehiclePlate,
			VehicleVIN:         m.VehicleVIN,
		},
		LineItems:       []invoicing.LineItem(m.LineItems),
		LaborCost:       m.LaborCost,
		TaxRate:         m.TaxRate,
		DiscountRate:    m.DiscountRate,
		Totals:          m.TotalsColumns.toDomain(),
		IssuedAt:        m.IssuedAt.UTC(),
		DueDate:         m.DueDate.UTC(),
		PaidAmount:      m.PaidAmount,
		PaymentStatus:   m.PaymentStatus,
		LifecycleStatus: m.LifecycleStatus,
		CreditNoteID:    m.CreditNoteID,
		CancelledAt:     utcPtr(m.CancelledAt),
		CancelReason:    m.CancelReason,
		Payments:        payments,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
// Payments are written through the payment ledger, never with the invoice row.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.TenantID = inv.TenantID
	m.CreatedBy = inv.CreatedBy
	m.InvoiceNumber = inv.InvoiceNumber
	m.QuoteID = inv.QuoteID
	m.QuoteNumber = inv.QuoteNumber
	m.QuoteRevision = inv.QuoteRevision
	m.ClientID = inv.ClientID
	m.ClientName = inv.ClientName
	m.ClientEmail = inv.ClientEmail
	m.ClientPhone = inv.ClientPhone
	m.ClientAddress = inv.ClientAddress
	m.VehicleDescription = inv.VehicleDescription
	m.VehiclePlate = inv.VehiclePlate
	m.VehicleVIN = inv.VehicleVIN
	m.LineItems = LineItems(inv.LineItems)
	m.LaborCost = inv.LaborCost
	m.TaxRate = inv.TaxRate
	m.DiscountRate = inv.DiscountRate
	m.TotalsColumns = totalsColumns(inv.Totals)
	m.IssuedAt = inv.IssuedAt
	m.DueDate = inv.DueDate
	m.PaidAmount = inv.PaidAmount
	m.PaymentStatus = inv.PaymentStatus
	m.LifecycleStatus = inv.LifecycleStatus
	m.CreditNoteID = inv.CreditNoteID
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoicePaymentModel is one row of an invoice's append-only payment ledger.
type InvoicePaymentModel struct {
	ID         uuid.UUID               `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	InvoiceID  uuid.UUID               `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Method     invoicing.PaymentMethod `gorm:"type:varchar(20);not null"`
	PaidAt     time.Time               `gorm:"not null"`
	Reference  string                  `gorm:"type:varchar(200)"`
	RecordedBy *uuid.UUID              `gorm:"type:uuid"`
	CreatedAt  time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoicePaymentModel) TableName() string {
	return "invoice_payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *InvoicePaymentModel) ToDomain() *invoicing.Payment {
	return &invoicing.Payment{
		ID:         m.ID,
		TenantID:   m.TenantID,
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		Method:     m.Method,
		PaidAt:     m.PaidAt.UTC(),
		Reference:  m.Reference,
		RecordedBy: m.RecordedBy,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

// InvoicePaymentModelFromDomain creates a new persistence model from a domain Payment.
func InvoicePaymentModelFromDomain(p *invoicing.Payment) *InvoicePaymentModel {
	return &InvoicePaymentModel{
		ID:         p.ID,
		TenantID:   p.TenantID,
		InvoiceID:  p.InvoiceID,
		Amount:     p.Amount,
		Method:     p.Method,
		PaidAt:     p.PaidAt,
		Reference:  p.Reference,
		RecordedBy: p.RecordedBy,
		CreatedAt:  p.CreatedAt,
	}
}

// CreditNoteModel is the persistence model for the CreditNote aggregate root.
// An invoice is reversed by at most one credit note.
type CreditNoteModel struct {
	AggregateModel
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_credit_notes_tenant_number,priority:1"`
	CreatedBy        *uuid.UUID      `gorm:"type:uuid"`
	CreditNoteNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_credit_notes_tenant_number,priority:2"`
	InvoiceID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_credit_notes_invoice"`
	InvoiceNumber    string          `gorm:"type:varchar(50);not null"`
	QuoteID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientName       string          `gorm:"type:varchar(200)"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Reason           string          `gorm:"type:varchar(500);not null"`
	IssuedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the persistence model to a domain CreditNote entity.
func (m *CreditNoteModel) ToDomain() *invoicing.CreditNote {
	return &invoicing.CreditNote{
		TenantAggregateRoot: m.tenantAggregateRoot(m.TenantID, m.CreatedBy),
		CreditNoteNumber:    m.CreditNoteNumber,
		InvoiceID:           m.InvoiceID,
		InvoiceNumber:       m.InvoiceNumber,
		QuoteID:             m.QuoteID,
		ClientID:            m.ClientID,
		ClientName:          m.ClientName,
		Amount:              m.Amount,
		Reason:              m.Reason,
		IssuedAt:            m.IssuedAt.UTC(),
	}
}

// CreditNoteModelFromDomain creates a new persistence model from a domain CreditNote.
func CreditNoteModelFromDomain(cn *invoicing.CreditNote) *CreditNoteModel {
	m := &CreditNoteModel{
		TenantID:         cn.TenantID,
		CreatedBy:        cn.CreatedBy,
		CreditNoteNumber: cn.CreditNoteNumber,
		InvoiceID:        cn.InvoiceID,
		InvoiceNumber:    cn.InvoiceNumber,
		QuoteID:          cn.QuoteID,
		ClientID:         cn.ClientID,
		ClientName:       cn.ClientName,
		Amount:           cn.Amount,
		Reason:           cn.Reason,
		IssuedAt:         cn.IssuedAt,
	}
	m.FromDomainTenantAggregateRoot(cn.TenantAggregateRoot)
	return m
}

// InvoiceReplacementModel is the durable record of a stale invoice replacement.
type InvoiceReplacementModel struct {
	BaseModel
	TenantID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	QuoteID       uuid.UUID                   `gorm:"type:uuid;not null;index"`
	OldInvoiceID  uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_replacements_old_invoice"`
	CreditNoteID  uuid.UUID                   `gorm:"type:uuid;not null"`
	NewInvoiceID  *uuid.UUID                  `gorm:"type:uuid"`
	QuoteRevision int                         `gorm:"not null"`
	Status        invoicing.ReplacementStatus `gorm:"type:varchar(30);not null;index"`
	Attempts      int                         `gorm:"not null;default:0"`
	LastError     string                      `gorm:"type:text"`
	CompletedAt   *time.Time
	Version       int `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (InvoiceReplacementModel) TableName() string {
	return "invoice_replacements"
}

// ToDomain converts the persistence model to a domain InvoiceReplacement.
func (m *InvoiceReplacementModel) ToDomain() *invoicing.InvoiceReplacement {
	return &invoicing.InvoiceReplacement{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		QuoteID:       m.QuoteID,
		OldInvoiceID:  m.OldInvoiceID,
		CreditNoteID:  m.CreditNoteID,
		NewInvoiceID:  m.NewInvoiceID,
		QuoteRevision: m.QuoteRevision,
		Status:        m.Status,
		Attempts:      m.Attempts,
		LastError:     m.LastError,
		CompletedAt:   utcPtr(m.CompletedAt),
		Version:       m.Version,
	}
}

// InvoiceReplacementModelFromDomain creates a new persistence model from a domain InvoiceReplacement.
func InvoiceReplacementModelFromDomain(r *invoicing.InvoiceReplacement) *InvoiceReplacementModel {
	m := &InvoiceReplacementModel{
		TenantID:      r.TenantID,
		QuoteID:       r.QuoteID,
		OldInvoiceID:  r.OldInvoiceID,
		CreditNoteID:  r.CreditNoteID,
		NewInvoiceID:  r.NewInvoiceID,
		QuoteRevision: r.QuoteRevision,
		Status:        r.Status,
		Attempts:      r.Attempts,
		LastError:     r.LastError,
		CompletedAt:   r.CompletedAt,
		Version:       r.Version,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// DocumentSequenceModel holds the last number handed out per tenant and document kind.
type DocumentSequenceModel struct {
	TenantID  uuid.UUID              `gorm:"type:uuid;primaryKey"`
	Kind      invoicing.DocumentKind `gorm:"type:varchar(20);primaryKey"`
	Value     int64                  `gorm:"not null;default:0"`
	UpdatedAt time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}

// InvoicingModels lists the models owned by the invoicing tables, in creation order.
func InvoicingModels() []any {
	return []any{
		&QuoteModel{},
		&InvoiceModel{},
		&InvoicePaymentModel{},
		&CreditNoteModel{},
		&InvoiceReplacementModel{},
		&DocumentSequenceModel{},
	}
}
