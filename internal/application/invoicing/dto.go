package invoicing

import (
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Quote DTOs ====================

// LineItemInput represents a line item in quote requests
type LineItemInput struct {
	Description string          `json:"description" binding:"required,min=1,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// QuoteContentRequest carries the editable content of a quote.
// Totals are always computed server side and are never accepted from the caller.
type QuoteContentRequest struct {
	ClientID                 uuid.UUID       `json:"client_id" binding:"required"`
	VehicleID                *uuid.UUID      `json:"vehicle_id"`
	VehicleDescription       string          `json:"vehicle_description" binding:"max=200"`
	InspectionDate           *time.Time      `json:"inspection_date"`
	EstimatedDurationMinutes int             `json:"estimated_duration_minutes" binding:"min=0"`
	Notes                    string          `json:"notes" binding:"max=2000"`
	LineItems                []LineItemInput `json:"line_items" binding:"required,min=1,dive"`
	LaborCost                decimal.Decimal `json:"labor_cost"`
	TaxRate                  decimal.Decimal `json:"tax_rate"`
	DiscountRate             decimal.Decimal `json:"discount_rate"`
}

// CreateQuoteRequest represents a request to create a quote
type CreateQuoteRequest struct {
	QuoteContentRequest
}

// UpdateQuoteRequest represents a request to replace the content of a quote
type UpdateQuoteRequest struct {
	QuoteContentRequest
}

// ChangeQuoteStatusRequest represents a request to move a quote to sent, accepted or refused
type ChangeQuoteStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=sent accepted refused"`
}

// DispatchAcknowledgementRequest is sent by the document dispatcher after a quote was delivered
type DispatchAcknowledgementRequest struct {
	Reference    string     `json:"reference" binding:"required,min=1,max=100"`
	Channel      string     `json:"channel" binding:"max=50"`
	DispatchedAt *time.Time `json:"dispatched_at"`
}

// QuoteListFilter represents filter options for the quote list
type QuoteListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=draft sent accepted refused"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LineItemResponse represents a quote or invoice line in API responses
type LineItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// TotalsResponse represents the derived figures of a quote or invoice
type TotalsResponse struct {
	ServicesSubtotal  decimal.Decimal `json:"services_subtotal"`
	PreTaxTotal       decimal.Decimal `json:"pre_tax_total"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	PostTaxTotal      decimal.Decimal `json:"post_tax_total"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	FinalPayableTotal decimal.Decimal `json:"final_payable_total"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID                       uuid.UUID          `json:"id"`
	TenantID                 uuid.UUID          `json:"tenant_id"`
	QuoteNumber              string             `json:"quote_number"`
	ClientID                 uuid.UUID          `json:"client_id"`
	VehicleID                *uuid.UUID         `json:"vehicle_id,omitempty"`
	VehicleDescription       string             `json:"vehicle_description"`
	InspectionDate           *time.Time         `json:"inspection_date,omitempty"`
	EstimatedDurationMinutes int                `json:"estimated_duration_minutes"`
	Notes                    string             `json:"notes,omitempty"`
	LineItems                []LineItemResponse `json:"line_items"`
	LaborCost                decimal.Decimal    `json:"labor_cost"`
	TaxRate                  decimal.Decimal    `json:"tax_rate"`
	DiscountRate             decimal.Decimal    `json:"discount_rate"`
	TotalsResponse
	Status            string     `json:"status"`
	Revision          int        `json:"revision"`
	ContentModifiedAt time.Time  `json:"content_modified_at"`
	LastDispatchedAt  *time.Time `json:"last_dispatched_at,omitempty"`
	DispatchReference string     `json:"dispatch_reference,omitempty"`
	CreatedBy         *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int        `json:"version"`
}

// QuoteListItemResponse represents a quote in list responses
type QuoteListItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	QuoteNumber        string          `json:"quote_number"`
	ClientID           uuid.UUID       `json:"client_id"`
	VehicleDescription string          `json:"vehicle_description"`
	FinalPayableTotal  decimal.Decimal `json:"final_payable_total"`
	Status             string          `json:"status"`
	Revision           int             `json:"revision"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (r QuoteContentRequest) toContent() invoicing.QuoteContent {
	items := make([]invoicing.LineItem, len(r.LineItems))
	for i, item := range r.LineItems {
		items[i] = invoicing.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return invoicing.QuoteContent{
		ClientID:                 r.ClientID,
		VehicleID:                r.VehicleID,
		VehicleDescription:       r.VehicleDescription,
		InspectionDate:           r.InspectionDate,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		Notes:                    r.Notes,
		Pricing: invoicing.Pricing{
			LineItems:    items,
			LaborCost:    r.LaborCost,
			TaxRate:      r.TaxRate,
			DiscountRate: r.DiscountRate,
		},
	}
}

func (f QuoteListFilter) toDomain() (invoicing.QuoteFilter, error) {
	filter := invoicing.QuoteFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		}.Normalize(),
	}
	if f.Status != "" {
		status := invoicing.QuoteStatus(f.Status)
		if !status.IsValid() {
			return filter, shared.NewValidationError("Invalid quote status: " + f.Status)
		}
		filter.Status = &status
	}
	if f.ClientID != "" {
		id, err := uuid.Parse(f.ClientID)
		if err != nil {
			return filter, shared.NewValidationError("Invalid client ID format")
		}
		filter.ClientID = &id
	}
	return filter, nil
}

// ToQuoteResponse converts a domain Quote to a response DTO
func ToQuoteResponse(q *invoicing.Quote) QuoteResponse {
	return QuoteResponse{
		ID:                       q.ID,
		TenantID:                 q.TenantID,
		QuoteNumber:              q.QuoteNumber,
		ClientID:                 q.ClientID,
		VehicleID:                q.VehicleID,
		VehicleDescription:       q.VehicleDescription,
		InspectionDate:           q.InspectionDate,
		EstimatedDurationMinutes: q.EstimatedDurationMinutes,
		Notes:                    q.Notes,
		LineItems:                toLineItemResponses(q.LineItems),
		LaborCost:                q.LaborCost,
		TaxRate:                  q.TaxRate,
		DiscountRate:             q.DiscountRate,
		TotalsResponse:           toTotalsResponse(q.Totals),
		Status:                   q.Status.String(),
		Revision:                 q.Revision,
		ContentModifiedAt:        q.ContentModifiedAt,
		LastDispatchedAt:         q.LastDispatchedAt,
		DispatchReference:        q.DispatchReference,
		CreatedBy:                q.CreatedBy,
		CreatedAt:                q.CreatedAt,
		UpdatedAt:                q.UpdatedAt,
		Version:                  q.Version,
	}
}

// ToQuoteListItemResponses converts domain quotes to list item DTOs
func ToQuoteListItemResponses(quotes []invoicing.Quote) []QuoteListItemResponse {
	responses := make([]QuoteListItemResponse, len(quotes))
	for i := range quotes {
		q := &quotes[i]
		responses[i] = QuoteListItemResponse{
			ID:                 q.ID,
			QuoteNumber:        q.QuoteNumber,
			ClientID:           q.ClientID,
			VehicleDescription: q.VehicleDescription,
			FinalPayableTotal:  q.FinalPayableTotal,
			Status:             q.Status.String(),
			Revision:           q.Revision,
			CreatedAt:          q.CreatedAt,
			UpdatedAt:          q.UpdatedAt,
		}
	}
	return responses
}

func toLineItemResponses(items []invoicing.LineItem) []LineItemResponse {
	responses := make([]LineItemResponse, len(items))
	for i, item := range items {
		responses[i] = LineItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total(),
		}
	}
	return responses
}

func toTotalsResponse(t invoicing.Totals) TotalsResponse {
	return TotalsResponse{
		ServicesSubtotal:  t.ServicesSubtotal,
		PreTaxTotal:       t.PreTaxTotal,
		TaxAmount:         t.TaxAmount,
		PostTaxTotal:      t.PostTaxTotal,
		DiscountAmount:    t.DiscountAmount,
		FinalPayableTotal: t.FinalPayableTotal,
	}
}

// ==================== Invoice DTOs ====================

// RecordPaymentRequest represents a payment received against an invoice
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method" binding:"required,oneof=cash card bank_transfer check"`
	PaidAt    *time.Time      `json:"paid_at"`
	Reference string          `json:"reference" binding:"max=100"`
}

// CancelInvoiceRequest represents an administrative cancellation
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	Search          string     `form:"search"`
	PaymentStatus   string     `form:"payment_status" binding:"omitempty,oneof=pending partially_paid paid overdue"`
	LifecycleStatus string     `form:"lifecycle_status" binding:"omitempty,oneof=active cancelled"`
	QuoteID         string     `form:"quote_id" binding:"omitempty,uuid"`
	ClientID        string     `form:"client_id" binding:"omitempty,uuid"`
	DueFrom         *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo           *time.Time `form:"due_to" time_format:"2006-01-02"`
	Page            int        `form:"page" binding:"omitempty,min=1"`
	PageSize        int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy         string     `form:"order_by"`
	OrderDir        string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PaymentResponse represents a payment ledger entry in API responses
type PaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	PaidAt     time.Time       `json:"paid_at"`
	Reference  string          `json:"reference,omitempty"`
	RecordedBy *uuid.UUID      `json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	InvoiceNumber string    `json:"invoice_number"`
	QuoteID       uuid.UUID `json:"quote_id"`
	QuoteNumber   string    `json:"quote_number"`
	QuoteRevision int       `json:"quote_revision"`
	ClientID      uuid.UUID `json:"client_id"`
	invoicing.PartySnapshot
	LineItems    []LineItemResponse `json:"line_items"`
	LaborCost    decimal.Decimal    `json:"labor_cost"`
	TaxRate      decimal.Decimal    `json:"tax_rate"`
	DiscountRate decimal.Decimal    `json:"discount_rate"`
	TotalsResponse
	IssuedAt          time.Time         `json:"issued_at"`
	DueDate           time.Time         `json:"due_date"`
	PaidAmount        decimal.Decimal   `json:"paid_amount"`
	OutstandingAmount decimal.Decimal   `json:"outstanding_amount"`
	PaymentStatus     string            `json:"payment_status"`
	LifecycleStatus   string            `json:"lifecycle_status"`
	CreditNoteID      *uuid.UUID        `json:"credit_note_id,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	Payments          []PaymentResponse `json:"payments"`
	CreatedBy         *uuid.UUID        `json:"created_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Version           int               `json:"version"`
}

// InvoiceListItemResponse represents an invoice in list responses
type InvoiceListItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	InvoiceNumber     string          `json:"invoice_number"`
	QuoteID           uuid.UUID       `json:"quote_id"`
	QuoteNumber       string          `json:"quote_number"`
	ClientID          uuid.UUID       `json:"client_id"`
	ClientName        string          `json:"client_name"`
	FinalPayableTotal decimal.Decimal `json:"final_payable_total"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PaymentStatus     string          `json:"payment_status"`
	LifecycleStatus   string          `json:"lifecycle_status"`
	IssuedAt          time.Time       `json:"issued_at"`
	DueDate           time.Time       `json:"due_date"`
}

// InvoiceStatisticsResponse represents aggregated invoice figures
type InvoiceStatisticsResponse struct {
	TotalCount         int64           `json:"total_count"`
	ActiveCount        int64           `json:"active_count"`
	CancelledCount     int64           `json:"cancelled_count"`
	PendingCount       int64           `json:"pending_count"`
	PartiallyPaidCount int64           `json:"partially_paid_count"`
	PaidCount          int64           `json:"paid_count"`
	OverdueCount       int64           `json:"overdue_count"`
	TotalInvoiced      decimal.Decimal `json:"total_invoiced"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
	TotalOverdue       decimal.Decimal `json:"total_overdue"`
	TotalCredited      decimal.Decimal `json:"total_credited"`
}

// EnsureInvoice outcomes
const (
	OutcomeIssued   = "issued"
	OutcomeExisting = "existing"
	OutcomeReplaced = "replaced"
	OutcomeResumed  = "resumed"
)

// EnsureInvoiceResponse is the result of ensureInvoice
type EnsureInvoiceResponse struct {
	Outcome           string              `json:"outcome"`
	Invoice           InvoiceResponse     `json:"invoice"`
	CreditNote        *CreditNoteResponse `json:"credit_note,omitempty"`
	ReplacedInvoiceID *uuid.UUID          `json:"replaced_invoice_id,omitempty"`
}

func (f InvoiceListFilter) toDomain() (invoicing.InvoiceFilter, error) {
	filter := invoicing.InvoiceFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		}.Normalize(),
		DueFrom: f.DueFrom,
		DueTo:   f.DueTo,
	}
	if f.PaymentStatus != "" {
		status := invoicing.PaymentStatus(f.PaymentStatus)
		if !status.IsValid() {
			return filter, shared.NewValidationError("Invalid payment status: " + f.PaymentStatus)
		}
		filter.PaymentStatus = &status
	}
	if f.LifecycleStatus != "" {
		status := invoicing.LifecycleStatus(f.LifecycleStatus)
		if !status.IsValid() {
			return filter, shared.NewValidationError("Invalid lifecycle status: " + f.LifecycleStatus)
		}
		filter.LifecycleStatus = &status
	}
	if f.QuoteID != "" {
		id, err := uuid.Parse(f.QuoteID)
		if err != nil {
			return filter, shared.NewValidationError("Invalid quote ID format")
		}
		filter.QuoteID = &id
	}
	if f.ClientID != "" {
		id, err := uuid.Parse(f.ClientID)
		if err != nil {
			return filter, shared.NewValidationError("Invalid client ID format")
		}
		filter.ClientID = &id
	}
	return filter, nil
}

// ToInvoiceResponse converts a domain Invoice to a response DTO
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	payments := make([]PaymentResponse, len(inv.Payments))
	for i, p := range inv.Payments {
		payments[i] = PaymentResponse{
			ID:         p.ID,
			Amount:     p.Amount,
			Method:     string(p.Method),
			PaidAt:     p.PaidAt,
			Reference:  p.Reference,
			RecordedBy: p.RecordedBy,
			CreatedAt:  p.CreatedAt,
		}
	}
	return InvoiceResponse{
		ID:                inv.ID,
		TenantID:          inv.TenantID,
		InvoiceNumber:     inv.InvoiceNumber,
		QuoteID:           inv.QuoteID,
		QuoteNumber:       inv.QuoteNumber,
		QuoteRevision:     inv.QuoteRevision,
		ClientID:          inv.ClientID,
		PartySnapshot:     inv.PartySnapshot,
		LineItems:         toLineItemResponses(inv.LineItems),
		LaborCost:         inv.LaborCost,
		TaxRate:           inv.TaxRate,
		DiscountRate:      inv.DiscountRate,
		TotalsResponse:    toTotalsResponse(inv.Totals),
		IssuedAt:          inv.IssuedAt,
		DueDate:           inv.DueDate,
		PaidAmount:        inv.PaidAmount,
		OutstandingAmount: inv.OutstandingAmount(),
		PaymentStatus:     inv.PaymentStatus.String(),
		LifecycleStatus:   inv.LifecycleStatus.String(),
		CreditNoteID:      inv.CreditNoteID,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		Payments:          payments,
		CreatedBy:         inv.CreatedBy,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
		Version:           inv.Version,
	}
}

// ToInvoiceListItemResponses converts domain invoices to list item DTOs
func ToInvoiceListItemResponses(invoices []invoicing.Invoice) []InvoiceListItemResponse {
	responses := make([]InvoiceListItemResponse, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		responses[i] = InvoiceListItemResponse{
			ID:                inv.ID,
			InvoiceNumber:     inv.InvoiceNumber,
			QuoteID:           inv.QuoteID,
			QuoteNumber:       inv.QuoteNumber,
			ClientID:          inv.ClientID,
			ClientName:        inv.ClientName,
			FinalPayableTotal: inv.FinalPayableTotal,
			PaidAmount:        inv.PaidAmount,
			PaymentStatus:     inv.PaymentStatus.String(),
			LifecycleStatus:   inv.LifecycleStatus.String(),
			IssuedAt:          inv.IssuedAt,
			DueDate:           inv.DueDate,
		}
	}
	return responses
}

// ToInvoiceStatisticsResponse converts domain statistics to a response DTO
func ToInvoiceStatisticsResponse(s *invoicing.InvoiceStatistics) InvoiceStatisticsResponse {
	return InvoiceStatisticsResponse{
		TotalCount:         s.TotalCount,
		ActiveCount:        s.ActiveCount,
		CancelledCount:     s.CancelledCount,
		PendingCount:       s.PendingCount,
		PartiallyPaidCount: s.PartiallyPaidCount,
		PaidCount:          s.PaidCount,
		OverdueCount:       s.OverdueCount,
		TotalInvoiced:      s.TotalInvoiced,
		TotalPaid:          s.TotalPaid,
		TotalOutstanding:   s.TotalOutstanding,
		TotalOverdue:       s.TotalOverdue,
		TotalCredited:      s.TotalCredited,
	}
}

// ==================== Credit Note DTOs ====================

// CreditNoteListFilter represents filter options for the credit note list
type CreditNoteListFilter struct {
	Search    string `form:"search"`
	InvoiceID string `form:"invoice_id" binding:"omitempty,uuid"`
	QuoteID   string `form:"quote_id" binding:"omitempty,uuid"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CreditNoteResponse represents a credit note in API responses
type CreditNoteResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	QuoteID          uuid.UUID       `json:"quote_id"`
	ClientID         uuid.UUID       `json:"client_id"`
	ClientName       string          `json:"client_name"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	IssuedAt         time.Time       `json:"issued_at"`
	CreatedBy        *uuid.UUID      `json:"created_by,omitempty"`
}

func (f CreditNoteListFilter) toDomain() (invoicing.CreditNoteFilter, error) {
	filter := invoicing.CreditNoteFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   f.Search,
		}.Normalize(),
	}
	if f.InvoiceID != "" {
		id, err := uuid.Parse(f.InvoiceID)
		if err != nil {
			return filter, shared.NewValidationError("Invalid invoice ID format")
		}
		filter.InvoiceID = &id
	}
	if f.QuoteID != "" {
		id, err := uuid.Parse(f.QuoteID)
		if err != nil {
			return filter, shared.NewValidationError("Invalid quote ID format")
		}
		filter.QuoteID = &id
	}
	return filter, nil
}

// ToCreditNoteResponse converts a domain CreditNote to a response DTO
func ToCreditNoteResponse(cn *invoicing.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:               cn.ID,
		TenantID:         cn.TenantID,
		CreditNoteNumber: cn.CreditNoteNumber,
		InvoiceID:        cn.InvoiceID,
		InvoiceNumber:    cn.InvoiceNumber,
		QuoteID:          cn.QuoteID,
		ClientID:         cn.ClientID,
		ClientName:       cn.ClientName,
		Amount:           cn.Amount,
		Reason:           cn.Reason,
		IssuedAt:         cn.IssuedAt,
		CreatedBy:        cn.CreatedBy,
	}
}

// ToCreditNoteResponses converts domain credit notes to DTOs
func ToCreditNoteResponses(notes []invoicing.CreditNote) []CreditNoteResponse {
	responses := make([]CreditNoteResponse, len(notes))
	for i := range notes {
		responses[i] = ToCreditNoteResponse(&notes[i])
	}
	return responses
}
