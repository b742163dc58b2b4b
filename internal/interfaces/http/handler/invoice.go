package handler

import (
	"context"
	"net/http"

	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/garage/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoicingService is the invoice and credit note use-case surface the handlers depend on
type InvoicingService interface {
	EnsureInvoice(ctx context.Context, tenantID, quoteID uuid.UUID, userID *uuid.UUID) (*appinv.EnsureInvoiceResponse, error)
	RecordPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, userID *uuid.UUID, req appinv.RecordPaymentRequest) (*appinv.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, req appinv.CancelInvoiceRequest) (*appinv.InvoiceResponse, error)
	GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appinv.InvoiceResponse, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, filter appinv.InvoiceListFilter) ([]appinv.InvoiceListItemResponse, int64, error)
	GetInvoiceStatistics(ctx context.Context, tenantID uuid.UUID) (*appinv.InvoiceStatisticsResponse, error)
	GetCreditNote(ctx context.Context, tenantID, creditNoteID uuid.UUID) (*appinv.CreditNoteResponse, error)
	ListCreditNotes(ctx context.Context, tenantID uuid.UUID, filter appinv.CreditNoteListFilter) ([]appinv.CreditNoteResponse, int64, error)
}

var _ InvoicingService = (*appinv.InvoicingService)(nil)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoicing InvoicingService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoicing InvoicingService) *InvoiceHandler {
	return &InvoiceHandler{invoicing: invoicing}
}

// EnsureInvoice handles POST /quotes/:id/invoice. The first issuance answers
// 201, every later call for the same quote content answers 200 with the same invoice.
func (h *InvoiceHandler) EnsureInvoice(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id", "quote")
	if !ok {
		return
	}

	result, err := h.invoicing.EnsureInvoice(c.Request.Context(), identity.TenantID, quoteID, userID(identity))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	switch result.Outcome {
	case appinv.OutcomeIssued, appinv.OutcomeReplaced, appinv.OutcomeResumed:
		h.Created(c, result)
	default:
		h.Success(c, result)
	}
}

// RecordPayment handles POST /invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	var req appinv.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	invoice, err := h.invoicing.RecordPayment(c.Request.Context(), identity.TenantID, invoiceID, userID(identity), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(invoice))
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	var req appinv.CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	invoice, err := h.invoicing.CancelInvoice(c.Request.Context(), identity.TenantID, invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// GetByID handles GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoicing.GetInvoice(c.Request.Context(), identity.TenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var filter appinv.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	paging := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = paging.Page, paging.PageSize

	invoices, total, err := h.invoicing.ListInvoices(c.Request.Context(), identity.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Statistics handles GET /invoices/statistics
func (h *InvoiceHandler) Statistics(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	stats, err := h.invoicing.GetInvoiceStatistics(c.Request.Context(), identity.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
