package handler

import (
	"context"

	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuoteService is the quote use-case surface the handler depends on
type QuoteService interface {
	Create(ctx context.Context, tenantID uuid.UUID, createdBy *uuid.UUID, req appinv.CreateQuoteRequest) (*appinv.QuoteResponse, error)
	GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*appinv.QuoteResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter appinv.QuoteListFilter) ([]appinv.QuoteListItemResponse, int64, error)
	Update(ctx context.Context, tenantID, quoteID uuid.UUID, req appinv.UpdateQuoteRequest) (*appinv.QuoteResponse, error)
	ChangeStatus(ctx context.Context, tenantID, quoteID uuid.UUID, req appinv.ChangeQuoteStatusRequest) (*appinv.QuoteResponse, error)
	AcknowledgeDispatch(ctx context.Context, tenantID, quoteID uuid.UUID, req appinv.DispatchAcknowledgementRequest) (*appinv.QuoteResponse, error)
	Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error
}

var _ QuoteService = (*appinv.QuoteService)(nil)

// QuoteHandler handles quote endpoints
type QuoteHandler struct {
	BaseHandler
	quotes QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Create handles POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var req appinv.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, err := h.quotes.Create(c.Request.Context(), identity.TenantID, userID(identity), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quote)
}

// GetByID handles GET /quotes/:id
func (h *QuoteHandler) GetByID(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id", "quote")
	if !ok {
		return
	}

	quote, err := h.quotes.GetByID(c.Request.Context(), identity.TenantID, quoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// List handles GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var filter appinv.QuoteListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	paging := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = paging.Page, paging.PageSize

	quotes, total, err := h.quotes.List(c.Request.Context(), identity.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, quotes, total, filter.Page, filter.PageSize)
}

// Update handles PUT /quotes/:id
func (h *QuoteHandler) Update(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id", "quote")
	if !ok {
		return
	}

	var req appinv.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, err := h.quotes.Update(c.Request.Context(), identity.TenantID, quoteID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// ChangeStatus handles POST /quotes/:id/status
func (h *QuoteHandler) ChangeStatus(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id", "quote")
	if !ok {
		return
	}

	var req appinv.ChangeQuoteStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, err := h.quotes.ChangeStatus(c.Request.Context(), identity.TenantID, quoteID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// AcknowledgeDispatch handles POST /quotes/:id/dispatch-acknowledgements
func (h *QuoteHandler) AcknowledgeDispatch(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id", "quote")
	if !ok {
		return
	}

	var req appinv.DispatchAcknowledgementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, err := h.quotes.AcknowledgeDispatch(c.Request.Context(), identity.TenantID, quoteID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Delete handles DELETE /quotes/:id
func (h *QuoteHandler) Delete(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id", "quote")
	if !ok {
		return
	}

	if err := h.quotes.Delete(c.Request.Context(), identity.TenantID, quoteID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
