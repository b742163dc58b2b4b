package handler

import (
	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// CreditNoteHandler handles credit note endpoints. Credit notes are read-only over HTTP.
type CreditNoteHandler struct {
	BaseHandler
	invoicing InvoicingService
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(invoicing InvoicingService) *CreditNoteHandler {
	return &CreditNoteHandler{invoicing: invoicing}
}

// GetByID handles GET /credit-notes/:id
func (h *CreditNoteHandler) GetByID(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	creditNoteID, ok := h.pathID(c, "id", "credit note")
	if !ok {
		return
	}

	creditNote, err := h.invoicing.GetCreditNote(c.Request.Context(), identity.TenantID, creditNoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, creditNote)
}

// List handles GET /credit-notes
func (h *CreditNoteHandler) List(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var filter appinv.CreditNoteListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	paging := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = paging.Page, paging.PageSize

	creditNotes, total, err := h.invoicing.ListCreditNotes(c.Request.Context(), identity.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, creditNotes, total, filter.Page, filter.PageSize)
}
