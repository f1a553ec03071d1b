package handler

import (
	"net/http"

	app "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// DraftHandler exposes the draft editing session over HTTP. Every mutation
// returns the full updated draft so the client can re-render the form from
// one source of truth.
type DraftHandler struct {
	BaseHandler
	draftService *app.DraftService
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(draftService *app.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

// RegisterRoutes registers draft session routes
func (h *DraftHandler) RegisterRoutes(rg *gin.RouterGroup) {
	drafts := rg.Group("/drafts")
	{
		drafts.POST("", h.StartDraft)
		drafts.GET("/:id", h.GetDraft)
		drafts.PATCH("/:id", h.UpdateDetails)
		drafts.DELETE("/:id", h.DiscardDraft)
		drafts.POST("/:id/toggle", h.ToggleInvoice)
		drafts.POST("/:id/amount", h.SetAmount)
		drafts.POST("/:id/counterparty", h.ChangeCounterparty)
		drafts.POST("/:id/submit", h.SubmitDraft)
	}
}

// StartDraft opens a new draft session and returns it with the loaded pool
func (h *DraftHandler) StartDraft(c *gin.Context) {
	var req StartDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	draft, err := h.draftService.StartDraft(c.Request.Context(), app.StartDraftRequest{
		TenantID:         tenantID,
		Kind:             settlement.VoucherKind(req.Kind),
		CounterpartyID:   req.CounterpartyID,
		CounterpartyName: req.CounterpartyName,
		VoucherDate:      req.VoucherDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ToDraftResponse(draft))
}

// GetDraft resumes a draft session from the store
func (h *DraftHandler) GetDraft(c *gin.Context) {
	draft, err := h.draftService.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToDraftResponse(draft))
}

// UpdateDetails edits narration, voucher date and payment method details
func (h *DraftHandler) UpdateDetails(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}

	draft, err := h.draftService.UpdateDetails(c.Request.Context(), c.Param("id"), app.UpdateDraftRequest{
		Method:      req.Method,
		Narration:   req.Narration,
		VoucherDate: req.VoucherDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToDraftResponse(draft))
}

// ToggleInvoice selects or deselects a pool invoice
func (h *DraftHandler) ToggleInvoice(c *gin.Context) {
	var req ToggleInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}

	draft, err := h.draftService.ToggleInvoice(c.Request.Context(), c.Param("id"), req.InvoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToDraftResponse(draft))
}

// SetAmount edits the settled amount for a selected invoice
func (h *DraftHandler) SetAmount(c *gin.Context) {
	var req SetAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}

	draft, err := h.draftService.SetAllocationAmount(c.Request.Context(), c.Param("id"), req.InvoiceID, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToDraftResponse(draft))
}

// ChangeCounterparty switches the draft's counterparty, resetting allocations
func (h *DraftHandler) ChangeCounterparty(c *gin.Context) {
	var req ChangeCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingFailed(c, err)
		return
	}

	draft, err := h.draftService.ChangeCounterparty(c.Request.Context(), c.Param("id"), req.CounterpartyID, req.CounterpartyName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToDraftResponse(draft))
}

// SubmitDraft validates and posts the draft. Validation failures return 422
// with the field-keyed error map; the draft stays stored for correction.
func (h *DraftHandler) SubmitDraft(c *gin.Context) {
	voucher, err := h.draftService.SubmitDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ToVoucherResponse(voucher))
}

// DiscardDraft drops the draft session
func (h *DraftHandler) DiscardDraft(c *gin.Context) {
	if err := h.draftService.DiscardDraft(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// bindingFailed reports a request body binding failure
func (h *DraftHandler) bindingFailed(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, middleware.FormatBindingErrors(err, getRequestID(c)))
}
