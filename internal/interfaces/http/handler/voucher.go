package handler

import (
	"net/http"

	app "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VoucherHandler exposes posted vouchers and the outstanding invoice pool
type VoucherHandler struct {
	BaseHandler
	voucherService *app.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(voucherService *app.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService}
}

// RegisterRoutes registers voucher and invoice pool routes
func (h *VoucherHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/invoices/outstanding", h.ListOutstandingInvoices)

	vouchers := rg.Group("/vouchers")
	{
		vouchers.GET("", h.ListVouchers)
		vouchers.GET("/:id", h.GetVoucher)
		vouchers.POST("/:id/cancel", h.CancelVoucher)
	}
}

// ListOutstandingInvoices returns the outstanding invoice pool for a
// counterparty
func (h *VoucherHandler) ListOutstandingInvoices(c *gin.Context) {
	var req OutstandingInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.FormatBindingErrors(err, getRequestID(c)))
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	invoices, err := h.voucherService.ListOutstandingInvoices(
		c.Request.Context(), tenantID, req.CounterpartyID, settlement.CounterpartyRole(req.Role),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToInvoiceResponses(invoices))
}

// ListVouchers returns vouchers for the tenant with filtering and pagination
func (h *VoucherHandler) ListVouchers(c *gin.Context) {
	var req ListVouchersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.FormatBindingErrors(err, getRequestID(c)))
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	filter := settlement.VoucherFilter{
		CounterpartyID: req.CounterpartyID,
		FromDate:       req.FromDate,
		ToDate:         req.ToDate,
	}
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	if req.Kind != "" {
		kind := settlement.VoucherKind(req.Kind)
		filter.Kind = &kind
	}
	if req.Status != "" {
		status := settlement.VoucherStatus(req.Status)
		filter.Status = &status
	}
	if req.Method != "" {
		method := settlement.PaymentMethod(req.Method)
		filter.Method = &method
	}

	vouchers, total, err := h.voucherService.ListVouchers(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, ToVoucherResponses(vouchers), total, req.Page, req.PageSize)
}

// GetVoucher returns one voucher with its allocations
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	voucherID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	voucher, err := h.voucherService.GetVoucher(c.Request.Context(), tenantID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToVoucherResponse(voucher))
}

// CancelVoucher cancels a posted voucher and reverses its settlements
func (h *VoucherHandler) CancelVoucher(c *gin.Context) {
	voucherID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	var req CancelVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.FormatBindingErrors(err, getRequestID(c)))
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "X-User-ID header is required to cancel a voucher")
		return
	}

	voucher, err := h.voucherService.CancelVoucher(c.Request.Context(), tenantID, voucherID, userID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToVoucherResponse(voucher))
}
