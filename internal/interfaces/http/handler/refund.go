package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	refundapp "github.com/rentio/backend/internal/application/refund"
)

// RefundHandler handles deposit refund API endpoints
type RefundHandler struct {
	BaseHandler
	refundService     *refundapp.RefundService
	calculatorService *refundapp.CalculatorService
}

// NewRefundHandler creates a new RefundHandler
func NewRefundHandler(
	refundService *refundapp.RefundService,
	calculatorService *refundapp.CalculatorService,
) *RefundHandler {
	return &RefundHandler{
		refundService:     refundService,
		calculatorService: calculatorService,
	}
}

// GetOwn godoc
// @Summary      Get own deposit refund
// @Description  Retrieve a deposit refund belonging to the calling customer
// @Tags         refunds
// @Produce      json
// @Param        id path string true "Refund ID" format(uuid)
// @Success      200 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /refunds/{id} [get]
func (h *RefundHandler) GetOwn(c *gin.Context) {
	customerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	dr, err := h.refundService.GetOwn(c.Request.Context(), customerID, refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dr)
}

// GetByOrder godoc
// @Summary      Get the deposit refund for an order
// @Description  Retrieve the refund computed for one of the calling customer's orders
// @Tags         refunds
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/refund [get]
func (h *RefundHandler) GetByOrder(c *gin.Context) {
	customerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	dr, err := h.refundService.GetByOrder(c.Request.Context(), customerID, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dr)
}

// ListOwn godoc
// @Summary      List own deposit refunds
// @Description  Retrieve a paginated list of the calling customer's refunds
// @Tags         refunds
// @Produce      json
// @Param        status query string false "Refund status" Enums(PENDING, COMPLETED, REJECTED)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]refund.DepositRefundResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /refunds [get]
func (h *RefundHandler) ListOwn(c *gin.Context) {
	customerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	var filter refundapp.RefundListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	refunds, total, err := h.refundService.ListOwn(c.Request.Context(), customerID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, refunds, total, filter.Page, filter.PageSize)
}

// List godoc
// @Summary      List deposit refunds
// @Description  Retrieve a paginated list of refunds across all customers, for back office review
// @Tags         admin-refunds
// @Produce      json
// @Param        status query string false "Refund status" Enums(PENDING, COMPLETED, REJECTED)
// @Param        start_date query string false "Created after (ISO 8601)" format(date-time)
// @Param        end_date query string false "Created before (ISO 8601)" format(date-time)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]refund.DepositRefundResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/refunds [get]
func (h *RefundHandler) List(c *gin.Context) {
	var filter refundapp.RefundListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	refunds, total, err := h.refundService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, refunds, total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @Summary      Get a deposit refund
// @Description  Retrieve any refund by ID, for back office review
// @Tags         admin-refunds
// @Produce      json
// @Param        id path string true "Refund ID" format(uuid)
// @Success      200 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/refunds/{id} [get]
func (h *RefundHandler) GetByID(c *gin.Context) {
	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	dr, err := h.refundService.GetByID(c.Request.Context(), refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dr)
}

// Process godoc
// @Summary      Process a pending refund
// @Description  Approve or reject a pending deposit refund payout
// @Tags         admin-refunds
// @Accept       json
// @Produce      json
// @Param        id path string true "Refund ID" format(uuid)
// @Param        request body refund.ProcessRefundRequest true "Processing decision"
// @Success      200 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/refunds/{id}/process [post]
func (h *RefundHandler) Process(c *gin.Context) {
	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	var req refundapp.ProcessRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	dr, err := h.refundService.ProcessRefund(c.Request.Context(), adminID, refundID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dr)
}

// Reopen godoc
// @Summary      Reopen a rejected refund
// @Description  Move a rejected refund back to pending so it can be processed again
// @Tags         admin-refunds
// @Produce      json
// @Param        id path string true "Refund ID" format(uuid)
// @Success      200 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/refunds/{id}/reopen [post]
func (h *RefundHandler) Reopen(c *gin.Context) {
	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	dr, err := h.refundService.ReopenRefund(c.Request.Context(), adminID, true, refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dr)
}

// ReopenOwn godoc
// @Summary      Reopen own rejected refund
// @Description  Move the caller's rejected refund back to pending for another review
// @Tags         refunds
// @Produce      json
// @Param        id path string true "Refund ID" format(uuid)
// @Success      200 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /refunds/{id}/reopen [post]
func (h *RefundHandler) ReopenOwn(c *gin.Context) {
	customerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	refundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	dr, err := h.refundService.ReopenRefund(c.Request.Context(), customerID, false, refundID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dr)
}

// Calculate godoc
// @Summary      Calculate the refund for an order
// @Description  Compute and persist the deposit refund for an order whose disputes are all closed. Normally triggered by case closure events; this endpoint covers manual recovery.
// @Tags         admin-refunds
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      201 {object} dto.Response{data=refund.DepositRefundResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/orders/{id}/refund/calculate [post]
func (h *RefundHandler) Calculate(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	dr, err := h.calculatorService.Calculate(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, dr)
}
