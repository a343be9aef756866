package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	disputeapp "github.com/rentio/backend/internal/application/dispute"
	refundapp "github.com/rentio/backend/internal/application/refund"
	rentalapp "github.com/rentio/backend/internal/application/rental"
	"github.com/rentio/backend/internal/infrastructure/cache"
	"github.com/rentio/backend/internal/infrastructure/scheduler"
	"github.com/rentio/backend/internal/interfaces/http/dto"
)

// ResolutionHandler handles admin arbitration endpoints: the escalated
// dispute queue, rulings, dashboard counters and the manual status sync.
type ResolutionHandler struct {
	BaseHandler
	resolutionService *disputeapp.ResolutionService
	refundService     *refundapp.RefundService
	orderSyncService  *rentalapp.OrderSyncService
	counterCache      *cache.CounterCache
	reconciliation    *scheduler.ReconciliationScheduler
}

// NewResolutionHandler creates a new ResolutionHandler
func NewResolutionHandler(
	resolutionService *disputeapp.ResolutionService,
	refundService *refundapp.RefundService,
	orderSyncService *rentalapp.OrderSyncService,
	counterCache *cache.CounterCache,
	reconciliation *scheduler.ReconciliationScheduler,
) *ResolutionHandler {
	return &ResolutionHandler{
		resolutionService: resolutionService,
		refundService:     refundService,
		orderSyncService:  orderSyncService,
		counterCache:      counterCache,
		reconciliation:    reconciliation,
	}
}

// PendingCountsResponse represents dashboard badge counters
type PendingCountsResponse struct {
	PendingDisputes int64 `json:"pending_disputes"`
	PendingRefunds  int64 `json:"pending_refunds"`
}

// SyncResultResponse represents the outcome of a manual reconciliation run
type SyncResultResponse struct {
	OrdersSynced int `json:"orders_synced"`
}

// ListPendingDisputes godoc
// @Summary      List escalated disputes
// @Description  Retrieve the queue of escalated violation cases awaiting arbitration, newest first
// @Tags         admin-disputes
// @Produce      json
// @Param        search query string false "Search term"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]dispute.ViolationCaseResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/disputes/pending [get]
func (h *ResolutionHandler) ListPendingDisputes(c *gin.Context) {
	var filter disputeapp.PendingDisputeListFilter
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

	cases, total, err := h.resolutionService.GetPendingDisputes(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, cases, total, filter.Page, filter.PageSize)
}

// CreateResolution godoc
// @Summary      Rule on an escalated dispute
// @Description  Record a binding ruling on an escalated violation case and close it
// @Tags         admin-disputes
// @Accept       json
// @Produce      json
// @Param        request body dispute.CreateResolutionRequest true "Ruling"
// @Success      201 {object} dto.Response{data=dispute.IssueResolutionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/resolutions [post]
func (h *ResolutionHandler) CreateResolution(c *gin.Context) {
	adminID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	var req disputeapp.CreateResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	res, err := h.resolutionService.CreateResolution(c.Request.Context(), adminID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, res)
}

// GetResolution godoc
// @Summary      Get the ruling for a violation case
// @Description  Retrieve the resolution recorded for a violation case, if any
// @Tags         admin-disputes
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Success      200 {object} dto.Response{data=dispute.IssueResolutionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/violations/{id}/resolution [get]
func (h *ResolutionHandler) GetResolution(c *gin.Context) {
	violationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	res, err := h.resolutionService.GetResolution(c.Request.Context(), violationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, res)
}

// GetPendingCounts godoc
// @Summary      Get dashboard pending counters
// @Description  Retrieve the number of escalated disputes and pending refunds. Served from a short-lived cache.
// @Tags         admin-disputes
// @Produce      json
// @Success      200 {object} dto.Response{data=PendingCountsResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/dashboard/pending-counts [get]
func (h *ResolutionHandler) GetPendingCounts(c *gin.Context) {
	ctx := c.Request.Context()

	disputes, err := h.counterCache.Get(ctx, cache.KeyPendingDisputes, h.resolutionService.CountPending)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	refunds, err := h.counterCache.Get(ctx, cache.KeyPendingRefunds, h.refundService.CountPending)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, PendingCountsResponse{
		PendingDisputes: disputes,
		PendingRefunds:  refunds,
	})
}

// ResolveOrder godoc
// @Summary      Resolve a single disputed order
// @Description  Flip one RETURNED_WITH_ISSUE order to RETURNED and calculate its refund. Fails with INVALID_STATE naming the blocking case when a dispute is still open.
// @Tags         admin-disputes
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/orders/{id}/resolve [post]
func (h *ResolutionHandler) ResolveOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	if err := h.orderSyncService.ResolveOrder(c.Request.Context(), orderID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"order_id": orderID})
}

// TriggerSync godoc
// @Summary      Run the order status sweep now
// @Description  Trigger one reconciliation pass that flips fully resolved orders to their final status
// @Tags         admin-disputes
// @Produce      json
// @Success      200 {object} dto.Response{data=SyncResultResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/reconciliation/run [post]
func (h *ResolutionHandler) TriggerSync(c *gin.Context) {
	synced, err := h.reconciliation.RunNow(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrSweepInProgress):
			h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "A reconciliation sweep is already running")
		case errors.Is(err, scheduler.ErrSchedulerNotRunning):
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Reconciliation scheduler is not running")
		default:
			h.HandleDomainError(c, err)
		}
		return
	}

	h.Success(c, SyncResultResponse{OrdersSynced: synced})
}
