package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	disputeapp "github.com/rentio/backend/internal/application/dispute"
	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/infrastructure/auth"
)

// ViolationCaseHandler handles violation case API endpoints: provider claims,
// customer responses, evidence and escalation.
type ViolationCaseHandler struct {
	BaseHandler
	violationService   *disputeapp.ViolationService
	negotiationService *disputeapp.NegotiationService
}

// NewViolationCaseHandler creates a new ViolationCaseHandler
func NewViolationCaseHandler(
	violationService *disputeapp.ViolationService,
	negotiationService *disputeapp.NegotiationService,
) *ViolationCaseHandler {
	return &ViolationCaseHandler{
		violationService:   violationService,
		negotiationService: negotiationService,
	}
}

// partyFromRole maps the caller's role to a dispute party.
// Admins act through the resolution endpoints, not as a party.
func partyFromRole(role auth.Role) (dispute.Party, bool) {
	switch role {
	case auth.RoleProvider:
		return dispute.PartyProvider, true
	case auth.RoleCustomer:
		return dispute.PartyCustomer, true
	}
	return "", false
}

// Create godoc
// @Summary      Raise violation claims against an order
// @Description  Create one violation case per claimed order item, atomically
// @Tags         violations
// @Accept       json
// @Produce      json
// @Param        request body dispute.CreateViolationCasesRequest true "Violation claims"
// @Success      201 {object} dto.Response{data=[]dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations [post]
func (h *ViolationCaseHandler) Create(c *gin.Context) {
	providerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	var req disputeapp.CreateViolationCasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	cases, err := h.violationService.CreateMultiple(c.Request.Context(), providerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, cases)
}

// GetByID godoc
// @Summary      Get a violation case
// @Description  Retrieve a violation case with its evidence. Only the parties to the order and admins may view it.
// @Tags         violations
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Success      200 {object} dto.Response{data=dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations/{id} [get]
func (h *ViolationCaseHandler) GetByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	vc, err := h.violationService.GetByID(c.Request.Context(), userID, caseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vc)
}

// ListByOrder godoc
// @Summary      List violation cases for an order
// @Description  Retrieve all violation cases raised against an order
// @Tags         violations
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        include query string false "Set to 'products' to attach order line details" Enums(products)
// @Success      200 {object} dto.Response{data=[]dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/violations [get]
func (h *ViolationCaseHandler) ListByOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	if c.Query("include") == "products" {
		cases, err := h.violationService.ListByOrderWithProducts(c.Request.Context(), userID, orderID)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, cases)
		return
	}

	cases, err := h.violationService.ListByOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, cases)
}

// Edit godoc
// @Summary      Edit an unanswered claim
// @Description  Update a pending violation case before the customer has responded
// @Tags         violations
// @Accept       json
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Param        request body dispute.ReviseViolationCaseRequest true "Fields to update"
// @Success      200 {object} dto.Response{data=dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations/{id} [put]
func (h *ViolationCaseHandler) Edit(c *gin.Context) {
	providerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	var req disputeapp.ReviseViolationCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vc, err := h.violationService.EditByProvider(c.Request.Context(), providerID, caseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vc)
}

// Revise godoc
// @Summary      Revise a rejected claim
// @Description  Amend a rejected violation case and send it back to the customer for another response
// @Tags         violations
// @Accept       json
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Param        request body dispute.ReviseViolationCaseRequest true "Revised claim"
// @Success      200 {object} dto.Response{data=dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations/{id}/revise [post]
func (h *ViolationCaseHandler) Revise(c *gin.Context) {
	providerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	var req disputeapp.ReviseViolationCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vc, err := h.violationService.ReviseByProvider(c.Request.Context(), providerID, caseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vc)
}

// AddEvidence godoc
// @Summary      Attach evidence to a violation case
// @Description  Append an evidence image to a live case. Either party may attach evidence until the case reaches a terminal state.
// @Tags         violations
// @Accept       json
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Param        request body dispute.AddEvidenceRequest true "Evidence to attach"
// @Success      200 {object} dto.Response{data=dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations/{id}/evidence [post]
func (h *ViolationCaseHandler) AddEvidence(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	party, ok := partyFromRole(getRole(c))
	if !ok {
		h.Forbidden(c, "Only the customer or provider may attach evidence")
		return
	}

	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	var req disputeapp.AddEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vc, err := h.violationService.AddEvidence(c.Request.Context(), userID, party, caseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vc)
}

// Respond godoc
// @Summary      Respond to a pending claim
// @Description  Record the customer's acceptance or rejection of a pending violation case
// @Tags         violations
// @Accept       json
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Param        request body dispute.CustomerResponseRequest true "Customer response"
// @Success      200 {object} dto.Response{data=dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations/{id}/respond [post]
func (h *ViolationCaseHandler) Respond(c *gin.Context) {
	customerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	var req disputeapp.CustomerResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vc, err := h.negotiationService.CustomerRespond(c.Request.Context(), customerID, caseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vc)
}

// Escalate godoc
// @Summary      Escalate a rejected claim
// @Description  Send a rejected violation case to admin arbitration. Either party may escalate.
// @Tags         violations
// @Accept       json
// @Produce      json
// @Param        id path string true "Violation Case ID" format(uuid)
// @Param        request body dispute.EscalateCaseRequest true "Escalation reason"
// @Success      200 {object} dto.Response{data=dispute.ViolationCaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /violations/{id}/escalate [post]
func (h *ViolationCaseHandler) Escalate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity missing")
		return
	}

	party, ok := partyFromRole(getRole(c))
	if !ok {
		h.Forbidden(c, "Only the customer or provider may escalate")
		return
	}

	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid violation case ID format")
		return
	}

	var req disputeapp.EscalateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vc, err := h.negotiationService.Escalate(c.Request.Context(), userID, party, caseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vc)
}
