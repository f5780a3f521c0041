package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/middleware"
	"github.com/mkravets/staffhub/internal/services"
	"github.com/mkravets/staffhub/pkg/response"
	"gorm.io/gorm"
)

type AssignmentHandler struct {
	assignmentService *services.AssignmentService
}

func NewAssignmentHandler(db *gorm.DB) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: services.NewAssignmentService(db),
	}
}

// Invite sends a management invitation to a manager
// POST /api/projects/:id/assignments
func (h *AssignmentHandler) Invite(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		ManagerID        uint   `json:"manager_id" binding:"required"`
		NegotiationOffer string `json:"negotiation_offer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.assignmentService.Invite(projectID, req.ManagerID, middleware.GetUserID(c), req.NegotiationOffer)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// ListByProject lists assignments for a project
// GET /api/projects/:id/assignments
func (h *AssignmentHandler) ListByProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	assignments, err := h.assignmentService.ListByProject(projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, assignments)
}

// ListMine lists the current manager's assignments
// GET /api/assignments
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	assignments, err := h.assignmentService.ListForManager(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, assignments)
}

// Accept accepts a pending invitation
// POST /api/assignments/:id/accept
func (h *AssignmentHandler) Accept(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.assignmentService.Accept(id, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Decline declines an invitation or steps down from a project
// POST /api/assignments/:id/decline
func (h *AssignmentHandler) Decline(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.assignmentService.Decline(id, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Remove withdraws an invitation or removes a manager, owner only
// DELETE /api/projects/:id/assignments/:managerID
func (h *AssignmentHandler) Remove(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	managerID, ok := parseIDParam(c, "managerID")
	if !ok {
		return
	}

	result, err := h.assignmentService.Remove(projectID, managerID, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Reassign swaps one manager for another in a single step
// POST /api/projects/:id/assignments/reassign
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		OldManagerID     uint   `json:"old_manager_id" binding:"required"`
		NewManagerID     uint   `json:"new_manager_id" binding:"required"`
		NegotiationOffer string `json:"negotiation_offer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.assignmentService.Reassign(projectID, req.OldManagerID, req.NewManagerID, middleware.GetUserID(c), req.NegotiationOffer)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}
