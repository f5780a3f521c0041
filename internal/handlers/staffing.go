package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/middleware"
	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/internal/services"
	"github.com/mkravets/staffhub/pkg/response"
	"gorm.io/gorm"
)

type StaffingHandler struct {
	staffingService *services.StaffingService
}

func NewStaffingHandler(db *gorm.DB) *StaffingHandler {
	return &StaffingHandler{
		staffingService: services.NewStaffingService(db),
	}
}

// CreateSlot adds a role slot to a project
// POST /api/projects/:id/slots
func (h *StaffingHandler) CreateSlot(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		RoleName  string `json:"role_name" binding:"required"`
		Positions int    `json:"positions" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	slot, err := h.staffingService.CreateSlot(projectID, middleware.GetUserID(c), req.RoleName, req.Positions)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, slot)
}

// UpdateSlot changes a slot's role name or headcount
// PUT /api/slots/:id
func (h *StaffingHandler) UpdateSlot(c *gin.Context) {
	slotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		RoleName  string `json:"role_name" binding:"required"`
		Positions int    `json:"positions" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	slot, err := h.staffingService.UpdateSlot(slotID, middleware.GetUserID(c), req.RoleName, req.Positions)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, slot)
}

// DeleteSlot removes an unfilled slot
// DELETE /api/slots/:id
func (h *StaffingHandler) DeleteSlot(c *gin.Context) {
	slotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.staffingService.DeleteSlot(slotID, middleware.GetUserID(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "slot deleted"})
}

// ListSlots lists a project's role slots
// GET /api/projects/:id/slots
func (h *StaffingHandler) ListSlots(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	slots, err := h.staffingService.ListSlots(projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, slots)
}

// Apply submits an executor application to a slot
// POST /api/slots/:id/applications
func (h *StaffingHandler) Apply(c *gin.Context) {
	slotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		ProjectID   uint   `json:"project_id" binding:"required"`
		CoverLetter string `json:"cover_letter"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.staffingService.Apply(req.ProjectID, slotID, middleware.GetUserID(c), req.CoverLetter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// AcceptApplication approves a pending application
// POST /api/applications/:id/accept
func (h *StaffingHandler) AcceptApplication(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.staffingService.AcceptApplication(id, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// DeclineApplication rejects a pending application
// POST /api/applications/:id/decline
func (h *StaffingHandler) DeclineApplication(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.staffingService.DeclineApplication(id, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// ListApplications lists a project's applications, filterable by slot and status
// GET /api/projects/:id/applications
func (h *StaffingHandler) ListApplications(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var slotID *uint
	if raw := c.Query("slot_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "invalid slot_id")
			return
		}
		id := uint(parsed)
		slotID = &id
	}

	status := models.ApplicationStatus(c.Query("status"))
	applications, err := h.staffingService.ListApplications(projectID, slotID, status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, applications)
}

// ListMyApplications lists the current executor's applications
// GET /api/applications
func (h *StaffingHandler) ListMyApplications(c *gin.Context) {
	applications, err := h.staffingService.ListForExecutor(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, applications)
}
