package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/middleware"
	"github.com/mkravets/staffhub/internal/services"
	"github.com/mkravets/staffhub/pkg/response"
	"gorm.io/gorm"
)

type UserHandler struct {
	roleChangeService *services.RoleChangeService
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{
		roleChangeService: services.NewRoleChangeService(db),
	}
}

// CheckRoleChange evaluates whether the current user may switch global role
// GET /api/users/me/role-change?target_role=manager
func (h *UserHandler) CheckRoleChange(c *gin.Context) {
	targetRole := c.Query("target_role")
	if targetRole == "" {
		response.BadRequest(c, "target_role is required")
		return
	}

	decision, err := h.roleChangeService.CanChangeGlobalRole(middleware.GetUserID(c), targetRole)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, decision)
}

// ChangeRole switches the current user's global role
// POST /api/users/me/role-change
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req struct {
		TargetRole string `json:"target_role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	user, err := h.roleChangeService.ChangeGlobalRole(userID, req.TargetRole)
	if err != nil {
		if de, ok := err.(*services.DomainError); ok && len(de.BlockingProjects) > 0 {
			response.ForbiddenData(c, de.Message, gin.H{"blocking_projects": de.BlockingProjects})
			return
		}
		handleServiceError(c, err)
		return
	}

	services.LogInfo("users", "role_change", "global role changed to "+req.TargetRole,
		&userID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, user)
}

// SetVisibility toggles whether the current user appears in candidate lists
// PUT /api/users/me/visibility
func (h *UserHandler) SetVisibility(c *gin.Context) {
	var req struct {
		Visible *bool `json:"visible" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.roleChangeService.SetVisibility(middleware.GetUserID(c), *req.Visible); err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"visible": *req.Visible})
}

// ListCandidates lists visible active users holding a global role
// GET /api/users/candidates?role=manager
func (h *UserHandler) ListCandidates(c *gin.Context) {
	role := c.Query("role")
	if role == "" {
		response.BadRequest(c, "role is required")
		return
	}

	users, err := h.roleChangeService.ListCandidates(role)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, users)
}

// ListUsers lists all accounts for the admin panel
// GET /api/admin/users?role=executor&page=1&page_size=50
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.roleChangeService.ListUsers(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// SetUserActive enables or disables an account
// PUT /api/admin/users/:id/active
func (h *UserHandler) SetUserActive(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	actorID := middleware.GetUserID(c)
	if err := h.roleChangeService.SetUserActive(actorID, userID, *req.Active); err != nil {
		handleServiceError(c, err)
		return
	}

	services.LogInfo("users", "set_active", "account active state changed",
		&actorID, c.ClientIP(), c.Request.UserAgent(),
		map[string]interface{}{"user_id": userID, "active": *req.Active})
	response.Success(c, gin.H{"user_id": userID, "active": *req.Active})
}
