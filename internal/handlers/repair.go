package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/middleware"
	"github.com/mkravets/staffhub/internal/services"
	"github.com/mkravets/staffhub/pkg/response"
	"gorm.io/gorm"
)

type RepairHandler struct {
	repairService *services.RepairService
}

func NewRepairHandler(db *gorm.DB) *RepairHandler {
	return &RepairHandler{
		repairService: services.NewRepairService(db),
	}
}

// RepairProject recomputes counters and memberships for one project
// POST /api/admin/repair/:id
func (h *RepairHandler) RepairProject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.repairService.RepairProject(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, report)
}

// RepairAll enqueues a full consistency sweep. With Redis enabled the
// sweep runs on the worker; otherwise it runs inline before returning.
// POST /api/admin/repair
func (h *RepairHandler) RepairAll(c *gin.Context) {
	queue := services.GetTaskQueue()
	if queue == nil {
		response.ServerError(c, "task queue not initialized")
		return
	}

	userID := middleware.GetUserID(c)
	task := &services.RepairTask{
		RequestedBy: userID,
		Reason:      "manual",
	}
	if err := queue.Enqueue(task); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	services.LogInfo("repair", "sweep_requested", "full repair sweep requested",
		&userID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, gin.H{"async": queue.IsAsync()})
}
