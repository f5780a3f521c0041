package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/models"
	"github.com/mkravets/staffhub/internal/services"
)

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check reports database and queue status.
// GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	queueMode := "sync"
	if q := services.GetTaskQueue(); q != nil && q.IsAsync() {
		queueMode = "async"
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbStatus,
		"queue":    queueMode,
	})
}
