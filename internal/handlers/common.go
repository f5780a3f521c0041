package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/services"
	"github.com/mkravets/staffhub/pkg/response"
)

// handleServiceError maps domain error codes to HTTP responses. Only
// concurrency conflicts are retryable, signalled with 503.
func handleServiceError(c *gin.Context, err error) {
	switch services.CodeOf(err) {
	case services.CodeNotFound:
		response.NotFound(c, err.Error())
	case services.CodePermissionDenied:
		response.Forbidden(c, err.Error())
	case services.CodeInvalidTransition, services.CodeInvalidTarget:
		response.Conflict(c, err.Error())
	case services.CodeCapacityExceeded,
		services.CodeAlreadyApplied,
		services.CodeAlreadyExists:
		response.Conflict(c, err.Error())
	case services.CodeConcurrencyConflict:
		response.Unavailable(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
