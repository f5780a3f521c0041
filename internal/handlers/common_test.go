package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mkravets/staffhub/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		code   services.ErrorCode
		status int
	}{
		{services.CodeNotFound, http.StatusNotFound},
		{services.CodePermissionDenied, http.StatusForbidden},
		{services.CodeInvalidTransition, http.StatusConflict},
		{services.CodeInvalidTarget, http.StatusConflict},
		{services.CodeCapacityExceeded, http.StatusConflict},
		{services.CodeAlreadyApplied, http.StatusConflict},
		{services.CodeAlreadyExists, http.StatusConflict},
		{services.CodeConcurrencyConflict, http.StatusServiceUnavailable},
		{services.CodeConsistencyDrift, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			handleServiceError(c, &services.DomainError{Code: tt.code, Message: "boom"})
			if w.Code != tt.status {
				t.Errorf("code %q mapped to %d, expected %d", tt.code, w.Code, tt.status)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	id, ok := parseIDParam(c, "id")
	if !ok || id != 42 {
		t.Errorf("parseIDParam = %d/%v, expected 42/true", id, ok)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	if _, ok := parseIDParam(c, "id"); ok {
		t.Error("non-numeric id should fail")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
