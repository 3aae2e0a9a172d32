package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/arklim/catalog-access/internal/transport/http/middleware"
)

func TestNewErrorResponseCarriesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, CodeInternalError, "boom"))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Code != CodeInternalError {
		t.Errorf("expected code %q, got %q", CodeInternalError, body.Code)
	}
	if body.TraceID != "req-123" {
		t.Errorf("expected trace_id %q, got %q", "req-123", body.TraceID)
	}
}

func TestNewErrorResponseGeneratesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, CodeEntityNotFound, "missing"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.TraceID == "" {
		t.Error("expected a generated trace_id, got empty string")
	}
	if body.TraceID != rec.Header().Get("X-Request-ID") {
		t.Errorf("trace_id %q does not match X-Request-ID header %q", body.TraceID, rec.Header().Get("X-Request-ID"))
	}
}
