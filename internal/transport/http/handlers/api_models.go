package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	traceID, _ := c.Get(middleware.TraceIDKey)
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Code:    code,
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RoleCreateRequest defines the payload for creating a role.
type RoleCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// RoleListResponse wraps multiple roles in the paging envelope clients expect.
type RoleListResponse struct {
	Data []domain.Role `json:"data"`
}

// RoleAssignmentRequest assigns users to a role.
type RoleAssignmentRequest struct {
	UserIDs []string `json:"userIds" binding:"required"`
}

// RoleAssignmentResponse returns the role's membership after an assignment.
type RoleAssignmentResponse struct {
	RoleID string                   `json:"roleId"`
	Users  []domain.EntityReference `json:"users"`
}

// PolicyUpdateRequest carries the full replacement state of a policy.
type PolicyUpdateRequest struct {
	ID         string            `json:"id" binding:"required"`
	Name       string            `json:"name" binding:"required"`
	PolicyType domain.PolicyType `json:"policyType" binding:"required"`
	Rules      []domain.Rule     `json:"rules"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
