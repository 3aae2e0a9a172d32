package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/usecase"
)

type PolicyHandler struct {
	policies *usecase.PolicyService
}

func NewPolicyHandler(policies *usecase.PolicyService) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

func (h *PolicyHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:id", h.GetPolicy)
	r.PUT("", h.UpdatePolicy)
}

// GetPolicy godoc
// @Summary Get a policy by id
// @Description Returns a policy. Pass fields=rules to embed the rule list.
// @Tags Policies
// @Produce json
// @Param id path string true "Policy id"
// @Param fields query string false "Comma-separated fields to embed"
// @Success 200 {object} domain.Policy
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/policies/{id} [get]
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	policy, err := h.policies.GetPolicy(c.Request.Context(), c.Param("id"), parseFields(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPolicyNotFound, Status: http.StatusNotFound, Code: CodeEntityNotFound, Message: "policy not found"},
			{Err: usecase.ErrInvalidPolicy, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "invalid policy id"},
		}, http.StatusInternalServerError, "failed to get policy")
		return
	}

	c.JSON(http.StatusOK, policy)
}

// UpdatePolicy godoc
// @Summary Replace a policy
// @Description Replaces the policy's rule list wholesale with the submitted state.
// @Tags Policies
// @Accept json
// @Produce json
// @Param request body PolicyUpdateRequest true "Full policy state"
// @Success 200 {object} domain.Policy
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/policies [put]
func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	var req PolicyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeInvalidRequest, "invalid policy payload"))
		return
	}

	policy, err := h.policies.UpdatePolicy(c.Request.Context(), domain.Policy{
		ID:         req.ID,
		Name:       req.Name,
		PolicyType: req.PolicyType,
		Rules:      req.Rules,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPolicyNotFound, Status: http.StatusNotFound, Code: CodeEntityNotFound, Message: "policy not found"},
			{Err: usecase.ErrInvalidRule, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "policy contains an invalid rule"},
			{Err: usecase.ErrInvalidPolicy, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "invalid policy payload"},
		}, http.StatusInternalServerError, "failed to update policy")
		return
	}

	c.JSON(http.StatusOK, policy)
}
