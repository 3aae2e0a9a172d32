package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/catalog-access/internal/usecase"
)

// maxPatchBytes caps the size of accepted JSON patch documents.
const maxPatchBytes = 1 << 20

type RoleHandler struct {
	roles *usecase.RoleService
}

func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListRoles)
	r.GET("/name/:name", h.GetRoleByName)
	r.GET("/:id", h.GetRoleByID)
	r.POST("", h.CreateRole)
	r.PATCH("/:id", h.PatchRole)
	r.PUT("/:id/users", h.AssignUsers)
}

// ListRoles godoc
// @Summary List roles
// @Description Returns all roles. Pass fields=policy,users to embed references.
// @Tags Roles
// @Produce json
// @Param fields query string false "Comma-separated reference fields to embed"
// @Success 200 {object} RoleListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.ListRoles(c.Request.Context(), parseFields(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, CodeInternalError, "failed to list roles"))
		return
	}

	c.JSON(http.StatusOK, RoleListResponse{Data: roles})
}

// GetRoleByName godoc
// @Summary Get a role by name
// @Tags Roles
// @Produce json
// @Param name path string true "Role name"
// @Param fields query string false "Comma-separated reference fields to embed"
// @Success 200 {object} domain.Role
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/name/{name} [get]
func (h *RoleHandler) GetRoleByName(c *gin.Context) {
	role, err := h.roles.GetRoleByName(c.Request.Context(), c.Param("name"), parseFields(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Code: CodeEntityNotFound, Message: "role not found"},
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "invalid role name"},
		}, http.StatusInternalServerError, "failed to get role")
		return
	}

	c.JSON(http.StatusOK, role)
}

// GetRoleByID godoc
// @Summary Get a role by id
// @Tags Roles
// @Produce json
// @Param id path string true "Role id"
// @Param fields query string false "Comma-separated reference fields to embed"
// @Success 200 {object} domain.Role
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [get]
func (h *RoleHandler) GetRoleByID(c *gin.Context) {
	role, err := h.roles.GetRoleByID(c.Request.Context(), c.Param("id"), parseFields(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Code: CodeEntityNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to get role")
		return
	}

	c.JSON(http.StatusOK, role)
}

// CreateRole godoc
// @Summary Create a new role
// @Description Creates a role together with its empty access-control policy.
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body RoleCreateRequest true "Role create request"
// @Success 201 {object} domain.Role
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeInvalidRequest, "invalid role payload"))
		return
	}

	role, err := h.roles.CreateRole(c.Request.Context(), usecase.CreateRoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Code: CodeEntityExists, Message: "role already exists"},
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "invalid role payload"},
		}, http.StatusInternalServerError, "failed to create role")
		return
	}

	c.JSON(http.StatusCreated, role)
}

// PatchRole godoc
// @Summary Patch a role
// @Description Applies an RFC 6902 patch document to the role. Id and policy are immutable.
// @Tags Roles
// @Accept json-patch+json
// @Produce json
// @Param id path string true "Role id"
// @Success 200 {object} domain.Role
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [patch]
func (h *RoleHandler) PatchRole(c *gin.Context) {
	patchDoc, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchBytes))
	if err != nil || len(patchDoc) == 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeInvalidRequest, "invalid patch document"))
		return
	}

	role, err := h.roles.PatchRole(c.Request.Context(), c.Param("id"), patchDoc)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Code: CodeEntityNotFound, Message: "role not found"},
			{Err: usecase.ErrInvalidPatch, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "invalid patch document"},
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "patched role is invalid"},
		}, http.StatusInternalServerError, "failed to patch role")
		return
	}

	c.JSON(http.StatusOK, role)
}

// AssignUsers godoc
// @Summary Assign a role to users
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role id"
// @Param request body RoleAssignmentRequest true "User ids to assign"
// @Success 200 {object} RoleAssignmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id}/users [put]
func (h *RoleHandler) AssignUsers(c *gin.Context) {
	var req RoleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, CodeInvalidRequest, "invalid assignment payload"))
		return
	}

	users, err := h.roles.AssignUsers(c.Request.Context(), c.Param("id"), req.UserIDs)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Code: CodeEntityNotFound, Message: "role not found"},
			{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: "invalid assignment payload"},
		}, http.StatusInternalServerError, "failed to assign role")
		return
	}

	c.JSON(http.StatusOK, RoleAssignmentResponse{RoleID: c.Param("id"), Users: users})
}

func parseFields(c *gin.Context) []string {
	raw := c.Query("fields")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}
