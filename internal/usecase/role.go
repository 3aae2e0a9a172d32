package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	jsonpatch "github.com/evanphx/json-patch/v5"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
	"github.com/arklim/catalog-access/internal/repository"
)

const maxRoleNameLength = 128

var (
	// ErrRoleExists indicates a role with the provided name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrInvalidRole indicates the role payload failed validation.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidPatch indicates the submitted patch document could not be applied.
	ErrInvalidPatch = errors.New("invalid patch")
)

// Role fields callers can request to be embedded in responses.
const (
	FieldPolicy = "policy"
	FieldUsers  = "users"
)

// CreateRoleInput captures the payload for creating a role.
type CreateRoleInput struct {
	Name        string
	DisplayName string
	Description string
}

// RoleService manages catalog roles and their default policies.
type RoleService struct {
	roles    port.RoleRepository
	policies port.PolicyRepository
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, policies port.PolicyRepository, events port.EventPublisher) *RoleService {
	return &RoleService{roles: roles, policies: policies, events: events, logger: zap.NewNop()}
}

// WithLogger attaches a logger to the service.
func (s *RoleService) WithLogger(log *zap.Logger) *RoleService {
	if log != nil {
		s.logger = log
	}
	return s
}

// ListRoles returns all roles, embedding the requested reference fields.
func (s *RoleService) ListRoles(ctx context.Context, fields []string) ([]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	for i := range roles {
		if err := s.expandFields(ctx, &roles[i], fields); err != nil {
			return nil, err
		}
	}

	return roles, nil
}

// GetRoleByName returns a single role by its unique name.
func (s *RoleService) GetRoleByName(ctx context.Context, name string, fields []string) (*domain.Role, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRole)
	}

	role, err := s.roles.GetByName(ctx, trimmed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}

	if err := s.expandFields(ctx, role, fields); err != nil {
		return nil, err
	}

	return role, nil
}

// GetRoleByID returns a single role by its id.
func (s *RoleService) GetRoleByID(ctx context.Context, id string, fields []string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role by id: %w", err)
	}

	if err := s.expandFields(ctx, role, fields); err != nil {
		return nil, err
	}

	return role, nil
}

// CreateRole provisions a role together with its empty default policy.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	displayName := strings.TrimSpace(input.DisplayName)

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRole)
	}
	if utf8.RuneCountInString(name) > maxRoleNameLength {
		return nil, fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRole, maxRoleNameLength)
	}
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrInvalidRole)
	}
	if utf8.RuneCountInString(displayName) > maxRoleNameLength {
		return nil, fmt.Errorf("%w: display name exceeds %d characters", ErrInvalidRole, maxRoleNameLength)
	}

	if existing, err := s.roles.GetByName(ctx, name); err == nil && existing != nil {
		return nil, ErrRoleExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup role by name: %w", err)
	}

	policy := domain.Policy{
		ID:         uuid.NewString(),
		Name:       name + "-policy",
		PolicyType: domain.PolicyTypeAccessControl,
		Rules:      []domain.Rule{},
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, fmt.Errorf("create default policy: %w", err)
	}

	role := domain.Role{
		ID:          uuid.NewString(),
		Name:        name,
		DisplayName: displayName,
		Description: strings.TrimSpace(input.Description),
		Policy: &domain.EntityReference{
			ID:   policy.ID,
			Type: "policy",
			Name: policy.Name,
		},
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	event := domain.RoleCreatedEvent{
		EventID:     uuid.NewString(),
		RoleID:      role.ID,
		RoleName:    role.Name,
		DisplayName: role.DisplayName,
		PolicyID:    policy.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.events.PublishRoleCreated(ctx, event); err != nil {
		s.logger.Warn("failed to publish role created event",
			zap.String("role_id", role.ID),
			zap.Error(err),
		)
	}

	return &role, nil
}

// PatchRole applies an RFC 6902 patch document to the stored role. The id and
// policy reference are immutable through this surface.
func (s *RoleService) PatchRole(ctx context.Context, id string, patchDoc []byte) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	original, err := json.Marshal(role)
	if err != nil {
		return nil, fmt.Errorf("marshal role: %w", err)
	}

	patched, err := patch.Apply(original)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var updated domain.Role
	if err := json.Unmarshal(patched, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	updated.ID = role.ID
	updated.Policy = role.Policy

	if strings.TrimSpace(updated.Name) == "" || strings.TrimSpace(updated.DisplayName) == "" {
		return nil, fmt.Errorf("%w: patched role is missing required fields", ErrInvalidRole)
	}

	if err := s.roles.Update(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	event := domain.RoleUpdatedEvent{
		EventID:       uuid.NewString(),
		RoleID:        updated.ID,
		RoleName:      updated.Name,
		UpdatedFields: changedFields(*role, updated),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.events.PublishRoleUpdated(ctx, event); err != nil {
		s.logger.Warn("failed to publish role updated event",
			zap.String("role_id", updated.ID),
			zap.Error(err),
		)
	}

	return &updated, nil
}

// AssignUsers grants the role to the given users and returns the resulting
// membership list.
func (s *RoleService) AssignUsers(ctx context.Context, roleID string, userIDs []string) ([]domain.EntityReference, error) {
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one user id is required", ErrInvalidRole)
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}

	if err := s.roles.AssignToUsers(ctx, role.ID, ids); err != nil {
		return nil, fmt.Errorf("assign role to users: %w", err)
	}

	users, err := s.roles.ListUsers(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("list role users: %w", err)
	}

	event := domain.RoleUpdatedEvent{
		EventID:       uuid.NewString(),
		RoleID:        role.ID,
		RoleName:      role.Name,
		UpdatedFields: []string{"users"},
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.events.PublishRoleUpdated(ctx, event); err != nil {
		s.logger.Warn("failed to publish role updated event",
			zap.String("role_id", role.ID),
			zap.Error(err),
		)
	}

	return users, nil
}

func (s *RoleService) expandFields(ctx context.Context, role *domain.Role, fields []string) error {
	if !hasField(fields, FieldPolicy) {
		role.Policy = nil
	}

	if hasField(fields, FieldUsers) {
		users, err := s.roles.ListUsers(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("list role users: %w", err)
		}
		role.Users = users
	} else {
		role.Users = nil
	}

	return nil
}

func hasField(fields []string, name string) bool {
	for _, field := range fields {
		if strings.TrimSpace(field) == name {
			return true
		}
	}
	return false
}

func changedFields(before, after domain.Role) []string {
	var changed []string
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if before.DisplayName != after.DisplayName {
		changed = append(changed, "displayName")
	}
	if before.Description != after.Description {
		changed = append(changed, "description")
	}
	return changed
}
