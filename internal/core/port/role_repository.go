package port

import (
	"context"

	"github.com/arklim/catalog-access/internal/core/domain"
)

// RoleRepository handles role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Update(ctx context.Context, role domain.Role) error
	AssignToUsers(ctx context.Context, roleID string, userIDs []string) error
	ListUsers(ctx context.Context, roleID string) ([]domain.EntityReference, error)
}
