package port

import (
	"context"

	"github.com/arklim/catalog-access/internal/core/domain"
)

// PolicyRepository handles policy persistence. Replace swaps the entire rule
// list in one statement; individual rules are never updated in place.
type PolicyRepository interface {
	Create(ctx context.Context, policy domain.Policy) error
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	GetByRole(ctx context.Context, roleID string) (*domain.Policy, error)
	Replace(ctx context.Context, policy domain.Policy) (*domain.Policy, error)
}
