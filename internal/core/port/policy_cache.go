package port

import (
	"context"
	"time"

	"github.com/arklim/catalog-access/internal/core/domain"
)

// PolicyCache caches policies by id for low-latency reads. Get returns
// repository.ErrNotFound semantics via the implementation's sentinel on miss.
type PolicyCache interface {
	Get(ctx context.Context, policyID string) (*domain.Policy, error)
	Set(ctx context.Context, policy domain.Policy, ttl time.Duration) error
	Delete(ctx context.Context, policyID string) error
}
