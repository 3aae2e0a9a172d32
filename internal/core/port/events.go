package port

import (
	"context"

	"github.com/arklim/catalog-access/internal/core/domain"
)

// EventPublisher emits access-control change events for downstream consumers.
type EventPublisher interface {
	PublishRoleCreated(ctx context.Context, event domain.RoleCreatedEvent) error
	PublishRoleUpdated(ctx context.Context, event domain.RoleUpdatedEvent) error
	PublishPolicyUpdated(ctx context.Context, event domain.PolicyUpdatedEvent) error
}
