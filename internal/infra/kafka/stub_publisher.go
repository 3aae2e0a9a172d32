package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, entityID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("entity_id", entityID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishRoleCreated logs catalog.role.created events.
func (p *StubPublisher) PublishRoleCreated(_ context.Context, event domain.RoleCreatedEvent) error {
	payload := map[string]any{
		"role_id":      event.RoleID,
		"role_name":    event.RoleName,
		"display_name": event.DisplayName,
		"policy_id":    event.PolicyID,
		"created_at":   event.CreatedAt,
	}
	p.logEvent("catalog.role.created", event.RoleID, event.CreatedAt, payload)
	return nil
}

// PublishRoleUpdated logs catalog.role.updated events.
func (p *StubPublisher) PublishRoleUpdated(_ context.Context, event domain.RoleUpdatedEvent) error {
	payload := map[string]any{
		"role_id":        event.RoleID,
		"role_name":      event.RoleName,
		"updated_fields": event.UpdatedFields,
		"updated_at":     event.UpdatedAt,
	}
	p.logEvent("catalog.role.updated", event.RoleID, event.UpdatedAt, payload)
	return nil
}

// PublishPolicyUpdated logs catalog.policy.updated events.
func (p *StubPublisher) PublishPolicyUpdated(_ context.Context, event domain.PolicyUpdatedEvent) error {
	payload := map[string]any{
		"policy_id":   event.PolicyID,
		"policy_name": event.PolicyName,
		"rule_count":  event.RuleCount,
		"updated_at":  event.UpdatedAt,
	}
	p.logEvent("catalog.policy.updated", event.PolicyID, event.UpdatedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
