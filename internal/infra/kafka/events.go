package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
	"github.com/arklim/catalog-access/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	EntityID  string           `json:"entity_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, entityID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		EntityID:  entityID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(entityID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishRoleCreated publishes catalog.role.created events.
func (p *EventPublisher) PublishRoleCreated(ctx context.Context, event domain.RoleCreatedEvent) error {
	payload := struct {
		RoleID      string         `json:"role_id"`
		RoleName    string         `json:"role_name"`
		DisplayName string         `json:"display_name"`
		PolicyID    string         `json:"policy_id"`
		CreatedAt   time.Time      `json:"created_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		RoleID:      event.RoleID,
		RoleName:    event.RoleName,
		DisplayName: event.DisplayName,
		PolicyID:    event.PolicyID,
		CreatedAt:   event.CreatedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "catalog.role.created", event.RoleID, event.CreatedAt, payload)
}

// PublishRoleUpdated publishes catalog.role.updated events.
func (p *EventPublisher) PublishRoleUpdated(ctx context.Context, event domain.RoleUpdatedEvent) error {
	payload := struct {
		RoleID        string         `json:"role_id"`
		RoleName      string         `json:"role_name"`
		UpdatedFields []string       `json:"updated_fields,omitempty"`
		UpdatedAt     time.Time      `json:"updated_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		RoleID:        event.RoleID,
		RoleName:      event.RoleName,
		UpdatedFields: event.UpdatedFields,
		UpdatedAt:     event.UpdatedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "catalog.role.updated", event.RoleID, event.UpdatedAt, payload)
}

// PublishPolicyUpdated publishes catalog.policy.updated events.
func (p *EventPublisher) PublishPolicyUpdated(ctx context.Context, event domain.PolicyUpdatedEvent) error {
	payload := struct {
		PolicyID   string         `json:"policy_id"`
		PolicyName string         `json:"policy_name"`
		RuleCount  int            `json:"rule_count"`
		UpdatedAt  time.Time      `json:"updated_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		PolicyID:   event.PolicyID,
		PolicyName: event.PolicyName,
		RuleCount:  event.RuleCount,
		UpdatedAt:  event.UpdatedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "catalog.policy.updated", event.PolicyID, event.UpdatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
