package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
	"github.com/arklim/catalog-access/internal/repository"
)

var (
	// ErrPolicyNotFound indicates the requested policy does not exist.
	ErrPolicyNotFound = errors.New("policy not found")
	// ErrInvalidPolicy indicates the policy payload failed validation.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrInvalidRule indicates a rule inside the submitted policy failed validation.
	ErrInvalidRule = errors.New("invalid rule")
)

// FieldRules requests rule embedding on policy reads.
const FieldRules = "rules"

// PolicyService manages access-control policies. Every rule mutation goes
// through UpdatePolicy as a wholesale rule-list replacement.
type PolicyService struct {
	policies port.PolicyRepository
	cache    port.PolicyCache
	cacheTTL time.Duration
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewPolicyService constructs a PolicyService.
func NewPolicyService(policies port.PolicyRepository, events port.EventPublisher) *PolicyService {
	return &PolicyService{policies: policies, events: events, logger: zap.NewNop()}
}

// WithCache attaches a read-through policy cache.
func (s *PolicyService) WithCache(cache port.PolicyCache, ttl time.Duration) *PolicyService {
	if cache != nil && ttl > 0 {
		s.cache = cache
		s.cacheTTL = ttl
	}
	return s
}

// WithLogger attaches a logger to the service.
func (s *PolicyService) WithLogger(log *zap.Logger) *PolicyService {
	if log != nil {
		s.logger = log
	}
	return s
}

// GetPolicy returns a policy by id, serving from cache when possible.
func (s *PolicyService) GetPolicy(ctx context.Context, id string, fields []string) (*domain.Policy, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPolicy)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, trimmed)
		if err == nil {
			return shapePolicy(cached, fields), nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("policy cache read failed", zap.String("policy_id", trimmed), zap.Error(err))
		}
	}

	policy, err := s.policies.GetByID(ctx, trimmed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, *policy, s.cacheTTL); err != nil {
			s.logger.Warn("policy cache write failed", zap.String("policy_id", trimmed), zap.Error(err))
		}
	}

	return shapePolicy(policy, fields), nil
}

// UpdatePolicy replaces the policy's rule list wholesale and returns the
// stored result. The cache entry is dropped before the caller sees the
// response so a subsequent read cannot observe the superseded rules.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy domain.Policy) (*domain.Policy, error) {
	if strings.TrimSpace(policy.ID) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPolicy)
	}
	if strings.TrimSpace(policy.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPolicy)
	}
	if policy.PolicyType == "" {
		policy.PolicyType = domain.PolicyTypeAccessControl
	}

	for i, rule := range policy.Rules {
		if rule.Operation == "" {
			return nil, fmt.Errorf("%w: rule %d is missing an operation", ErrInvalidRule, i)
		}
		if !rule.Operation.IsValid() {
			return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidRule, rule.Operation)
		}
		if strings.TrimSpace(rule.Name) == "" {
			policy.Rules[i].Name = domain.RuleName(policy.Name, rule.Operation)
		}
	}

	stored, err := s.policies.Replace(ctx, policy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("replace policy: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, stored.ID); err != nil {
			s.logger.Warn("policy cache invalidation failed", zap.String("policy_id", stored.ID), zap.Error(err))
		}
	}

	event := domain.PolicyUpdatedEvent{
		EventID:    uuid.NewString(),
		PolicyID:   stored.ID,
		PolicyName: stored.Name,
		RuleCount:  len(stored.Rules),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.events.PublishPolicyUpdated(ctx, event); err != nil {
		s.logger.Warn("failed to publish policy updated event",
			zap.String("policy_id", stored.ID),
			zap.Error(err),
		)
	}

	return stored, nil
}

func shapePolicy(policy *domain.Policy, fields []string) *domain.Policy {
	shaped := *policy
	if !hasField(fields, FieldRules) {
		shaped.Rules = nil
	}
	return &shaped
}
