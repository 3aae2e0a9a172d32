package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/repository"
)

type policyCacheMock struct {
	entries    map[string]domain.Policy
	getErr     error
	setCalls   int
	delCalls   int
	lastSetTTL time.Duration
}

func (m *policyCacheMock) Get(_ context.Context, policyID string) (*domain.Policy, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if policy, ok := m.entries[policyID]; ok {
		copied := policy
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *policyCacheMock) Set(_ context.Context, policy domain.Policy, ttl time.Duration) error {
	m.setCalls++
	m.lastSetTTL = ttl
	if m.entries == nil {
		m.entries = make(map[string]domain.Policy)
	}
	m.entries[policy.ID] = policy
	return nil
}

func (m *policyCacheMock) Delete(_ context.Context, policyID string) error {
	m.delCalls++
	delete(m.entries, policyID)
	return nil
}

func storedPolicy() domain.Policy {
	return domain.Policy{
		ID:         "policy-1",
		Name:       "steward-policy",
		PolicyType: domain.PolicyTypeAccessControl,
		Rules: []domain.Rule{
			{
				Name:         "steward-policy-UpdateDescription",
				Operation:    domain.OperationUpdateDescription,
				Allow:        true,
				Enabled:      true,
				UserRoleAttr: "steward",
			},
		},
	}
}

func TestPolicyService_GetPolicyCacheHit(t *testing.T) {
	policies := &policyRepoMock{}
	cache := &policyCacheMock{entries: map[string]domain.Policy{"policy-1": storedPolicy()}}
	svc := NewPolicyService(policies, &eventsMock{}).WithCache(cache, time.Minute)

	policy, err := svc.GetPolicy(context.Background(), "policy-1", []string{FieldRules})
	if err != nil {
		t.Fatalf("GetPolicy returned error: %v", err)
	}

	if policies.getByIDCnt != 0 {
		t.Fatalf("expected repository to be skipped on cache hit, got %d reads", policies.getByIDCnt)
	}
	if len(policy.Rules) != 1 {
		t.Fatalf("expected cached rules, got %+v", policy.Rules)
	}
}

func TestPolicyService_GetPolicyCacheMissFillsCache(t *testing.T) {
	policies := &policyRepoMock{policies: map[string]domain.Policy{"policy-1": storedPolicy()}}
	cache := &policyCacheMock{}
	svc := NewPolicyService(policies, &eventsMock{}).WithCache(cache, 5*time.Minute)

	if _, err := svc.GetPolicy(context.Background(), "policy-1", []string{FieldRules}); err != nil {
		t.Fatalf("GetPolicy returned error: %v", err)
	}

	if policies.getByIDCnt != 1 {
		t.Fatalf("expected one repository read, got %d", policies.getByIDCnt)
	}
	if cache.setCalls != 1 {
		t.Fatalf("expected cache fill, got %d sets", cache.setCalls)
	}
	if cache.lastSetTTL != 5*time.Minute {
		t.Fatalf("expected configured ttl, got %v", cache.lastSetTTL)
	}
}

func TestPolicyService_GetPolicyFieldShaping(t *testing.T) {
	policies := &policyRepoMock{policies: map[string]domain.Policy{"policy-1": storedPolicy()}}
	svc := NewPolicyService(policies, &eventsMock{})

	bare, err := svc.GetPolicy(context.Background(), "policy-1", nil)
	if err != nil {
		t.Fatalf("GetPolicy returned error: %v", err)
	}
	if bare.Rules != nil {
		t.Fatalf("expected rules to be omitted without the rules field, got %+v", bare.Rules)
	}
}

func TestPolicyService_GetPolicyNotFound(t *testing.T) {
	svc := NewPolicyService(&policyRepoMock{}, &eventsMock{})

	if _, err := svc.GetPolicy(context.Background(), "missing", nil); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}

func TestPolicyService_UpdatePolicyValidatesRules(t *testing.T) {
	policies := &policyRepoMock{policies: map[string]domain.Policy{"policy-1": storedPolicy()}}
	svc := NewPolicyService(policies, &eventsMock{})

	policy := storedPolicy()
	policy.Rules = append(policy.Rules, domain.Rule{Name: "steward-policy-x"})

	if _, err := svc.UpdatePolicy(context.Background(), policy); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for missing operation, got %v", err)
	}
	if policies.replaceCnt != 0 {
		t.Fatalf("expected no replace call, got %d", policies.replaceCnt)
	}

	policy = storedPolicy()
	policy.Rules[0].Operation = "MakeCoffee"
	if _, err := svc.UpdatePolicy(context.Background(), policy); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for unknown operation, got %v", err)
	}
}

func TestPolicyService_UpdatePolicyReplacesAndInvalidates(t *testing.T) {
	policies := &policyRepoMock{policies: map[string]domain.Policy{"policy-1": storedPolicy()}}
	cache := &policyCacheMock{entries: map[string]domain.Policy{"policy-1": storedPolicy()}}
	events := &eventsMock{}
	svc := NewPolicyService(policies, events).WithCache(cache, time.Minute)

	updated := storedPolicy()
	updated.Rules = append(updated.Rules, domain.Rule{
		Operation: domain.OperationUpdateTags,
		Allow:     true,
		Enabled:   true,
	})

	stored, err := svc.UpdatePolicy(context.Background(), updated)
	if err != nil {
		t.Fatalf("UpdatePolicy returned error: %v", err)
	}

	if len(stored.Rules) != 2 {
		t.Fatalf("expected 2 rules after replacement, got %d", len(stored.Rules))
	}
	if stored.Rules[1].Name != "steward-policy-UpdateTags" {
		t.Fatalf("expected derived rule name, got %q", stored.Rules[1].Name)
	}
	if cache.delCalls != 1 {
		t.Fatalf("expected cache invalidation, got %d deletes", cache.delCalls)
	}
	if len(events.policyUpdated) != 1 {
		t.Fatalf("expected one policy updated event, got %d", len(events.policyUpdated))
	}
	if events.policyUpdated[0].RuleCount != 2 {
		t.Fatalf("expected rule count 2 in event, got %d", events.policyUpdated[0].RuleCount)
	}
}

func TestPolicyService_UpdatePolicyNotFound(t *testing.T) {
	svc := NewPolicyService(&policyRepoMock{}, &eventsMock{})

	policy := storedPolicy()
	if _, err := svc.UpdatePolicy(context.Background(), policy); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}
