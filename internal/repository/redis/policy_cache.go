package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
	"github.com/arklim/catalog-access/internal/repository"
)

const defaultPolicyCachePrefix = "catalog:policy"

// PolicyCache caches policies by id so repeated role switches in the admin
// console do not hit Postgres every time.
type PolicyCache struct {
	client *red.Client
	prefix string
}

// NewPolicyCache constructs a policy cache helper.
func NewPolicyCache(client *red.Client, keyPrefix string) *PolicyCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPolicyCachePrefix
	}

	return &PolicyCache{client: client, prefix: prefix}
}

// Get fetches the cached policy, returning ErrNotFound on cache miss.
func (c *PolicyCache) Get(ctx context.Context, policyID string) (*domain.Policy, error) {
	key := c.key(policyID)
	if key == "" {
		return nil, fmt.Errorf("policy id is required")
	}

	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get policy: %w", err)
	}

	var policy domain.Policy
	if err := json.Unmarshal(value, &policy); err != nil {
		return nil, fmt.Errorf("unmarshal cached policy: %w", err)
	}

	return &policy, nil
}

// Set stores the policy with the provided TTL.
func (c *PolicyCache) Set(ctx context.Context, policy domain.Policy, ttl time.Duration) error {
	key := c.key(policy.ID)
	if key == "" {
		return fmt.Errorf("policy id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	encoded, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	if err := c.client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("redis set policy: %w", err)
	}
	return nil
}

// Delete removes the cached policy entry. Called after every wholesale
// rule-list replacement so reads never serve a superseded policy.
func (c *PolicyCache) Delete(ctx context.Context, policyID string) error {
	key := c.key(policyID)
	if key == "" {
		return fmt.Errorf("policy id is required")
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete policy: %w", err)
	}
	return nil
}

func (c *PolicyCache) key(policyID string) string {
	trimmed := strings.TrimSpace(policyID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}

var _ port.PolicyCache = (*PolicyCache)(nil)
