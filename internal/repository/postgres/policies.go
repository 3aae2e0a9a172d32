package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
	"github.com/arklim/catalog-access/internal/repository"
)

// PolicyRepository implements policy persistence. Rules live in a JSONB
// column so the wholesale replacement contract maps to a single UPDATE.
type PolicyRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPolicyRepository constructs a PostgreSQL-backed policy repository.
func NewPolicyRepository(exec pgExecutor) *PolicyRepository {
	return &PolicyRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new policy.
func (r *PolicyRepository) Create(ctx context.Context, policy domain.Policy) error {
	rules, err := marshalRules(policy.Rules)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("catalog.policies").
		Columns("id", "name", "policy_type", "rules").
		Values(policy.ID, policy.Name, string(policy.PolicyType), rules).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert policy sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}

	return nil
}

// GetByID retrieves a policy by its ID.
func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	stmt, args, err := r.builder.Select("id", "name", "policy_type", "rules").
		From("catalog.policies").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select policy by id sql: %w", err)
	}

	return r.scanPolicy(r.exec.QueryRow(ctx, stmt, args...), "by id")
}

// GetByRole retrieves the policy owned by the given role.
func (r *PolicyRepository) GetByRole(ctx context.Context, roleID string) (*domain.Policy, error) {
	stmt, args, err := r.builder.Select("p.id", "p.name", "p.policy_type", "p.rules").
		From("catalog.policies p").
		Join("catalog.roles r ON r.policy_id = p.id").
		Where(squirrel.Eq{"r.id": roleID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select policy by role sql: %w", err)
	}

	return r.scanPolicy(r.exec.QueryRow(ctx, stmt, args...), "by role")
}

// Replace overwrites the policy's rule list and returns the stored policy.
func (r *PolicyRepository) Replace(ctx context.Context, policy domain.Policy) (*domain.Policy, error) {
	rules, err := marshalRules(policy.Rules)
	if err != nil {
		return nil, err
	}

	stmt, args, err := r.builder.Update("catalog.policies").
		Set("name", policy.Name).
		Set("policy_type", string(policy.PolicyType)).
		Set("rules", rules).
		Where(squirrel.Eq{"id": policy.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build replace policy sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("replace policy: %w", err)
	}

	if res.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, policy.ID)
}

func (r *PolicyRepository) scanPolicy(row pgx.Row, label string) (*domain.Policy, error) {
	var (
		policy     domain.Policy
		policyType string
		rules      []byte
	)

	if err := row.Scan(&policy.ID, &policy.Name, &policyType, &rules); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan policy %s: %w", label, err)
	}

	policy.PolicyType = domain.PolicyType(policyType)

	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &policy.Rules); err != nil {
			return nil, fmt.Errorf("unmarshal policy rules: %w", err)
		}
	}
	if policy.Rules == nil {
		policy.Rules = []domain.Rule{}
	}

	return &policy, nil
}

func marshalRules(rules []domain.Rule) ([]byte, error) {
	if rules == nil {
		rules = []domain.Rule{}
	}
	bytes, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("marshal policy rules: %w", err)
	}
	return bytes, nil
}

var _ port.PolicyRepository = (*PolicyRepository)(nil)
