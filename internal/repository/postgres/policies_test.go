package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/repository"
)

func TestPolicyRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPolicyRepository(mock)

	rules := []domain.Rule{
		{
			Name:         "DataSteward-policy-UpdateDescription",
			Operation:    domain.OperationUpdateDescription,
			Allow:        true,
			Enabled:      true,
			UserRoleAttr: "DataSteward",
		},
	}
	encoded, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal rules: %v", err)
	}

	rows := pgxmock.NewRows([]string{"id", "name", "policy_type", "rules"}).
		AddRow("policy-1", "DataSteward-policy", "AccessControl", encoded)

	mock.ExpectQuery(`SELECT id, name, policy_type, rules FROM catalog\.policies`).
		WithArgs("policy-1").
		WillReturnRows(rows)

	policy, err := repo.GetByID(context.Background(), "policy-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if policy.PolicyType != domain.PolicyTypeAccessControl {
		t.Fatalf("expected AccessControl policy type, got %s", policy.PolicyType)
	}
	if len(policy.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(policy.Rules))
	}
	if policy.Rules[0].Operation != domain.OperationUpdateDescription {
		t.Fatalf("unexpected rule operation %s", policy.Rules[0].Operation)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPolicyRepository_GetByIDEmptyRules(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPolicyRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "name", "policy_type", "rules"}).
		AddRow("policy-2", "Viewer-policy", "AccessControl", []byte("[]"))

	mock.ExpectQuery(`SELECT id, name, policy_type, rules FROM catalog\.policies`).
		WithArgs("policy-2").
		WillReturnRows(rows)

	policy, err := repo.GetByID(context.Background(), "policy-2")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if policy.Rules == nil {
		t.Fatalf("expected empty rule slice, got nil")
	}
	if len(policy.Rules) != 0 {
		t.Fatalf("expected 0 rules, got %d", len(policy.Rules))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPolicyRepository_ReplaceNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPolicyRepository(mock)

	policy := domain.Policy{
		ID:         "policy-404",
		Name:       "Ghost-policy",
		PolicyType: domain.PolicyTypeAccessControl,
	}

	mock.ExpectExec(`UPDATE catalog\.policies`).
		WithArgs(policy.Name, "AccessControl", []byte("[]"), policy.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if _, err := repo.Replace(context.Background(), policy); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPolicyRepository_ReplaceReturnsStoredPolicy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPolicyRepository(mock)

	rules := []domain.Rule{
		{
			Name:      "DataSteward-policy-UpdateTags",
			Operation: domain.OperationUpdateTags,
			Allow:     true,
			Enabled:   false,
		},
	}
	encoded, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal rules: %v", err)
	}

	policy := domain.Policy{
		ID:         "policy-1",
		Name:       "DataSteward-policy",
		PolicyType: domain.PolicyTypeAccessControl,
		Rules:      rules,
	}

	mock.ExpectExec(`UPDATE catalog\.policies`).
		WithArgs(policy.Name, "AccessControl", encoded, policy.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectQuery(`SELECT id, name, policy_type, rules FROM catalog\.policies`).
		WithArgs(policy.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "policy_type", "rules"}).
			AddRow(policy.ID, policy.Name, "AccessControl", encoded))

	stored, err := repo.Replace(context.Background(), policy)
	if err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	if len(stored.Rules) != 1 || stored.Rules[0].Enabled {
		t.Fatalf("expected stored disabled rule, got %+v", stored.Rules)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
