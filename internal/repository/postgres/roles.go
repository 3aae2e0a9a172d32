package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/catalog-access/internal/core/domain"
	"github.com/arklim/catalog-access/internal/core/port"
	"github.com/arklim/catalog-access/internal/repository"
)

// RoleRepository implements role persistence operations.
type RoleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(exec pgExecutor) *RoleRepository {
	return &RoleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	var policyID *string
	if role.Policy != nil {
		policyID = &role.Policy.ID
	}

	stmt, args, err := r.builder.Insert("catalog.roles").
		Columns("id", "name", "display_name", "description", "policy_id").
		Values(role.ID, role.Name, role.DisplayName, nullableText(role.Description), policyID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}

	return nil
}

// List retrieves all roles with their policy references, sorted by name.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	stmt, args, err := r.selectRoles().OrderBy("r.name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role

	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// GetByID retrieves a role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, squirrel.Eq{"r.id": id}, "by id")
}

// GetByName retrieves a role by its unique name. The lookup is
// case-insensitive to match the catalog's uniqueness rule.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(r.name) = LOWER(?)", name), "by name")
}

func (r *RoleRepository) getOne(ctx context.Context, pred any, label string) (*domain.Role, error) {
	stmt, args, err := r.selectRoles().Where(pred).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role %s sql: %w", label, err)
	}

	role, err := scanRole(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role %s: %w", label, err)
	}

	return role, nil
}

// Update modifies an existing role.
func (r *RoleRepository) Update(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Update("catalog.roles").
		Set("name", role.Name).
		Set("display_name", role.DisplayName).
		Set("description", nullableText(role.Description)).
		Where(squirrel.Eq{"id": role.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AssignToUsers assigns the role to the provided user IDs.
func (r *RoleRepository) AssignToUsers(ctx context.Context, roleID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	assignedAt := time.Now().UTC()
	query := r.builder.Insert("catalog.role_users").
		Columns("user_id", "role_id", "assigned_at")

	for _, userID := range userIDs {
		query = query.Values(userID, roleID, assignedAt)
	}

	stmt, args, err := query.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build assign role to users sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("assign role to users: %w", err)
	}

	return nil
}

// ListUsers returns references to the users holding the role.
func (r *RoleRepository) ListUsers(ctx context.Context, roleID string) ([]domain.EntityReference, error) {
	stmt, args, err := r.builder.Select("u.id", "u.name", "u.display_name").
		From("catalog.users u").
		Join("catalog.role_users ru ON ru.user_id = u.id").
		Where(squirrel.Eq{"ru.role_id": roleID}).
		OrderBy("u.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build role users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query role users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.EntityReference, 0)
	for rows.Next() {
		var (
			ref         domain.EntityReference
			displayName sql.NullString
		)
		if err := rows.Scan(&ref.ID, &ref.Name, &displayName); err != nil {
			return nil, fmt.Errorf("scan role user: %w", err)
		}
		ref.Type = "user"
		if displayName.Valid {
			ref.DisplayName = displayName.String
		}
		users = append(users, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role users: %w", err)
	}

	return users, nil
}

func (r *RoleRepository) selectRoles() squirrel.SelectBuilder {
	return r.builder.Select(
		"r.id",
		"r.name",
		"r.display_name",
		"r.description",
		"r.policy_id",
		"p.name",
	).
		From("catalog.roles r").
		LeftJoin("catalog.policies p ON p.id = r.policy_id")
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var (
		role        domain.Role
		description sql.NullString
		policyID    sql.NullString
		policyName  sql.NullString
	)

	if err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &description, &policyID, &policyName); err != nil {
		return nil, err
	}

	if description.Valid {
		role.Description = description.String
	}
	if policyID.Valid {
		role.Policy = &domain.EntityReference{
			ID:   policyID.String,
			Type: "policy",
			Name: policyName.String,
		}
	}

	return &role, nil
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

var _ port.RoleRepository = (*RoleRepository)(nil)
