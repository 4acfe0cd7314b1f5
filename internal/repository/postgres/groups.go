package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/repository"
)

var groupColumns = []string{
	"id",
	"name",
	"admins",
	"members",
	"active",
	"created_at",
}

// GroupRepository implements port.GroupRepository using PostgreSQL. Admin and
// member subs live in bigint array columns.
type GroupRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewGroupRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewGroupRepository(exec pgExecutor) *GroupRepository {
	repo := &GroupRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a group row and returns the generated id.
func (r *GroupRepository) Create(ctx context.Context, group domain.Group) (int64, error) {
	createdAt := group.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("auth.groups").
		Columns("name", "admins", "members", "active", "created_at").
		Values(group.Name, group.AdminSubs, group.MemberSubs, group.Active, createdAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert group sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert group: %w", mapError(err))
	}

	return id, nil
}

// GetByID retrieves a group by identifier.
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	stmt, args, err := r.builder.Select(groupColumns...).
		From("auth.groups").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select group sql: %w", err)
	}

	var group domain.Group
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&group.ID,
		&group.Name,
		&group.AdminSubs,
		&group.MemberSubs,
		&group.Active,
		&group.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}

	return &group, nil
}

// Update replaces a group's mutable fields.
func (r *GroupRepository) Update(ctx context.Context, group domain.Group) error {
	stmt, args, err := r.builder.Update("auth.groups").
		Set("name", group.Name).
		Set("admins", group.AdminSubs).
		Set("members", group.MemberSubs).
		Set("active", group.Active).
		Where(squirrel.Eq{"id": group.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update group sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActiveIDsFor returns ids of active groups where sub is a member or an
// admin, ascending. Feeds the gids field of issued claims.
func (r *GroupRepository) ListActiveIDsFor(ctx context.Context, sub int64) ([]int64, error) {
	stmt := `
		SELECT id
		  FROM auth.groups
		 WHERE active
		   AND ($1 = ANY(admins) OR $1 = ANY(members))
		 ORDER BY id ASC
	`

	rows, err := r.exec.Query(ctx, stmt, sub)
	if err != nil {
		return nil, fmt.Errorf("query group ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group ids: %w", err)
	}

	return ids, nil
}

// ListFor returns every group where sub is a member or an admin, active or
// not, ascending by id.
func (r *GroupRepository) ListFor(ctx context.Context, sub int64) ([]domain.Group, error) {
	stmt := `
		SELECT id, name, admins, members, active, created_at
		  FROM auth.groups
		 WHERE $1 = ANY(admins) OR $1 = ANY(members)
		 ORDER BY id ASC
	`

	rows, err := r.exec.Query(ctx, stmt, sub)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		var group domain.Group
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.AdminSubs,
			&group.MemberSubs,
			&group.Active,
			&group.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

var _ port.GroupRepository = (*GroupRepository)(nil)
