package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flockwatch/flockwatch/internal/platform/db"
	"github.com/flockwatch/flockwatch/internal/roles"
	"github.com/flockwatch/flockwatch/internal/scope"
)

// RepositoryPort exposes user persistence.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	ReplaceRoles(ctx context.Context, id int64, list []roles.Role) error
	UpdateScope(ctx context.Context, id int64, h scope.Hierarchy) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Repository is the pgx implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, is_active, state_id, region_id, district_id, group_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.StateID, &u.RegionID, &u.DistrictID, &u.GroupID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// List returns every user with roles attached, ordered by name.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []User
	index := make(map[int64]int)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		index[u.ID] = len(out)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := r.pool.Query(ctx, `SELECT user_id, role FROM user_roles ORDER BY user_id, position, role`)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var userID int64
		var label string
		if err := roleRows.Scan(&userID, &label); err != nil {
			return nil, err
		}
		i, ok := index[userID]
		if !ok {
			continue
		}
		if role, ok := roles.Parse(label); ok {
			out[i].Roles = append(out[i].Roles, role)
		}
	}
	return out, roleRows.Err()
}

// Get loads one user with roles.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY position, role`, id)
	if err != nil {
		return User{}, err
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return User{}, err
	}
	for _, label := range labels {
		if role, ok := roles.Parse(label); ok {
			u.Roles = append(u.Roles, role)
		}
	}
	return u, nil
}

// Create inserts the user and its roles in one transaction.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = scanUser(tx.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, is_active, state_id, region_id, district_id, group_id)
VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7) RETURNING `+userColumns,
			u.Email, u.Name, passwordHash, u.StateID, u.RegionID, u.DistrictID, u.GroupID))
		if err != nil {
			return err
		}
		return insertRoles(ctx, tx, created.ID, u.Roles)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	created.Roles = append([]roles.Role(nil), u.Roles...)
	return created, nil
}

// ReplaceRoles swaps the user's role list, keeping the given order.
func (r *Repository) ReplaceRoles(ctx context.Context, id int64, list []roles.Role) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		return insertRoles(ctx, tx, id, list)
	})
}

func insertRoles(ctx context.Context, tx pgx.Tx, userID int64, list []roles.Role) error {
	batch := &pgx.Batch{}
	for i, role := range list {
		batch.Queue(`INSERT INTO user_roles (user_id, role, position) VALUES ($1, $2, $3)`, userID, string(role), i)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// UpdateScope rewrites the user's scope ids.
func (r *Repository) UpdateScope(ctx context.Context, id int64, h scope.Hierarchy) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET state_id = $2, region_id = $3, district_id = $4, group_id = $5, updated_at = now() WHERE id = $1`,
		id, h.StateID, h.RegionID, h.DistrictID, h.GroupID)
	if err != nil {
		return fmt.Errorf("update user scope: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive toggles the active flag and drops sessions of deactivated users.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		if !active {
			_, err = tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, id)
		}
		return err
	})
}

var _ RepositoryPort = (*Repository)(nil)
