package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flockwatch/flockwatch/internal/platform/db"
)

// RepositoryPort exposes persistence operations for org units.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Unit, error)
	List(ctx context.Context, filter ListFilter) ([]Unit, error)
	Create(ctx context.Context, unit Unit) (Unit, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Unit, error)
	Delete(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int, error)
}

// Repository is the pgx implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const unitColumns = `id, level, code, name, COALESCE(parent_id, 0), state_id, region_id, district_id, group_id, created_at, updated_at`

func scanUnit(row pgx.Row) (Unit, error) {
	var u Unit
	var level string
	if err := row.Scan(&u.ID, &level, &u.Code, &u.Name, &u.ParentID,
		&u.StateID, &u.RegionID, &u.DistrictID, &u.GroupID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return Unit{}, err
	}
	u.Level = Level(level)
	return u, nil
}

// Get loads a unit by id.
func (r *Repository) Get(ctx context.Context, id int64) (Unit, error) {
	u, err := scanUnit(r.pool.QueryRow(ctx, `SELECT `+unitColumns+` FROM org_units WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Unit{}, ErrUnitNotFound
	}
	return u, err
}

// List returns units ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM org_units WHERE 1=1`
	args := []any{}
	if filter.Level != "" {
		args = append(args, string(filter.Level))
		query += ` AND level = $` + strconv.Itoa(len(args))
	}
	if filter.ParentID > 0 {
		args = append(args, filter.ParentID)
		query += ` AND parent_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// Create inserts the unit and stamps its own id into its level column.
func (r *Repository) Create(ctx context.Context, unit Unit) (Unit, error) {
	var created Unit
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		var parent any
		if unit.ParentID > 0 {
			parent = unit.ParentID
		}
		var id int64
		if err := tx.QueryRow(ctx, `INSERT INTO org_units (level, code, name, parent_id, state_id, region_id, district_id, group_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
			string(unit.Level), unit.Code, unit.Name, parent,
			unit.StateID, unit.RegionID, unit.DistrictID, unit.GroupID, now,
		).Scan(&id); err != nil {
			return err
		}
		if col := ownColumn(unit.Level); col != "" {
			if _, err := tx.Exec(ctx, `UPDATE org_units SET `+col+` = id WHERE id = $1`, id); err != nil {
				return err
			}
		}
		var err error
		created, err = scanUnit(tx.QueryRow(ctx, `SELECT `+unitColumns+` FROM org_units WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Unit{}, ErrDuplicateCode
		}
		return Unit{}, fmt.Errorf("create org unit: %w", err)
	}
	return created, nil
}

// Update changes code and name.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput) (Unit, error) {
	u, err := scanUnit(r.pool.QueryRow(ctx,
		`UPDATE org_units SET code = $2, name = $3, updated_at = now() WHERE id = $1 RETURNING `+unitColumns,
		id, in.Code, in.Name))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Unit{}, ErrUnitNotFound
	case db.IsUniqueViolation(err):
		return Unit{}, ErrDuplicateCode
	case err != nil:
		return Unit{}, fmt.Errorf("update org unit: %w", err)
	}
	return u, nil
}

// Delete removes a unit. Units still referenced by records cannot be removed.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM org_units WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrHasChildren
		}
		return fmt.Errorf("delete org unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

// CountChildren returns the number of direct children.
func (r *Repository) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM org_units WHERE parent_id = $1`, id).Scan(&n)
	return n, err
}

func ownColumn(level Level) string {
	switch level {
	case LevelState:
		return "state_id"
	case LevelRegion:
		return "region_id"
	case LevelDistrict:
		return "district_id"
	case LevelGroup:
		return "group_id"
	default:
		return ""
	}
}

var _ RepositoryPort = (*Repository)(nil)
