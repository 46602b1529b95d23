package attendance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort exposes attendance persistence.
type RepositoryPort interface {
	GetRecord(ctx context.Context, id int64) (Record, error)
	ListRecords(ctx context.Context, filter ListFilter) ([]Record, error)
	CreateRecord(ctx context.Context, rec Record) (Record, error)
	UpdateRecord(ctx context.Context, rec Record) (Record, error)
	DeleteRecord(ctx context.Context, id int64) error

	GetYouth(ctx context.Context, id int64) (YouthRecord, error)
	ListYouth(ctx context.Context, filter ListFilter) ([]YouthRecord, error)
	CreateYouth(ctx context.Context, rec YouthRecord) (YouthRecord, error)
	UpdateYouth(ctx context.Context, rec YouthRecord) (YouthRecord, error)
	DeleteYouth(ctx context.Context, id int64) error
}

// Repository is the pgx implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, state_id, region_id, district_id, group_id, old_group_id, service_type, service_date,
year, month, week, men, women, youth_boys, youth_girls, children_boys, children_girls, created_by, created_at, updated_at`

const youthColumns = `id, state_id, region_id, district_id, group_id, old_group_id, attendance_type,
year, month, week, member_boys, member_girls, visitor_boys, visitor_girls, created_by, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	var date pgtype.Date
	err := row.Scan(&r.ID, &r.StateID, &r.RegionID, &r.DistrictID, &r.GroupID, &r.OldGroupID,
		&r.ServiceType, &date, &r.Year, &r.Month, &r.Week,
		&r.Men, &r.Women, &r.YouthBoys, &r.YouthGirls, &r.ChildrenBoys, &r.ChildrenGirls,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	r.ServiceDate = date.Time
	return r, nil
}

func scanYouth(row pgx.Row) (YouthRecord, error) {
	var r YouthRecord
	err := row.Scan(&r.ID, &r.StateID, &r.RegionID, &r.DistrictID, &r.GroupID, &r.OldGroupID,
		&r.AttendanceType, &r.Year, &r.Month, &r.Week,
		&r.MemberBoys, &r.MemberGirls, &r.VisitorBoys, &r.VisitorGirls,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// where renders the filter as a WHERE clause with positional args.
func (f ListFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		clause += ` AND ` + col + ` = $` + strconv.Itoa(len(args))
	}
	if f.Year > 0 {
		add("year", f.Year)
	}
	if f.Month > 0 {
		add("month", f.Month)
	}
	if f.Week > 0 {
		add("week", f.Week)
	}
	if f.StateID > 0 {
		add("state_id", f.StateID)
	}
	if f.RegionID > 0 {
		add("region_id", f.RegionID)
	}
	if f.DistrictID > 0 {
		add("district_id", f.DistrictID)
	}
	if f.GroupID > 0 {
		add("group_id", f.GroupID)
	}
	return clause, args
}

// GetRecord loads one attendance record.
func (r *Repository) GetRecord(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

// ListRecords returns records ordered by date.
func (r *Repository) ListRecords(ctx context.Context, filter ListFilter) ([]Record, error) {
	where, args := filter.where()
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM attendance_records`+where+` ORDER BY service_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateRecord inserts a record.
func (r *Repository) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	created, err := scanRecord(r.pool.QueryRow(ctx, `INSERT INTO attendance_records
(state_id, region_id, district_id, group_id, old_group_id, service_type, service_date, year, month, week,
 men, women, youth_boys, youth_girls, children_boys, children_girls, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING `+recordColumns,
		rec.StateID, rec.RegionID, rec.DistrictID, rec.GroupID, rec.OldGroupID,
		rec.ServiceType, pgtype.Date{Time: rec.ServiceDate, Valid: true}, rec.Year, rec.Month, rec.Week,
		rec.Men, rec.Women, rec.YouthBoys, rec.YouthGirls, rec.ChildrenBoys, rec.ChildrenGirls, rec.CreatedBy))
	if err != nil {
		return Record{}, fmt.Errorf("create attendance: %w", err)
	}
	return created, nil
}

// UpdateRecord overwrites the mutable fields of a record.
func (r *Repository) UpdateRecord(ctx context.Context, rec Record) (Record, error) {
	updated, err := scanRecord(r.pool.QueryRow(ctx, `UPDATE attendance_records SET
state_id = $2, region_id = $3, district_id = $4, group_id = $5, old_group_id = $6, service_type = $7,
service_date = $8, year = $9, month = $10, week = $11, men = $12, women = $13, youth_boys = $14,
youth_girls = $15, children_boys = $16, children_girls = $17, updated_at = now()
WHERE id = $1 RETURNING `+recordColumns,
		rec.ID, rec.StateID, rec.RegionID, rec.DistrictID, rec.GroupID, rec.OldGroupID,
		rec.ServiceType, pgtype.Date{Time: rec.ServiceDate, Valid: true}, rec.Year, rec.Month, rec.Week,
		rec.Men, rec.Women, rec.YouthBoys, rec.YouthGirls, rec.ChildrenBoys, rec.ChildrenGirls))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("update attendance: %w", err)
	}
	return updated, nil
}

// DeleteRecord removes a record.
func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// GetYouth loads one youth record.
func (r *Repository) GetYouth(ctx context.Context, id int64) (YouthRecord, error) {
	rec, err := scanYouth(r.pool.QueryRow(ctx, `SELECT `+youthColumns+` FROM youth_attendance_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return YouthRecord{}, ErrRecordNotFound
	}
	return rec, err
}

// ListYouth returns youth records ordered by period.
func (r *Repository) ListYouth(ctx context.Context, filter ListFilter) ([]YouthRecord, error) {
	where, args := filter.where()
	rows, err := r.pool.Query(ctx, `SELECT `+youthColumns+` FROM youth_attendance_records`+where+` ORDER BY year, month, week, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list youth attendance: %w", err)
	}
	defer rows.Close()
	var out []YouthRecord
	for rows.Next() {
		rec, err := scanYouth(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateYouth inserts a youth record.
func (r *Repository) CreateYouth(ctx context.Context, rec YouthRecord) (YouthRecord, error) {
	created, err := scanYouth(r.pool.QueryRow(ctx, `INSERT INTO youth_attendance_records
(state_id, region_id, district_id, group_id, old_group_id, attendance_type, year, month, week,
 member_boys, member_girls, visitor_boys, visitor_girls, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING `+youthColumns,
		rec.StateID, rec.RegionID, rec.DistrictID, rec.GroupID, rec.OldGroupID,
		rec.AttendanceType, rec.Year, rec.Month, rec.Week,
		rec.MemberBoys, rec.MemberGirls, rec.VisitorBoys, rec.VisitorGirls, rec.CreatedBy))
	if err != nil {
		return YouthRecord{}, fmt.Errorf("create youth attendance: %w", err)
	}
	return created, nil
}

// UpdateYouth overwrites the mutable fields of a youth record.
func (r *Repository) UpdateYouth(ctx context.Context, rec YouthRecord) (YouthRecord, error) {
	updated, err := scanYouth(r.pool.QueryRow(ctx, `UPDATE youth_attendance_records SET
state_id = $2, region_id = $3, district_id = $4, group_id = $5, old_group_id = $6, attendance_type = $7,
year = $8, month = $9, week = $10, member_boys = $11, member_girls = $12, visitor_boys = $13,
visitor_girls = $14, updated_at = now()
WHERE id = $1 RETURNING `+youthColumns,
		rec.ID, rec.StateID, rec.RegionID, rec.DistrictID, rec.GroupID, rec.OldGroupID,
		rec.AttendanceType, rec.Year, rec.Month, rec.Week,
		rec.MemberBoys, rec.MemberGirls, rec.VisitorBoys, rec.VisitorGirls))
	if errors.Is(err, pgx.ErrNoRows) {
		return YouthRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return YouthRecord{}, fmt.Errorf("update youth attendance: %w", err)
	}
	return updated, nil
}

// DeleteYouth removes a youth record.
func (r *Repository) DeleteYouth(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM youth_attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete youth attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
