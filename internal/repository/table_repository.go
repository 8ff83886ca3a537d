package repository

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// TableRepo stores the dining tables of each location. Tables are
// deactivated rather than deleted so old reservations keep their rows.
type TableRepo struct {
	db dbtx
}

func NewTableRepo(db dbtx) *TableRepo { return &TableRepo{db: db} }

const tableColumns = "id, location_id, table_number, seats, zone, is_active, created_at, updated_at"

func scanTable(s interface{ Scan(...any) error }, t *model.Table) error {
	var zone string
	if err := s.Scan(&t.ID, &t.LocationID, &t.Number, &t.Seats, &zone, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	t.Zone = model.Zone(zone)
	return nil
}

// ListActive returns the bookable tables of a location ordered by number.
func (r *TableRepo) ListActive(ctx context.Context, locationID uint64) ([]model.Table, error) {
	return r.list(ctx, "WHERE location_id = ? AND is_active = 1", locationID)
}

// ListByLocation returns every table of a location, inactive ones included.
func (r *TableRepo) ListByLocation(ctx context.Context, locationID uint64) ([]model.Table, error) {
	return r.list(ctx, "WHERE location_id = ?", locationID)
}

func (r *TableRepo) list(ctx context.Context, where string, args ...any) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tableColumns+" FROM dining_tables "+where+" ORDER BY table_number", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Table
	for rows.Next() {
		var t model.Table
		if err := scanTable(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID returns one table or sql.ErrNoRows.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	var t model.Table
	row := r.db.QueryRowContext(ctx, "SELECT "+tableColumns+" FROM dining_tables WHERE id = ?", id)
	if err := scanTable(row, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts t. A reused table number yields ErrDuplicate and an
// unknown location ErrMissingParent.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO dining_tables (location_id, table_number, seats, zone, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		t.LocationID, t.Number, t.Seats, string(t.Zone), t.IsActive, now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// Update rewrites number, seats, zone and the active flag of t.
func (r *TableRepo) Update(ctx context.Context, t *model.Table) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"UPDATE dining_tables SET table_number = ?, seats = ?, zone = ?, is_active = ?, updated_at = ? WHERE id = ?",
		t.Number, t.Seats, string(t.Zone), t.IsActive, now, t.ID)
	if err != nil {
		return translate(err)
	}
	if err := requireRow(ctx, r.db, res, "dining_tables", t.ID); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// Deactivate takes a table out of allocation.
func (r *TableRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE dining_tables SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return err
	}
	return requireRow(ctx, r.db, res, "dining_tables", id)
}
