package repository

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// LocationRepo reads and writes locations together with their weekly
// opening hours.
type LocationRepo struct {
	db dbtx
}

// NewLocationRepo returns a LocationRepo over a pool or a transaction.
func NewLocationRepo(db dbtx) *LocationRepo { return &LocationRepo{db: db} }

const locationColumns = "id, name, address, phone, is_active, created_at, updated_at"

// GetByID returns the location with its hours or sql.ErrNoRows.
func (r *LocationRepo) GetByID(ctx context.Context, id uint64) (*model.Location, error) {
	var l model.Location
	err := r.db.QueryRowContext(ctx,
		"SELECT "+locationColumns+" FROM locations WHERE id = ?", id).
		Scan(&l.ID, &l.Name, &l.Address, &l.Phone, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	hours, err := r.hours(ctx, "WHERE location_id = ?", id)
	if err != nil {
		return nil, err
	}
	l.Hours = hours[id]
	return &l, nil
}

// List returns locations ordered by id. Inactive ones are skipped unless
// includeInactive is set.
func (r *LocationRepo) List(ctx context.Context, includeInactive bool) ([]model.Location, error) {
	q := "SELECT " + locationColumns + " FROM locations"
	if !includeInactive {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Phone, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	hours, err := r.hours(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Hours = hours[out[i].ID]
	}
	return out, nil
}

// Create inserts l and its hours, filling ID and timestamps.
func (r *LocationRepo) Create(ctx context.Context, l *model.Location) error {
	now := time.Now().UTC().Truncate(time.Second)
	return inTx(ctx, r.db, func(q dbtx) error {
		res, err := q.ExecContext(ctx,
			"INSERT INTO locations (name, address, phone, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			l.Name, l.Address, l.Phone, l.IsActive, now, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		l.ID = uint64(id)
		l.CreatedAt, l.UpdatedAt = now, now
		return insertHours(ctx, q, l.ID, l.Hours)
	})
}

// Update rewrites the descriptive fields and the active flag.
func (r *LocationRepo) Update(ctx context.Context, l *model.Location) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"UPDATE locations SET name = ?, address = ?, phone = ?, is_active = ?, updated_at = ? WHERE id = ?",
		l.Name, l.Address, l.Phone, l.IsActive, now, l.ID)
	if err != nil {
		return err
	}
	if err := requireRow(ctx, r.db, res, "locations", l.ID); err != nil {
		return err
	}
	l.UpdatedAt = now
	return nil
}

// SetHours replaces the weekly hours of a location.
func (r *LocationRepo) SetHours(ctx context.Context, locationID uint64, hours []model.OpeningHours) error {
	return inTx(ctx, r.db, func(q dbtx) error {
		var id uint64
		if err := q.QueryRowContext(ctx, "SELECT id FROM locations WHERE id = ? FOR UPDATE", locationID).Scan(&id); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM location_hours WHERE location_id = ?", locationID); err != nil {
			return err
		}
		return insertHours(ctx, q, locationID, hours)
	})
}

func insertHours(ctx context.Context, q dbtx, locationID uint64, hours []model.OpeningHours) error {
	if len(hours) == 0 {
		return nil
	}
	query := "INSERT INTO location_hours (location_id, weekday, open_time, close_time) VALUES "
	args := make([]any, 0, len(hours)*4)
	for i, h := range hours {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, locationID, int(h.Weekday), h.Open, h.Close)
	}
	_, err := q.ExecContext(ctx, query, args...)
	return translate(err)
}

// hours loads location_hours rows grouped by location id.
func (r *LocationRepo) hours(ctx context.Context, where string, args ...any) (map[uint64][]model.OpeningHours, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT location_id, weekday, open_time, close_time FROM location_hours "+where+" ORDER BY location_id, weekday", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]model.OpeningHours)
	for rows.Next() {
		var (
			id uint64
			wd int
			h  model.OpeningHours
		)
		if err := rows.Scan(&id, &wd, &h.Open, &h.Close); err != nil {
			return nil, err
		}
		h.Weekday = time.Weekday(wd)
		out[id] = append(out[id], h)
	}
	return out, rows.Err()
}
