package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// ReservationRepo stores reservations, the tables they hold
// (reservation_tables) and their status trail
// (reservation_status_history). All timestamps are written in UTC.
type ReservationRepo struct {
	db dbtx
}

// NewReservationRepo returns a ReservationRepo over a pool or a transaction.
func NewReservationRepo(db dbtx) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, code, location_id, type, customer_name, customer_phone, customer_email,
	reservation_date, start_min, end_min, guests, status, notes, confirmed_by, confirmed_at,
	created_at, updated_at`

func scanReservation(s interface{ Scan(...any) error }) (model.Reservation, error) {
	var (
		r           model.Reservation
		typ, status string
		email       sql.NullString
		notes       sql.NullString
		confirmedBy sql.NullString
		confirmedAt sql.NullTime
		start, end  int
	)
	err := s.Scan(&r.ID, &r.Code, &r.LocationID, &typ, &r.Customer.Name, &r.Customer.Phone, &email,
		&r.Date, &start, &end, &r.Guests, &status, &notes, &confirmedBy, &confirmedAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.Type = model.ReservationType(typ)
	r.Status = model.ReservationStatus(status)
	r.Window = timeslot.Slot{Start: timeslot.Clock(start), End: timeslot.Clock(end)}
	r.Customer.Email = email.String
	r.Notes = notes.String
	if confirmedBy.Valid {
		by := confirmedBy.String
		r.ConfirmedBy = &by
	}
	if confirmedAt.Valid {
		at := confirmedAt.Time.UTC()
		r.ConfirmedAt = &at
	}
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FindOverlapping returns the location's reservations dated within
// [from, to] whose status is in statuses, with their table ids.
func (r *ReservationRepo) FindOverlapping(ctx context.Context, locationID uint64, from, to time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, 0, 3+len(statuses))
	args = append(args, locationID, from.Format(timeslot.DateLayout), to.Format(timeslot.DateLayout))
	for _, s := range statuses {
		args = append(args, string(s))
	}
	q := "SELECT " + reservationColumns + ` FROM reservations
		WHERE location_id = ? AND reservation_date BETWEEN ? AND ? AND status IN (` + placeholders(len(statuses)) + `)
		ORDER BY id`
	return r.query(ctx, q, args...)
}

// Insert stores res with its tables and history rows and fills the ids.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	return inTx(ctx, r.db, func(q dbtx) error {
		result, err := q.ExecContext(ctx, `INSERT INTO reservations
			(code, location_id, type, customer_name, customer_phone, customer_email,
			 reservation_date, start_min, end_min, guests, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.Code, res.LocationID, string(res.Type), res.Customer.Name, res.Customer.Phone, nullString(res.Customer.Email),
			res.Date.Format(timeslot.DateLayout), int(res.Window.Start), int(res.Window.End), res.Guests,
			string(res.Status), nullString(res.Notes), res.CreatedAt, res.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		res.ID = uint64(id)
		if err := insertTables(ctx, q, res.ID, res.TableIDs); err != nil {
			return err
		}
		for i := range res.History {
			res.History[i].ReservationID = res.ID
			if err := insertHistory(ctx, q, &res.History[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus applies patch, appends its history entry and returns the
// stored reservation.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, patch model.StatusPatch) (*model.Reservation, error) {
	var out *model.Reservation
	err := inTx(ctx, r.db, func(q dbtx) error {
		var confirmedBy sql.NullString
		var confirmedAt sql.NullTime
		if patch.ConfirmedBy != nil {
			confirmedBy = sql.NullString{String: *patch.ConfirmedBy, Valid: true}
		}
		if patch.ConfirmedAt != nil {
			confirmedAt = sql.NullTime{Time: *patch.ConfirmedAt, Valid: true}
		}
		res, err := q.ExecContext(ctx, `UPDATE reservations
			SET status = ?, confirmed_by = COALESCE(?, confirmed_by), confirmed_at = COALESCE(?, confirmed_at), updated_at = ?
			WHERE id = ?`,
			string(patch.Status), confirmedBy, confirmedAt, patch.Entry.ChangedAt, id)
		if err != nil {
			return err
		}
		if err := requireRow(ctx, q, res, "reservations", id); err != nil {
			return err
		}
		entry := patch.Entry
		entry.ReservationID = id
		if err := insertHistory(ctx, q, &entry); err != nil {
			return err
		}
		out, err = NewReservationRepo(q).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDetails rewrites the schedule, party size, notes and table
// assignment of res.
func (r *ReservationRepo) UpdateDetails(ctx context.Context, res *model.Reservation) error {
	return inTx(ctx, r.db, func(q dbtx) error {
		result, err := q.ExecContext(ctx, `UPDATE reservations
			SET reservation_date = ?, start_min = ?, end_min = ?, guests = ?, notes = ?, updated_at = ?
			WHERE id = ?`,
			res.Date.Format(timeslot.DateLayout), int(res.Window.Start), int(res.Window.End), res.Guests,
			nullString(res.Notes), res.UpdatedAt, res.ID)
		if err != nil {
			return err
		}
		if err := requireRow(ctx, q, result, "reservations", res.ID); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM reservation_tables WHERE reservation_id = ?", res.ID); err != nil {
			return err
		}
		return insertTables(ctx, q, res.ID, res.TableIDs)
	})
}

// GetByID loads one reservation with tables and full history, or
// sql.ErrNoRows.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	tables, err := r.tablesOf(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	res.TableIDs = tables[id]

	rows, err := r.db.QueryContext(ctx, `SELECT id, reservation_id, status, changed_by, changed_at, reason
		FROM reservation_status_history WHERE reservation_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			h      model.StatusHistoryEntry
			status string
		)
		if err := rows.Scan(&h.ID, &h.ReservationID, &status, &h.ChangedBy, &h.ChangedAt, &h.Reason); err != nil {
			return nil, err
		}
		h.Status = model.ReservationStatus(status)
		h.ChangedAt = h.ChangedAt.UTC()
		res.History = append(res.History, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns reservations matching f, latest date first. History is not
// loaded; use GetByID for the trail.
func (r *ReservationRepo) List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.LocationID != 0 {
		where = append(where, "location_id = ?")
		args = append(args, f.LocationID)
	}
	if f.Date != nil {
		where = append(where, "reservation_date = ?")
		args = append(args, f.Date.Format(timeslot.DateLayout))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := "SELECT " + reservationColumns + " FROM reservations"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY reservation_date DESC, start_min, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return r.query(ctx, q, args...)
}

// Delete removes a reservation; tables and history rows cascade.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, res)
	}
	err = rows.Err()
	rows.Close()
	if err != nil || len(out) == 0 {
		return out, err
	}

	ids := make([]uint64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	tables, err := r.tablesOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].TableIDs = tables[out[i].ID]
	}
	return out, nil
}

// tablesOf loads reservation_tables rows for ids in one query.
func (r *ReservationRepo) tablesOf(ctx context.Context, ids []uint64) (map[uint64][]uint64, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT reservation_id, table_id FROM reservation_tables WHERE reservation_id IN ("+placeholders(len(ids))+") ORDER BY reservation_id, table_id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]uint64, len(ids))
	for rows.Next() {
		var resID, tableID uint64
		if err := rows.Scan(&resID, &tableID); err != nil {
			return nil, err
		}
		out[resID] = append(out[resID], tableID)
	}
	return out, rows.Err()
}

func insertTables(ctx context.Context, q dbtx, reservationID uint64, tableIDs []uint64) error {
	if len(tableIDs) == 0 {
		return nil
	}
	query := "INSERT INTO reservation_tables (reservation_id, table_id) VALUES "
	args := make([]any, 0, len(tableIDs)*2)
	for i, id := range tableIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, reservationID, id)
	}
	_, err := q.ExecContext(ctx, query, args...)
	return translate(err)
}

func insertHistory(ctx context.Context, q dbtx, h *model.StatusHistoryEntry) error {
	res, err := q.ExecContext(ctx, `INSERT INTO reservation_status_history
		(reservation_id, status, changed_by, changed_at, reason) VALUES (?, ?, ?, ?, ?)`,
		h.ReservationID, string(h.Status), h.ChangedBy, h.ChangedAt, h.Reason)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}
