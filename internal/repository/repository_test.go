package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

var (
	day     = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	stamped = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func reservationRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "location_id", "type", "customer_name", "customer_phone", "customer_email",
		"reservation_date", "start_min", "end_min", "guests", "status", "notes", "confirmed_by", "confirmed_at",
		"created_at", "updated_at"})
}

func TestWithinDayLocksAndCommits(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO booking_day_locks (location_id, lock_date)")).
		WithArgs(uint64(4), "2025-03-14").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM booking_day_locks WHERE location_id = ? AND lock_date = ? FOR UPDATE")).
		WithArgs(uint64(4), "2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"location_id"}).AddRow(4))
	mock.ExpectCommit()

	called := false
	err := store.WithinDay(context.Background(), 4, day.Add(20*time.Hour), func(ctx context.Context, repos service.Repositories) error {
		called = true
		assert.NotNil(t, repos.Reservations)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDayRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO booking_day_locks")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"location_id"}).AddRow(1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinDay(context.Background(), 1, day, func(context.Context, service.Repositories) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlappingLoadsTables(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectQuery(q("FROM reservations")+".*"+q("status IN (?,?,?)")).
		WithArgs(uint64(1), "2025-03-14", "2025-03-14", "pending", "confirmed", "completed").
		WillReturnRows(reservationRow().
			AddRow(7, "c-7", 1, "table", "Ada", "555", nil, day, 1080, 1200, 5, "pending", nil, nil, nil, stamped, stamped).
			AddRow(9, "c-9", 1, "full_venue", "Bo", "556", "bo@example.com", day, 720, 1380, 40, "confirmed", "birthday", "user:2", stamped, stamped, stamped))
	mock.ExpectQuery(q("FROM reservation_tables WHERE reservation_id IN (?,?)")).
		WithArgs(uint64(7), uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id", "table_id"}).AddRow(7, 2).AddRow(7, 3))

	from, to := timeslot.DayBounds(day)
	got, err := repo.FindOverlapping(context.Background(), 1, from, to,
		[]model.ReservationStatus{model.StatusPending, model.StatusConfirmed, model.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []uint64{2, 3}, got[0].TableIDs)
	assert.Equal(t, "18:00-20:00", got[0].Window.String())
	assert.Empty(t, got[0].Customer.Email)
	assert.Nil(t, got[0].ConfirmedBy)

	assert.Equal(t, model.TypeFullVenue, got[1].Type)
	assert.Empty(t, got[1].TableIDs)
	require.NotNil(t, got[1].ConfirmedBy)
	assert.Equal(t, "user:2", *got[1].ConfirmedBy)
	assert.Equal(t, "birthday", got[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlappingWithoutStatusesSkipsQuery(t *testing.T) {
	db, mock := newMock(t)
	got, err := NewReservationRepo(db).FindOverlapping(context.Background(), 1, day, day, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWritesTablesAndHistory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(q("INSERT INTO reservation_tables (reservation_id, table_id) VALUES (?, ?),(?, ?)")).
		WithArgs(uint64(12), uint64(2), uint64(12), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO reservation_status_history")).
		WithArgs(uint64(12), "pending", "customer", stamped, "reservation created").
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectCommit()

	r := &model.Reservation{
		Code:       "c-12",
		LocationID: 1,
		Type:       model.TypeTable,
		TableIDs:   []uint64{2, 3},
		Customer:   model.Customer{Name: "Ada", Phone: "555"},
		Date:       day,
		Window:     timeslot.Slot{Start: timeslot.MustClock("18:30"), End: timeslot.MustClock("20:30")},
		Guests:     5,
		Status:     model.StatusPending,
		History: []model.StatusHistoryEntry{{
			Status: model.StatusPending, ChangedBy: "customer", ChangedAt: stamped, Reason: "reservation created",
		}},
		CreatedAt: stamped,
		UpdatedAt: stamped,
	}
	require.NoError(t, repo.Insert(context.Background(), r))
	assert.Equal(t, uint64(12), r.ID)
	assert.Equal(t, uint64(12), r.History[0].ReservationID)
	assert.Equal(t, uint64(30), r.History[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusOfMissingReservation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE reservations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM reservations WHERE id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), 5, model.StatusPatch{
		Status: model.StatusCancelled,
		Entry:  model.StatusHistoryEntry{Status: model.StatusCancelled, ChangedAt: stamped},
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingReservation(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("DELETE FROM reservations WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewReservationRepo(db).Delete(context.Background(), 3)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE location_id = ? AND reservation_date = ? AND status = ? ORDER BY reservation_date DESC, start_min, id LIMIT ?")).
		WithArgs(uint64(2), "2025-03-14", "confirmed", 10).
		WillReturnRows(reservationRow())

	got, err := NewReservationRepo(db).List(context.Background(), model.ReservationFilter{
		LocationID: 2, Date: &day, Status: model.StatusConfirmed, Limit: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationGetByIDWithHours(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM locations WHERE id = ?")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "phone", "is_active", "created_at", "updated_at"}).
			AddRow(1, "Harbor", "1 Quay", "", true, stamped, stamped))
	mock.ExpectQuery(q("FROM location_hours WHERE location_id = ?")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "weekday", "open_time", "close_time"}).
			AddRow(1, 5, "12:00", "23:00"))

	loc, err := NewLocationRepo(db).GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Harbor", loc.Name)
	hours, open := loc.HoursOn(day)
	require.True(t, open)
	assert.Equal(t, "12:00-23:00", hours.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableCreateDuplicateNumber(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO dining_tables")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewTableRepo(db).Create(context.Background(), &model.Table{LocationID: 1, Number: 1, Seats: 4, Zone: model.ZoneBar})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableDeactivateUnchangedRowStillExists(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("UPDATE dining_tables SET is_active = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM dining_tables WHERE id = ?")).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	assert.NoError(t, NewTableRepo(db).Deactivate(context.Background(), 8))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("staff@example.com", sqlmock.AnyArg(), model.RoleStaff).
		WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := NewUserRepo(db).Create(context.Background(), " Staff@Example.com ", "secret", model.RoleStaff, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenValidateRejectsRevokedAndExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	repo.now = func() time.Time { return stamped }
	cols := []string{"user_id", "expires_at", "revoked_at", "is_active"}

	mock.ExpectQuery(q("FROM refresh_tokens t JOIN users u")).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, stamped.Add(time.Hour), nil, true))
	mock.ExpectQuery(q("FROM refresh_tokens t JOIN users u")).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, stamped.Add(time.Hour), stamped, true))
	mock.ExpectQuery(q("FROM refresh_tokens t JOIN users u")).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, stamped.Add(-time.Hour), nil, true))

	id, err := repo.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	_, err = repo.ValidateRefresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = repo.ValidateRefresh(context.Background(), "expired")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRotateAlreadyRevoked(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked_at = ?")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewTokenRepo(db).Rotate(context.Background(), 3, "old", "new", stamped)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationCreateTooLong(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO locations")).
		WillReturnError(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'name'"})
	mock.ExpectRollback()

	err := NewLocationRepo(db).Create(context.Background(), &model.Location{Name: "x", IsActive: true})
	assert.ErrorIs(t, err, ErrTooLong)
	assert.NoError(t, mock.ExpectationsWereMet())
}
