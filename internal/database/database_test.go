package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{User: "app", Pass: "p@ss:w", Host: "db", Port: "3306", Name: "reservations"})

	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", mc.User)
	assert.Equal(t, "p@ss:w", mc.Passwd)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "reservations", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, time.UTC, mc.Loc)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestStatements(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 9)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range Statements() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS refresh_tokens").WillReturnError(errors.New("denied"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

const sampleSeed = `
locations:
  - name: Harbor
    address: 1 Quay Street
    hours:
      - days: [mon, tue, wed, thu]
        open: "12:00"
        close: "22:00"
      - days: [Friday, saturday]
        open: "12:00"
        close: "23:30"
    tables:
      - {number: 1, seats: 6, zone: main_hall}
      - {number: 2, seats: 4, zone: Garden}
      - {number: 3, seats: 2}
users:
  - email: admin@example.com
    password: change-me
    role: admin
`

func TestParseSeed(t *testing.T) {
	f, err := ParseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)
	require.Len(t, f.Locations, 1)
	require.Len(t, f.Users, 1)

	hours, err := f.Locations[0].openingHours()
	require.NoError(t, err)
	require.Len(t, hours, 6)
	assert.Equal(t, model.OpeningHours{Weekday: time.Friday, Open: "12:00", Close: "23:30"}, hours[4])
}

func TestParseSeedRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "locations:\n  - name: A\n    seats: 3\n",
		"missing name":   "locations:\n  - address: x\n",
		"bad weekday":    "locations:\n  - name: A\n    hours:\n      - {days: [funday], open: \"12:00\", close: \"13:00\"}\n",
		"twice a day":    "locations:\n  - name: A\n    hours:\n      - {days: [mon], open: \"12:00\", close: \"13:00\"}\n      - {days: [mon], open: \"18:00\", close: \"20:00\"}\n",
		"inverted hours": "locations:\n  - name: A\n    hours:\n      - {days: [mon], open: \"23:00\", close: \"12:00\"}\n",
		"dup table":      "locations:\n  - name: A\n    tables:\n      - {number: 1, seats: 2}\n      - {number: 1, seats: 4}\n",
		"bad zone":       "locations:\n  - name: A\n    tables:\n      - {number: 1, seats: 2, zone: roof}\n",
		"customer role":  "users:\n  - {email: a@b.c, password: x, role: CUSTOMER}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSeedEmptyDocument(t *testing.T) {
	f, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Locations)
}

func TestSeedWithoutPathIsNoop(t *testing.T) {
	assert.NoError(t, Seed(context.Background(), nil, "", 4))
}
