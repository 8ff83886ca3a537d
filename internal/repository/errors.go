// Package repository is the MySQL storage of locations, tables,
// reservations and staff accounts. Lookups that find nothing return
// sql.ErrNoRows; constraint violations are translated to the sentinels
// below so handlers can answer 409 or 404 without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when a unique key (email, table number) is
// already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrEmailExists is the ErrDuplicate reported by UserRepo.Create.
var ErrEmailExists = errors.New("email already exists")

// ErrMissingParent is returned when a row references a location or table
// that does not exist.
var ErrMissingParent = errors.New("referenced row does not exist")

// ErrTooLong is returned when a value exceeds its column width.
var ErrTooLong = errors.New("value too long")

const (
	errDataTooLong    = 1406
	errDupEntry       = 1062
	errNoReferenced   = 1452
	errNoReferencedV2 = 1216
)

// translate maps MySQL constraint errors onto the package sentinels.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		return ErrDuplicate
	case errNoReferenced, errNoReferencedV2:
		return ErrMissingParent
	case errDataTooLong:
		return ErrTooLong
	}
	return err
}
