// Package repository persists the booking domain in MySQL.  Repositories
// translate driver errors into the sentinel values below so that higher
// layers can distinguish failure scenarios without knowing about MySQL.
package repository

import (
    "database/sql"
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist, or when
// an insert references a parent row that does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records, such as deleting a catalog item that
// still has bookings.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when a unique key would be violated.
var ErrDuplicate = errors.New("duplicate")

// MySQL server error numbers mapped by mapErr.
const (
    mysqlDuplicateEntry  = 1062
    mysqlRowIsReferenced = 1451
    mysqlNoReferencedRow = 1452
)

// mapErr converts driver errors into repository sentinels.  Other errors
// are returned unchanged.
func mapErr(err error) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    var myErr *mysql.MySQLError
    if errors.As(err, &myErr) {
        switch myErr.Number {
        case mysqlDuplicateEntry:
            return ErrDuplicate
        case mysqlRowIsReferenced:
            return ErrConflict
        case mysqlNoReferencedRow:
            return ErrNotFound
        }
    }
    return err
}
