// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// services and handlers to distinguish between failure scenarios without
// inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when the requested row does not exist.
// Repositories translate sql.ErrNoRows into this value.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a compare-and-set update matched no row
// because the record already left the expected state (for example a
// top-up approved twice).  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInsufficientBalance is returned by a guarded wallet debit when the
// balance is lower than the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// expectOne turns a zero-row update into miss.
func expectOne(res sql.Result, miss error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return miss
	}
	return nil
}
