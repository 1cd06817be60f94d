package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReference is returned when a foreign key target does not exist.
	ErrReference = errors.New("referenced record missing")
	// ErrStale is returned when a conditional update finds the row changed or gone.
	ErrStale = errors.New("record changed concurrently")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// mapPgError translates driver errors into the package sentinels. A malformed
// uuid can never match a row, so it reads as not found.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return ErrReference
		case pgInvalidTextRepr:
			return ErrNotFound
		}
	}
	return err
}
