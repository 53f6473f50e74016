package enrollment

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// NoDataError is returned when there is no enrollment to derive a cutoff from.
type NoDataError struct {
	Reason string
}

func (e *NoDataError) Error() string {
	if e.Reason == "" {
		return "no enrollment data"
	}
	return "no enrollment data: " + e.Reason
}

// StorageError wraps a failure reading or writing one of the stores.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if code := e.Code(); code != "" {
		return fmt.Sprintf("storage: %s: %v (sqlstate %s)", e.Op, e.Err, code)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Code returns the Postgres SQLSTATE of the cause, if there is one.
func (e *StorageError) Code() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsNoData reports whether err is or wraps a NoDataError.
func IsNoData(err error) bool {
	var target *NoDataError
	return errors.As(err, &target)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
