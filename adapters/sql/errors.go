package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/eventhawk/eventhawk/core"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// classify converts a backend error into a *core.Error
func classify(op, table string, err error) *core.Error {
	var storeErr *core.Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &core.Error{Kind: kindOf(err), Op: op, Table: table, Err: err}
}

func kindOf(err error) core.ErrorKind {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.KindNotFound
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone):
		return core.KindUnavailable
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteKind(sqliteErr)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return postgresKind(pqErr)
	}

	// connection refused, i/o timeouts and anything unrecognised
	return core.KindUnavailable
}

func sqliteKind(err sqlite3.Error) core.ErrorKind {
	switch err.Code {
	case sqlite3.ErrConstraint:
		switch err.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return core.KindConflict
		}
		return core.KindValidation
	case sqlite3.ErrMismatch, sqlite3.ErrTooBig, sqlite3.ErrRange:
		return core.KindValidation
	}
	return core.KindUnavailable
}

func postgresKind(err *pq.Error) core.ErrorKind {
	switch {
	case err.Code == "23505":
		return core.KindConflict
	case err.Code.Class() == "23", // integrity constraint violation
		err.Code.Class() == "22", // data exception
		err.Code == "42703":      // undefined column
		return core.KindValidation
	}
	return core.KindUnavailable
}
