package core

import (
	"context"
	"fmt"
)

// Operation selects what Store.Write does with a record
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation validates an operation name
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpInsert, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Store is a backend-agnostic record store. Implementations hold only a
// connection factory; every call acquires and releases its own connection.
// All returned errors are *Error.
type Store interface {
	// Init creates missing tables and columns for every registered table
	Init(ctx context.Context) error

	// Find returns the rows of table matching query, in order
	Find(ctx context.Context, table string, query *Query) ([]Record, error)

	// GetByID returns a single row by primary key
	GetByID(ctx context.Context, table string, id any) (Record, error)

	// Write inserts, updates or deletes one record in a single transaction
	Write(ctx context.Context, table string, data Record, op Operation) error

	// Count returns the number of rows matching the query's filters and search
	Count(ctx context.Context, table string, query *Query) (int64, error)

	// Close releases the connection pool
	Close() error
}
