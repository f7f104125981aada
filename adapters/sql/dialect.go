package sql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/eventhawk/eventhawk/core"
	"github.com/jmoiron/sqlx"
)

// dialect holds the few places where backends differ
type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	types       map[core.FieldKind]string
	// OFFSET without LIMIT is a syntax error in SQLite
	offsetNeedsLimit bool
}

var (
	sqliteDialect = dialect{
		name:        "sqlite3",
		placeholder: sq.Question,
		types: map[core.FieldKind]string{
			core.FieldInt:   "INTEGER",
			core.FieldFloat: "REAL",
			core.FieldText:  "TEXT",
			core.FieldBool:  "BOOLEAN",
		},
		offsetNeedsLimit: true,
	}

	postgresDialect = dialect{
		name:        "postgres",
		placeholder: sq.Dollar,
		types: map[core.FieldKind]string{
			core.FieldInt:   "BIGINT",
			core.FieldFloat: "DOUBLE PRECISION",
			core.FieldText:  "TEXT",
			core.FieldBool:  "BOOLEAN",
		},
	}
)

func dialectFor(driverName string) (dialect, error) {
	switch sqlx.BindType(driverName) {
	case sqlx.QUESTION:
		return sqliteDialect, nil
	case sqlx.DOLLAR:
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported driver %q", driverName)
}

func (d dialect) columnType(kind core.FieldKind) string {
	return d.types[kind]
}

// quote quotes an identifier; double quotes are understood by both backends
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) []string {
	out := make([]string, len(idents))
	for i, ident := range idents {
		out[i] = quote(ident)
	}
	return out
}

// likePattern builds a substring pattern with LIKE wildcards escaped.
// Case folding happens in SQL on both sides of the LIKE.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}
