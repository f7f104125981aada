package sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/eventhawk/eventhawk/core"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// Init creates every registered table that does not exist yet and adds
// declared columns missing from existing tables. It is safe to run on every
// startup.
func (s *Store) Init(ctx context.Context) error {
	const op = "init"

	s.logger.Info().Str("driver", s.dialect.name).Msg("initializing database")

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.fail(op, "", err)
	}
	defer tx.Rollback()

	for _, table := range s.registry.Tables() {
		if _, err := s.exec(ctx, tx, s.createTableSQL(table), nil); err != nil {
			return s.fail(op, table.Name, err)
		}

		existing, err := s.existingColumns(ctx, tx, table)
		if err != nil {
			return s.fail(op, table.Name, err)
		}
		for _, f := range table.Fields {
			if lo.Contains(existing, f.Column) {
				continue
			}
			if f.Required {
				s.logger.Warn().
					Str("table", table.Name).
					Str("column", f.Column).
					Msg("adding required column as nullable to existing table")
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
				quote(table.Name), quote(f.Column), s.dialect.columnType(f.Kind))
			if _, err := s.exec(ctx, tx, stmt, nil); err != nil {
				return s.fail(op, table.Name, err)
			}
			s.logger.Info().Str("table", table.Name).Str("column", f.Column).Msg("added column")
		}
	}

	if err := tx.Commit(); err != nil {
		return s.fail(op, "", err)
	}

	s.logger.Info().Msg("database initialized")
	return nil
}

func (s *Store) createTableSQL(table *core.Table) string {
	definitions := make([]string, 0, len(table.Fields)+1)
	for _, f := range table.Fields {
		def := quote(f.Column) + " " + s.dialect.columnType(f.Kind)
		if !f.Nullable {
			def += " NOT NULL"
		}
		definitions = append(definitions, def)
	}
	definitions = append(definitions, fmt.Sprintf("PRIMARY KEY (%s)", quote(table.PrimaryKey().Column)))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quote(table.Name), strings.Join(definitions, ",\n\t"))
}

// existingColumns reads column names from an empty result set, which works
// the same on every backend
func (s *Store) existingColumns(ctx context.Context, tx *sqlx.Tx, table *core.Table) ([]string, error) {
	rows, err := tx.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", quote(table.Name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows.Columns()
}
