package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/eventhawk/eventhawk/core"
	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements core.Store on top of database/sql. It holds only the
// connection pool; every operation acquires and releases its own connection.
type Store struct {
	db       *sqlx.DB
	registry *core.Registry
	dialect  dialect
	builder  sq.StatementBuilderType
	logger   zerolog.Logger
	sqlLog   *SQLLogger
}

var _ core.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for failures and SQL debug output
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
		s.sqlLog.logger = logger
	}
}

// WithDebug enables SQL statement logging
func WithDebug(enabled bool) Option {
	return func(s *Store) {
		s.sqlLog.SetEnabled(enabled)
	}
}

// Open connects to the database named by databaseURL and verifies the connection
func Open(ctx context.Context, databaseURL string, registry *core.Registry, opts ...Option) (*Store, error) {
	driverName, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, &core.Error{Kind: core.KindValidation, Op: "open", Err: err}
	}
	if driverName == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, classify("open", "", err)
	}
	if dsn == ":memory:" {
		// every new connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	s, err := New(db, registry, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool
func New(db *sqlx.DB, registry *core.Registry, opts ...Option) (*Store, error) {
	d, err := dialectFor(db.DriverName())
	if err != nil {
		return nil, &core.Error{Kind: core.KindValidation, Op: "open", Err: err}
	}

	logger := log.New("store")
	s := &Store{
		db:       db,
		registry: registry,
		dialect:  d,
		builder:  sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		logger:   logger,
		sqlLog:   NewSQLLogger(logger, false),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ping checks that the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.fail("ping", "", err)
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return s.fail("close", "", err)
	}
	return nil
}

// Find retrieves the rows of a table matching the query
func (s *Store) Find(ctx context.Context, tableName string, query *core.Query) ([]core.Record, error) {
	const op = "find"

	table, err := s.table(op, tableName)
	if err != nil {
		return nil, err
	}
	if query == nil {
		query = core.NewQuery()
	}

	stmt, err := s.selectStatement(table, query)
	if err != nil {
		return nil, s.reject(op, table.Name, err)
	}
	queryStr, args, err := stmt.ToSql()
	if err != nil {
		return nil, s.reject(op, table.Name, err)
	}

	records, err := s.query(ctx, s.db, table, queryStr, args)
	if err != nil {
		return nil, s.fail(op, table.Name, err)
	}
	return records, nil
}

// GetByID retrieves a single record by its primary key
func (s *Store) GetByID(ctx context.Context, tableName string, id any) (core.Record, error) {
	const op = "get"

	table, err := s.table(op, tableName)
	if err != nil {
		return nil, err
	}

	query := core.NewQuery().
		WithFilter(table.PrimaryKey().Column, id).
		WithPagination(1, 0)
	records, err := s.Find(ctx, table.Name, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, s.fail(op, table.Name, core.NewError(core.KindNotFound, op, table.Name, "record with id %v not found", id))
	}
	return records[0], nil
}

// Count returns the number of rows matching the query's filters and search.
// Sorting and pagination are ignored.
func (s *Store) Count(ctx context.Context, tableName string, query *core.Query) (int64, error) {
	const op = "count"

	table, err := s.table(op, tableName)
	if err != nil {
		return 0, err
	}
	if query == nil {
		query = core.NewQuery()
	}

	where, err := s.where(table, query)
	if err != nil {
		return 0, s.reject(op, table.Name, err)
	}
	queryStr, args, err := s.builder.Select("COUNT(*)").From(quote(table.Name)).Where(where).ToSql()
	if err != nil {
		return 0, s.reject(op, table.Name, err)
	}

	var count int64
	start := time.Now()
	err = s.db.GetContext(ctx, &count, queryStr, args...)
	duration := time.Since(start)
	if err != nil {
		s.sqlLog.LogError(queryStr, args, duration, err)
		return 0, s.fail(op, table.Name, err)
	}
	s.sqlLog.LogQuery(queryStr, args, duration, 1)

	return count, nil
}

// Write applies an insert, update or delete inside a single transaction
func (s *Store) Write(ctx context.Context, tableName string, data core.Record, op core.Operation) error {
	opName := string(op)
	if _, err := core.ParseOperation(opName); err != nil {
		return s.reject("write", tableName, err)
	}

	table, err := s.table(opName, tableName)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return s.reject(opName, table.Name, fmt.Errorf("no data"))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.fail(opName, table.Name, err)
	}
	// no-op once committed
	defer tx.Rollback()

	switch op {
	case core.OpInsert:
		err = s.insert(ctx, tx, table, data)
	case core.OpUpdate:
		err = s.update(ctx, tx, table, data)
	case core.OpDelete:
		err = s.delete(ctx, tx, table, data)
	}
	if err != nil {
		return s.fail(opName, table.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return s.fail(opName, table.Name, err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, tx *sqlx.Tx, table *core.Table, data core.Record) error {
	columns, values, err := table.ResolveInsert(data)
	if err != nil {
		return s.invalid("insert", table.Name, err)
	}
	key, err := table.ResolveKey(data)
	if err != nil {
		return s.invalid("insert", table.Name, err)
	}

	exists, err := s.exists(ctx, tx, table, key)
	if err != nil {
		return err
	}
	if exists {
		return core.NewError(core.KindConflict, "insert", table.Name, "record with id %v already exists", key)
	}

	queryStr, args, err := s.builder.
		Insert(quote(table.Name)).
		Columns(quoteAll(columns)...).
		Values(values...).
		ToSql()
	if err != nil {
		return s.invalid("insert", table.Name, err)
	}
	_, err = s.exec(ctx, tx, queryStr, args)
	return err
}

func (s *Store) update(ctx context.Context, tx *sqlx.Tx, table *core.Table, data core.Record) error {
	key, set, err := table.ResolveUpdate(data)
	if err != nil {
		return s.invalid("update", table.Name, err)
	}

	exists, err := s.exists(ctx, tx, table, key)
	if err != nil {
		return err
	}
	if !exists {
		return core.NewError(core.KindNotFound, "update", table.Name, "record with id %v not found", key)
	}
	if len(set) == 0 {
		return nil
	}

	quoted := make(map[string]any, len(set))
	for column, value := range set {
		quoted[quote(column)] = value
	}
	queryStr, args, err := s.builder.
		Update(quote(table.Name)).
		SetMap(quoted).
		Where(sq.Eq{quote(table.PrimaryKey().Column): key}).
		ToSql()
	if err != nil {
		return s.invalid("update", table.Name, err)
	}
	_, err = s.exec(ctx, tx, queryStr, args)
	return err
}

// delete reports a missing row as not found rather than succeeding silently
func (s *Store) delete(ctx context.Context, tx *sqlx.Tx, table *core.Table, data core.Record) error {
	key, err := table.ResolveKey(data)
	if err != nil {
		return s.invalid("delete", table.Name, err)
	}

	queryStr, args, err := s.builder.
		Delete(quote(table.Name)).
		Where(sq.Eq{quote(table.PrimaryKey().Column): key}).
		ToSql()
	if err != nil {
		return s.invalid("delete", table.Name, err)
	}
	result, err := s.exec(ctx, tx, queryStr, args)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NewError(core.KindNotFound, "delete", table.Name, "record with id %v not found", key)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, tx *sqlx.Tx, table *core.Table, key any) (bool, error) {
	queryStr, args, err := s.builder.
		Select("1").
		From(quote(table.Name)).
		Where(sq.Eq{quote(table.PrimaryKey().Column): key}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	start := time.Now()
	err = tx.GetContext(ctx, &one, queryStr, args...)
	duration := time.Since(start)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.sqlLog.LogQuery(queryStr, args, duration, 0)
		return false, nil
	case err != nil:
		s.sqlLog.LogError(queryStr, args, duration, err)
		return false, err
	}
	s.sqlLog.LogQuery(queryStr, args, duration, 1)
	return true, nil
}

func (s *Store) selectStatement(table *core.Table, query *core.Query) (sq.SelectBuilder, error) {
	if err := query.Validate(); err != nil {
		return sq.SelectBuilder{}, err
	}
	where, err := s.where(table, query)
	if err != nil {
		return sq.SelectBuilder{}, err
	}

	stmt := s.builder.
		Select(quoteAll(table.Columns())...).
		From(quote(table.Name)).
		Where(where)

	ordered := query.Clone()
	ordered.ApplyDefaultSort(table)
	for _, sort := range ordered.Sort {
		column, err := table.ResolveSort(sort.Field)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		direction := "ASC"
		if sort.Direction == core.SortDesc {
			direction = "DESC"
		}
		stmt = stmt.OrderBy(quote(column) + " " + direction)
	}

	limit, offset := query.Pagination.Limit, query.Pagination.Offset
	switch {
	case limit > 0:
		stmt = stmt.Limit(uint64(limit))
		if offset > 0 {
			stmt = stmt.Offset(uint64(offset))
		}
	case offset > 0 && s.dialect.offsetNeedsLimit:
		stmt = stmt.Suffix("LIMIT -1 OFFSET ?", offset)
	case offset > 0:
		stmt = stmt.Offset(uint64(offset))
	}
	return stmt, nil
}

// where builds the filter and search conditions shared by Find and Count
func (s *Store) where(table *core.Table, query *core.Query) (sq.And, error) {
	conditions := sq.And{}

	filters, err := table.ResolveFilters(query.Filters)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		eq := sq.Eq{}
		for column, value := range filters {
			eq[quote(column)] = value
		}
		conditions = append(conditions, eq)
	}

	if query.Search != "" {
		fields := table.SearchFields()
		if len(fields) == 0 {
			return nil, fmt.Errorf("table %s has no searchable fields", table.Name)
		}
		pattern := likePattern(query.Search)
		search := sq.Or{}
		for _, f := range fields {
			search = append(search, sq.Expr(fmt.Sprintf(`LOWER(%s) LIKE LOWER(?) ESCAPE '\'`, quote(f.Column)), pattern))
		}
		conditions = append(conditions, search)
	}

	return conditions, nil
}

func (s *Store) query(ctx context.Context, q sqlx.QueryerContext, table *core.Table, queryStr string, args []any) ([]core.Record, error) {
	start := time.Now()
	rows, err := q.QueryxContext(ctx, queryStr, args...)
	if err != nil {
		s.sqlLog.LogError(queryStr, args, time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	records := make([]core.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows, table)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	s.sqlLog.LogQuery(queryStr, args, time.Since(start), len(records))
	return records, nil
}

func (s *Store) exec(ctx context.Context, e sqlx.ExecerContext, queryStr string, args []any) (sql.Result, error) {
	start := time.Now()
	result, err := e.ExecContext(ctx, queryStr, args...)
	duration := time.Since(start)
	if err != nil {
		s.sqlLog.LogError(queryStr, args, duration, err)
		return nil, err
	}
	s.sqlLog.LogExec(queryStr, args, duration, result)
	return result, nil
}

// scanRecord scans one row, selected in table column order, into a Record
func scanRecord(rows *sqlx.Rows, table *core.Table) (core.Record, error) {
	dests := make([]any, len(table.Fields))
	for i, f := range table.Fields {
		switch f.Kind {
		case core.FieldInt:
			dests[i] = new(sql.NullInt64)
		case core.FieldFloat:
			dests[i] = new(sql.NullFloat64)
		case core.FieldBool:
			dests[i] = new(sql.NullBool)
		default:
			dests[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}

	record := make(core.Record, len(table.Fields))
	for i, f := range table.Fields {
		var value any
		switch d := dests[i].(type) {
		case *sql.NullInt64:
			if d.Valid {
				value = d.Int64
			}
		case *sql.NullFloat64:
			if d.Valid {
				value = d.Float64
			}
		case *sql.NullBool:
			if d.Valid {
				value = d.Bool
			}
		case *sql.NullString:
			if d.Valid {
				value = d.String
			}
		}
		record[f.Column] = value
	}
	return record, nil
}

func (s *Store) table(op, name string) (*core.Table, error) {
	table, ok := s.registry.Table(name)
	if !ok {
		return nil, s.fail(op, name, core.NewError(core.KindNotFound, op, name, "unknown table %q", name))
	}
	return table, nil
}

func (s *Store) invalid(op, table string, err error) *core.Error {
	return &core.Error{Kind: core.KindValidation, Op: op, Table: table, Err: err}
}

// reject logs and returns err as a validation failure
func (s *Store) reject(op, table string, err error) error {
	return s.fail(op, table, s.invalid(op, table, err))
}

// fail classifies err and logs it at the store boundary
func (s *Store) fail(op, table string, err error) error {
	storeErr := classify(op, table, err)

	event := s.logger.Warn()
	switch storeErr.Kind {
	case core.KindUnavailable:
		event = s.logger.Error()
	case core.KindNotFound:
		event = s.logger.Debug()
	}
	event.Err(storeErr.Err).
		Str("op", op).
		Str("table", table).
		Str("kind", string(storeErr.Kind)).
		Msg("store operation failed")

	return storeErr
}
