package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/query"
)

// Executor runs SQL with '?' placeholders and an ordered parameter list.
// Implementations rebind placeholders for their dialect.
type Executor interface {
	Query(ctx context.Context, sql string, params []any) (*ResultSet, error)
	Exec(ctx context.Context, sql string, params []any) (int64, error)
}

// DB is a database handle.
type DB interface {
	Executor
	Begin(ctx context.Context) (Tx, error)
	Dialect() string
	Ping(ctx context.Context) error
	Close() error
}

// Tx is an open transaction.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ResultSet is the materialized result of a query: ordered column names and
// ordered rows whose values line up with Columns.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Index returns the position of a column, or -1.
func (rs *ResultSet) Index(column string) int {
	for i, c := range rs.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the value of column in row i.
func (rs *ResultSet) Value(i int, column string) (any, bool) {
	j := rs.Index(column)
	if j < 0 || i < 0 || i >= len(rs.Rows) {
		return nil, false
	}
	return rs.Rows[i][j], true
}

// Maps returns the rows keyed by column name.
func (rs *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, len(rs.Rows))
	for i, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for j, c := range rs.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// prepare checks the parameter count against the placeholders and rebinds
// them for the dialect.
func prepare(dialectName, sql string, params []any) (string, error) {
	if err := query.Raw(sql).Check(params); err != nil {
		return "", err
	}
	return dialect.Rebind(dialectName, sql), nil
}

// Options selects and configures a backend for Open.
type Options struct {
	// URL is a PostgreSQL connection URL or a SQLite data source.
	URL string
	// Dialect is inferred from URL when empty.
	Dialect string
	// Driver picks the PostgreSQL client: "pgx" (default) uses a pgx pool,
	// "pq" uses database/sql with lib/pq. SQLite always uses database/sql.
	Driver string
}

// Open connects to the database described by opts and verifies the
// connection.
func Open(ctx context.Context, opts Options) (DB, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("database URL not set")
	}
	name := opts.Dialect
	if name == "" {
		inferred, err := dialect.FromURL(opts.URL)
		if err != nil {
			return nil, err
		}
		name = inferred
	}
	name, err := dialect.Normalize(name)
	if err != nil {
		return nil, err
	}

	var db DB
	switch {
	case name == dialect.SQLite:
		db, err = OpenSQL(dialect.SQLite, sqliteDSN(opts.URL))
	case strings.EqualFold(opts.Driver, "pq"), strings.EqualFold(opts.Driver, "lib/pq"):
		db, err = OpenSQL(dialect.Postgres, opts.URL)
	case opts.Driver == "" || strings.EqualFold(opts.Driver, "pgx"):
		return OpenPostgres(ctx, opts.URL)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return db, nil
}

// sqliteDSN strips a sqlite:// scheme and turns on foreign key
// enforcement unless the DSN configures it.
func sqliteDSN(url string) string {
	dsn := url
	for _, prefix := range []string{"sqlite://", "sqlite3://"} {
		if strings.HasPrefix(strings.ToLower(dsn), prefix) {
			dsn = dsn[len(prefix):]
			break
		}
	}
	if strings.Contains(strings.ToLower(dsn), "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
