package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ridoystarlord/ormato/dialect"
)

// driverNames maps a dialect to the database/sql driver registered for it.
var driverNames = map[string]string{
	dialect.Postgres: "postgres", // lib/pq
	dialect.SQLite:   "sqlite",   // modernc.org/sqlite
}

// ExecQuerier wraps the standard ExecContext and QueryContext methods.
// *sql.DB, *sql.Tx and *sql.Conn implement it.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlConn struct {
	ExecQuerier
	dialect string
}

func (c sqlConn) Query(ctx context.Context, stmt string, params []any) (*ResultSet, error) {
	bound, err := prepare(c.dialect, stmt, params)
	if err != nil {
		return nil, err
	}
	rows, err := c.QueryContext(ctx, bound, params...)
	if err != nil {
		return nil, &DatabaseError{SQL: stmt, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &DatabaseError{SQL: stmt, Err: err}
	}
	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &DatabaseError{SQL: stmt, Err: err}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{SQL: stmt, Err: err}
	}
	return rs, nil
}

func (c sqlConn) Exec(ctx context.Context, stmt string, params []any) (int64, error) {
	bound, err := prepare(c.dialect, stmt, params)
	if err != nil {
		return 0, err
	}
	res, err := c.ExecContext(ctx, bound, params...)
	if err != nil {
		return 0, &DatabaseError{SQL: stmt, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report affected rows for DDL.
		return 0, nil
	}
	return n, nil
}

// SQLDB executes statements through database/sql.
type SQLDB struct {
	sqlConn
	db *sql.DB
}

// OpenSQL opens a database/sql handle for the dialect: lib/pq for
// PostgreSQL, modernc.org/sqlite for SQLite. The connection is not
// verified; call Ping.
func OpenSQL(dialectName, dsn string) (*SQLDB, error) {
	driver, ok := driverNames[dialectName]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialectName)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialectName, err)
	}
	if dialectName == dialect.SQLite {
		// A single connection keeps ":memory:" databases alive and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}
	return NewSQL(dialectName, db), nil
}

// NewSQL wraps an existing *sql.DB.
func NewSQL(dialectName string, db *sql.DB) *SQLDB {
	return &SQLDB{sqlConn: sqlConn{ExecQuerier: db, dialect: dialectName}, db: db}
}

// DB returns the underlying *sql.DB instance.
func (d *SQLDB) DB() *sql.DB { return d.db }

func (d *SQLDB) Dialect() string { return d.dialect }

func (d *SQLDB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *SQLDB) Close() error { return d.db.Close() }

func (d *SQLDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DatabaseError{SQL: "BEGIN", Err: err}
	}
	return &sqlTx{sqlConn: sqlConn{ExecQuerier: tx, dialect: d.dialect}, tx: tx}, nil
}

type sqlTx struct {
	sqlConn
	tx *sql.Tx
}

func (t *sqlTx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return &DatabaseError{SQL: "COMMIT", Err: err}
	}
	return nil
}

func (t *sqlTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return &DatabaseError{SQL: "ROLLBACK", Err: err}
	}
	return nil
}
