package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridoystarlord/ormato/dialect"
)

// pgxQuerier is implemented by *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxConn struct {
	q pgxQuerier
}

func (c pgxConn) Query(ctx context.Context, sql string, params []any) (*ResultSet, error) {
	stmt, err := prepare(dialect.Postgres, sql, params)
	if err != nil {
		return nil, err
	}
	rows, err := c.q.Query(ctx, stmt, params...)
	if err != nil {
		return nil, &DatabaseError{SQL: sql, Err: err}
	}
	defer rows.Close()

	rs := &ResultSet{}
	for _, fd := range rows.FieldDescriptions() {
		rs.Columns = append(rs.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &DatabaseError{SQL: sql, Err: err}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{SQL: sql, Err: err}
	}
	return rs, nil
}

func (c pgxConn) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	stmt, err := prepare(dialect.Postgres, sql, params)
	if err != nil {
		return 0, err
	}
	tag, err := c.q.Exec(ctx, stmt, params...)
	if err != nil {
		return 0, &DatabaseError{SQL: sql, Err: err}
	}
	return tag.RowsAffected(), nil
}

// PostgresDB executes statements on a pgx connection pool.
type PostgresDB struct {
	pgxConn
	pool *pgxpool.Pool
}

// OpenPostgres creates a pgx connection pool for url and pings it.
func OpenPostgres(ctx context.Context, url string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *PostgresDB {
	return &PostgresDB{pgxConn: pgxConn{q: pool}, pool: pool}
}

// Pool returns the underlying pool.
func (d *PostgresDB) Pool() *pgxpool.Pool { return d.pool }

func (d *PostgresDB) Dialect() string { return dialect.Postgres }

func (d *PostgresDB) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

// Close closes the pool. It should be called on application shutdown.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

func (d *PostgresDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, &DatabaseError{SQL: "BEGIN", Err: err}
	}
	return &postgresTx{pgxConn: pgxConn{q: tx}, tx: tx}, nil
}

type postgresTx struct {
	pgxConn
	tx pgx.Tx
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return &DatabaseError{SQL: "COMMIT", Err: err}
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return &DatabaseError{SQL: "ROLLBACK", Err: err}
	}
	return nil
}
