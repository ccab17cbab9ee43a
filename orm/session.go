// Package orm binds a database handle to a schema registry and offers the
// session operations of the mapper: raw execution, compiled queries, schema
// creation, CRUD by primary key, transactions and hydration of result sets
// into model values.
package orm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/query"
	"github.com/ridoystarlord/ormato/schema"
)

// ErrNotFound is returned by First and by hydration into a single value
// when no row matched.
var ErrNotFound = errors.New("ormato: record not found")

// ErrNoTransaction is returned by Commit and Rollback on a session that is
// not bound to a transaction.
var ErrNoTransaction = errors.New("ormato: session has no open transaction")

// Session executes statements against a database for the models of a
// registry. A Session returned by Begin or passed to a Transaction callback
// is bound to that transaction.
type Session struct {
	db     database.DB
	exec   database.Executor
	tx     database.Tx
	reg    *schema.Registry
	logger *zap.SugaredLogger
}

// New returns a session over db. A nil logger disables logging.
func New(db database.DB, reg *schema.Registry, logger *zap.SugaredLogger) *Session {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if reg == nil {
		reg = schema.NewRegistry()
	}
	return &Session{db: db, exec: db, reg: reg, logger: logger}
}

// Registry returns the session's model registry.
func (s *Session) Registry() *schema.Registry { return s.reg }

// DB returns the underlying database handle.
func (s *Session) DB() database.DB { return s.db }

// InTransaction reports whether the session is bound to a transaction.
func (s *Session) InTransaction() bool { return s.tx != nil }

// Execute runs a raw query and returns its rows. The parameter count must
// match the placeholders of raw.
func (s *Session) Execute(ctx context.Context, raw query.RawQuery, params ...any) (*database.ResultSet, error) {
	s.logger.Debugw("query", "sql", raw.SQL, "params", len(params))
	rs, err := s.exec.Query(ctx, raw.SQL, params)
	if err != nil {
		s.logger.Debugw("query failed", "sql", raw.SQL, "error", err)
		return nil, err
	}
	return rs, nil
}

// Exec runs a statement that returns no rows and reports the number of
// affected rows.
func (s *Session) Exec(ctx context.Context, raw query.RawQuery, params ...any) (int64, error) {
	s.logger.Debugw("exec", "sql", raw.SQL, "params", len(params))
	n, err := s.exec.Exec(ctx, raw.SQL, params)
	if err != nil {
		s.logger.Debugw("exec failed", "sql", raw.SQL, "error", err)
		return 0, err
	}
	return n, nil
}

// Find compiles q, runs it and hydrates the rows into dest, which is a
// pointer to a slice of the base model's type (or of pointers to it), or a
// pointer to a single value.
func (s *Session) Find(ctx context.Context, q query.Query, dest any) error {
	raw, params, err := q.Build()
	if err != nil {
		return err
	}
	rs, err := s.Execute(ctx, raw, params...)
	if err != nil {
		return err
	}
	return Hydrate(q.Model(), rs, dest)
}

// CreateSchema creates the table of the model v refers to.
func (s *Session) CreateSchema(ctx context.Context, v any, mapping generator.TypeMapping) error {
	m, err := s.reg.Model(v)
	if err != nil {
		return err
	}
	ddl, err := generator.CreateTable(m, mapping)
	if err != nil {
		return err
	}
	if _, err := s.Exec(ctx, query.Raw(ddl)); err != nil {
		return err
	}
	s.logger.Infow("created table", "table", m.Table())
	return nil
}

// DropSchema drops the table of the model v refers to.
func (s *Session) DropSchema(ctx context.Context, v any) error {
	m, err := s.reg.Model(v)
	if err != nil {
		return err
	}
	if _, err := s.Exec(ctx, query.Raw(generator.DropTable(m))); err != nil {
		return err
	}
	s.logger.Infow("dropped table", "table", m.Table())
	return nil
}
