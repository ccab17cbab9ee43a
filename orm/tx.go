package orm

import (
	"context"
	"fmt"
)

// Begin opens a transaction and returns a session bound to it. Finish it
// with Commit or Rollback on the returned session.
func (s *Session) Begin(ctx context.Context) (*Session, error) {
	if s.tx != nil {
		return nil, fmt.Errorf("begin: session already has an open transaction")
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("transaction started")
	txs := *s
	txs.exec = tx
	txs.tx = tx
	return &txs, nil
}

// Commit commits the session's transaction.
func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	if err := s.tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Debug("transaction committed")
	return nil
}

// Rollback aborts the session's transaction.
func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	if err := s.tx.Rollback(ctx); err != nil {
		return err
	}
	s.logger.Debug("transaction rolled back")
	return nil
}

// Transaction runs fn inside a transaction. The transaction is committed
// when fn returns nil and rolled back when it returns an error or panics;
// fn's error is returned unchanged. Called on a session that is already in
// a transaction, fn joins it.
func (s *Session) Transaction(ctx context.Context, fn func(tx *Session) error) error {
	if s.tx != nil {
		return fn(s)
	}
	txs, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			if rerr := txs.Rollback(ctx); rerr != nil {
				s.logger.Warnf("rollback after panic failed: %v", rerr)
			}
			panic(p)
		}
	}()

	if err := fn(txs); err != nil {
		if rerr := txs.Rollback(ctx); rerr != nil {
			s.logger.Warnf("rollback failed: %v", rerr)
		}
		return err
	}
	return txs.Commit(ctx)
}
