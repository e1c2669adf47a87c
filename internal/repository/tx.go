package repository

import (
    "context"
    "database/sql"

    "github.com/jmoiron/sqlx"
)

type txKey struct{}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
    sqlx.ExtContext
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
    GetContext(ctx context.Context, dest any, query string, args ...any) error
    SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Store owns the connection pool shared by all repositories and runs
// transactions.  The active transaction travels in the context so that
// repository methods called inside WithTx join it transparently.
type Store struct {
    db *sqlx.DB
}

// NewStore wraps a MySQL connection pool.
func NewStore(db *sql.DB) *Store {
    return &Store{db: sqlx.NewDb(db, "mysql")}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// WithTx runs fn inside a transaction.  When ctx already carries a
// transaction fn joins it.  The transaction is committed when fn returns
// nil and rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if txFromContext(ctx) != nil {
        return fn(ctx)
    }
    tx, err := s.db.BeginTxx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// q returns the transaction in ctx, or the pool.
func (s *Store) q(ctx context.Context) querier {
    if tx := txFromContext(ctx); tx != nil {
        return tx
    }
    return s.db
}

func txFromContext(ctx context.Context) *sqlx.Tx {
    tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
    return tx
}
