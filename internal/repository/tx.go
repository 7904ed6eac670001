package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Beginner is satisfied by pgxpool.Pool and lets a repository open a
// transaction when it holds the pool directly.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ Beginner = (*pgxpool.Pool)(nil)

// inTx runs fn against a transaction, rolling back if fn fails. When
// db cannot begin one (it already is a transaction, or a test double),
// fn runs against db as-is so batch methods compose inside an outer
// pgx.Tx.
func inTx(ctx context.Context, db DB, fn func(DB) error) error {
	b, ok := db.(Beginner)
	if !ok {
		return fn(db)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
