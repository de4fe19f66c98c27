// Package postgres implements the Store contract (spec C3, §4.3) on top
// of pgx, following the teacher's pool-or-tx repository shape: every
// sub-repository holds the shared pool and, inside a transaction, the
// active pgx.Tx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// conn is satisfied by both *pgxpool.Pool and pgx.Tx; every
// sub-repository runs its SQL through this interface so it works
// identically whether or not it's inside a transaction.
type conn interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Repository is the root Store handle.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) conn() conn {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// RootServers returns the root-server sub-repository.
func (r *Repository) RootServers() *RootServerRepo { return &RootServerRepo{r: r} }

// ServiceBodies returns the service-body sub-repository.
func (r *Repository) ServiceBodies() *ServiceBodyRepo { return &ServiceBodyRepo{r: r} }

// Formats returns the format sub-repository.
func (r *Repository) Formats() *FormatRepo { return &FormatRepo{r: r} }

// Meetings returns the meeting sub-repository.
func (r *Repository) Meetings() *MeetingRepo { return &MeetingRepo{r: r} }

// ImportProblems returns the import-problem sub-repository.
func (r *Repository) ImportProblems() *ImportProblemRepo { return &ImportProblemRepo{r: r} }

// Users returns the admin-bootstrap user sub-repository.
func (r *Repository) Users() *UserRepo { return &UserRepo{r: r} }

// WithTx runs fn inside a transaction-scoped Repository, committing on
// success and rolling back on error (spec §4.4: "per root... in one
// transaction").
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo *Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &Repository{pool: r.pool, tx: tx}

	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool for components that need it directly
// (e.g. the job worker and the translation loader).
func (r *Repository) Pool() *pgxpool.Pool { return r.pool }
