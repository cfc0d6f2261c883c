package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/database"
)

var _ TxRunner = (*SQLTxRunner)(nil)

// SQLTxRunner runs callbacks inside a PostgreSQL transaction.
type SQLTxRunner struct {
	db *sqlx.DB
}

// NewTxRunner creates a runner on the pool.
func NewTxRunner(db *sqlx.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

// Run begins a transaction, runs fn with repositories bound to it and commits or rolls back.
func (r *SQLTxRunner) Run(ctx context.Context, fn func(Repos) error) error {
	return database.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// NewRepos builds every repository on db, which may be the pool or a transaction.
func NewRepos(db sqlx.ExtContext) Repos {
	return Repos{
		Admins:    NewAdminUserRepository(db),
		Products:  NewProductRepository(db),
		Images:    NewProductImageRepository(db),
		Employees: NewEmployeeRepository(db),
		Sales:     NewSaleRepository(db),
		Sequences: NewSequenceRepository(db),
		Dashboard: NewDashboardRepository(db),
	}
}
