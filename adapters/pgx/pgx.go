// Package pgx provides a PostgreSQL-backed store adapter using pgxpool.
package pgx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/portero"
)

type Adapter struct {
	pool *pgxpool.Pool
}

var _ portero.AuthStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}

// Migrate applies the adapter's schema. Idempotent.
func (a *Adapter) Migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, schema)
	return err
}
