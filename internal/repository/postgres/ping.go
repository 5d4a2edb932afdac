package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/gameday-service/internal/repository"
)

type pinger struct{ pool *pgxpool.Pool }

// NewPinger exposes the pool as a readiness probe.
func NewPinger(pool *pgxpool.Pool) repository.Pinger { return &pinger{pool: pool} }

func (p *pinger) Ping(ctx context.Context) error {
	if err := ensurePool(p.pool); err != nil {
		return err
	}
	return repository.MapPgError(p.pool.Ping(ctx))
}
