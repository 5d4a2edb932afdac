package repository

import (
	"context"

	"github.com/maxviazov/gameday-service/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// ChangeFunc receives the full stored match after every change.
type ChangeFunc func(m model.Match)

// Unsubscribe stops a subscription. Calling it more than once is safe.
type Unsubscribe func()

// MatchRepository is durable storage for match aggregates.
// Writes are last-write-wins per field; there is no version check, so two
// controllers writing the same match can drop each other's appends.
type MatchRepository interface {
	// Create stores a new match and assigns its persistent id.
	Create(ctx context.Context, m model.Match) (model.Match, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (model.Match, error)
	// Update replaces only the fields set in patch.
	Update(ctx context.Context, id string, patch MatchPatch) error
	// Subscribe calls onChange after every stored change to the match until unsubscribed.
	Subscribe(ctx context.Context, id string, onChange ChangeFunc) (Unsubscribe, error)
	// ListByTeam returns the team's matches ordered by scheduled date.
	ListByTeam(ctx context.Context, teamID string) ([]model.Match, error)
}
