package memory_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
	"github.com/maxviazov/gameday-service/internal/repository/contract"
	"github.com/maxviazov/gameday-service/internal/repository/memory"
)

var contractDate = time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (repository.MatchRepository, func()) {
	return memory.NewMatchRepository(zerolog.New(io.Discard)), func() {}
}

func TestMemoryMatchRepository_Contract(t *testing.T) {
	contract.RunMatchRepositoryContract(t, newRepo)
}

func TestMemoryPinger_Contract(t *testing.T) {
	contract.RunPingerContract(t, func(t *testing.T) (repository.Pinger, func()) {
		return memory.NewMatchRepository(zerolog.New(io.Discard)), func() {}
	})
}

func TestMemoryMatchRepository_ReturnsCopies(t *testing.T) {
	repo := memory.NewMatchRepository(zerolog.New(io.Discard))
	ctx := context.Background()
	created, err := repo.Create(ctx, contract.SeedMatch("t", "o", contractDate))
	require.NoError(t, err)

	created.Roster[0].FirstName = "Mutated"
	created.StartingXV["hooker"] = "p1"

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Roster[0].FirstName)
	assert.Empty(t, got.StartingXV)
}

func TestMemoryMatchRepository_SubscribeUnknown(t *testing.T) {
	repo := memory.NewMatchRepository(zerolog.New(io.Discard))
	_, err := repo.Subscribe(context.Background(), "missing", func(_ model.Match) {})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
