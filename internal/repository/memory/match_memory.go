// Package memory is an in-process MatchRepository. It backs local development
// (storage.driver=memory) and the service and handler tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

type subscriber struct {
	id       uint64
	onChange repository.ChangeFunc
}

// MatchRepository keeps matches in a map guarded by a mutex.
type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]model.Match
	subs    map[string][]subscriber
	nextSub uint64
	now     func() time.Time
	log     zerolog.Logger
}

// NewMatchRepository builds an empty store.
func NewMatchRepository(logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		matches: make(map[string]model.Match),
		subs:    make(map[string][]subscriber),
		now:     time.Now,
		log:     logger.With().Str("module", "repository").Str("component", "match_memory").Logger(),
	}
}

func (r *MatchRepository) Create(_ context.Context, m model.Match) (model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if _, exists := r.matches[m.ID]; exists {
		return model.Match{}, repository.ErrAlreadyExists
	}
	ts := r.now().UTC()
	m.CreatedAt, m.UpdatedAt = ts, ts
	stored := m.Clone()
	r.matches[m.ID] = stored
	return stored.Clone(), nil
}

func (r *MatchRepository) Get(_ context.Context, id string) (model.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	if !ok {
		return model.Match{}, repository.ErrNotFound
	}
	return m.Clone(), nil
}

func (r *MatchRepository) Update(_ context.Context, id string, patch repository.MatchPatch) error {
	r.mu.Lock()
	m, ok := r.matches[id]
	if !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	if patch.Empty() {
		r.mu.Unlock()
		return nil
	}
	next := patch.Apply(m)
	next.UpdatedAt = r.now().UTC()
	r.matches[id] = next
	subs := slices.Clone(r.subs[id])
	r.mu.Unlock()

	// callbacks run outside the lock so they may read the repository
	for _, s := range subs {
		s.onChange(next.Clone())
	}
	return nil
}

func (r *MatchRepository) Subscribe(_ context.Context, id string, onChange repository.ChangeFunc) (repository.Unsubscribe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return nil, repository.ErrNotFound
	}
	r.nextSub++
	subID := r.nextSub
	r.subs[id] = append(r.subs[id], subscriber{id: subID, onChange: onChange})
	r.log.Debug().Str("match_id", id).Uint64("subscription", subID).Msg("subscribed")

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.subs[id] = slices.DeleteFunc(r.subs[id], func(s subscriber) bool { return s.id == subID })
			if len(r.subs[id]) == 0 {
				delete(r.subs, id)
			}
		})
	}, nil
}

func (r *MatchRepository) ListByTeam(_ context.Context, teamID string) ([]model.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Match, 0)
	for _, m := range r.matches {
		if m.TeamID == teamID {
			out = append(out, m.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Match) int {
		if c := a.ScheduledDate.Compare(b.ScheduledDate); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

// Ping always succeeds; the store lives in process memory.
func (r *MatchRepository) Ping(context.Context) error { return nil }

var (
	_ repository.MatchRepository = (*MatchRepository)(nil)
	_ repository.Pinger          = (*MatchRepository)(nil)
)
