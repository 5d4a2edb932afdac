package postgres

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

const (
	listenRetryMin = 200 * time.Millisecond
	listenRetryMax = 10 * time.Second
)

type fetchFunc func(ctx context.Context, id string) (model.Match, error)

type subscriber struct {
	id       uint64
	onChange repository.ChangeFunc
}

// listener holds one dedicated connection in LISTEN mode and fans each
// notification out to the subscribers of the announced match id.
type listener struct {
	pool    *pgxpool.Pool
	channel string
	fetch   fetchFunc
	log     zerolog.Logger

	mu      sync.Mutex
	subs    map[string][]subscriber
	nextSub uint64

	readyOnce sync.Once
	ready     chan struct{}
}

func newListener(pool *pgxpool.Pool, channel string, fetch fetchFunc, log zerolog.Logger) *listener {
	if channel == "" {
		channel = "match_changes"
	}
	return &listener{
		pool:    pool,
		channel: channel,
		fetch:   fetch,
		log:     log,
		subs:    make(map[string][]subscriber),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first LISTEN has been issued.
func (l *listener) Ready() <-chan struct{} { return l.ready }

// Listen blocks until ctx is done, reconnecting with backoff when the
// listening connection is lost.
func (l *listener) Listen(ctx context.Context) error {
	if err := ensurePool(l.pool); err != nil {
		return err
	}
	backoff := listenRetryMin
	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warn().Err(err).Dur("retry_in", backoff).Msg("match change listener disconnected")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, listenRetryMax)
	}
}

func (l *listener) listenOnce(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// a connection left in LISTEN mode must not go back to the pool
	conn := pooled.Hijack()
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	l.readyOnce.Do(func() { close(l.ready) })
	l.log.Info().Str("channel", l.channel).Msg("listening for match changes")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, n.Payload)
	}
}

func (l *listener) dispatch(ctx context.Context, id string) {
	l.mu.Lock()
	subs := slices.Clone(l.subs[id])
	l.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	m, err := l.fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.log.Error().Err(err).Str("match_id", id).Msg("failed to load changed match")
		}
		return
	}
	for _, s := range subs {
		s.onChange(m.Clone())
	}
}

func (l *listener) add(id string, onChange repository.ChangeFunc) repository.Unsubscribe {
	l.mu.Lock()
	l.nextSub++
	subID := l.nextSub
	l.subs[id] = append(l.subs[id], subscriber{id: subID, onChange: onChange})
	l.mu.Unlock()
	l.log.Debug().Str("match_id", id).Uint64("subscription", subID).Msg("subscribed")

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.subs[id] = slices.DeleteFunc(l.subs[id], func(s subscriber) bool { return s.id == subID })
			if len(l.subs[id]) == 0 {
				delete(l.subs, id)
			}
		})
	}
}
