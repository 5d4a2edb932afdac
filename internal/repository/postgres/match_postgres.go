package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

const matchColumns = `id, team_id, opponent_name, scheduled_date, status, current_period,
	timer, statistics, events, starting_xv, roster, created_at, updated_at`

// MatchRepository stores one row per match and announces every update with
// pg_notify on the configured channel. Subscriptions are served by the
// embedded listener, which must be running (see Listen).
type MatchRepository struct {
	pool *pgxpool.Pool
	tx   repository.TxManager
	*listener
	log zerolog.Logger
}

// NewMatchRepository binds the repository to pool. channel is the LISTEN/NOTIFY
// channel used for change announcements.
func NewMatchRepository(pool *pgxpool.Pool, channel string, logger zerolog.Logger) *MatchRepository {
	log := logger.With().Str("module", "repository").Str("component", "match_postgres").Logger()
	r := &MatchRepository{
		pool: pool,
		tx:   NewTxManager(pool),
		log:  log,
	}
	r.listener = newListener(pool, channel, r.Get, log)
	return r
}

func (r *MatchRepository) Create(ctx context.Context, m model.Match) (model.Match, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Match{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	doc, err := encodeDocs(m)
	if err != nil {
		return model.Match{}, err
	}
	row := getQ(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO matches (id, team_id, opponent_name, scheduled_date, status, current_period,
			timer, statistics, events, starting_xv, roster)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+matchColumns,
		m.ID, m.TeamID, m.OpponentName, m.ScheduledDate.UTC(), string(m.Status), int(m.CurrentPeriod),
		doc.timer, doc.statistics, doc.events, doc.lineup, doc.roster,
	)
	created, err := scanMatch(row)
	if err != nil {
		return model.Match{}, repository.MapPgError(err)
	}
	return created, nil
}

func (r *MatchRepository) Get(ctx context.Context, id string) (model.Match, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Match{}, err
	}
	row := getQ(ctx, r.pool).QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Match{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Match{}, repository.MapPgError(err)
	}
	return m, nil
}

// Update writes the patched columns and queues a notification in the same
// transaction, so listeners only hear about committed changes.
func (r *MatchRepository) Update(ctx context.Context, id string, patch repository.MatchPatch) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	sets, args, err := patchColumns(patch)
	if err != nil {
		return err
	}
	args = append(args, id)
	stmt := fmt.Sprintf(`UPDATE matches SET %s, updated_at = now() WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		tag, err := getQ(ctx, r.pool).Exec(ctx, stmt, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		_, err = getQ(ctx, r.pool).Exec(ctx, `SELECT pg_notify($1, $2)`, r.channel, id)
		return err
	})
}

func (r *MatchRepository) ListByTeam(ctx context.Context, teamID string) ([]model.Match, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	rows, err := getQ(ctx, r.pool).Query(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE team_id = $1 ORDER BY scheduled_date, id`, teamID)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()

	out := make([]model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

// Subscribe checks the match exists, then registers onChange with the listener.
func (r *MatchRepository) Subscribe(ctx context.Context, id string, onChange repository.ChangeFunc) (repository.Unsubscribe, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return r.listener.add(id, onChange), nil
}

func (r *MatchRepository) Ping(ctx context.Context) error {
	return NewPinger(r.pool).Ping(ctx)
}

var (
	_ repository.MatchRepository = (*MatchRepository)(nil)
	_ repository.Pinger          = (*MatchRepository)(nil)
)

type docs struct {
	timer, statistics, events, lineup, roster []byte
}

func encodeDocs(m model.Match) (docs, error) {
	var (
		d   docs
		err error
	)
	if d.timer, err = json.Marshal(m.Timer); err != nil {
		return d, fmt.Errorf("encode timer: %w", err)
	}
	if d.statistics, err = json.Marshal(m.Statistics); err != nil {
		return d, fmt.Errorf("encode statistics: %w", err)
	}
	if d.events, err = encodeEvents(m.Events); err != nil {
		return d, err
	}
	if d.lineup, err = encodeLineup(m.StartingXV); err != nil {
		return d, err
	}
	if d.roster, err = encodeRoster(m.Roster); err != nil {
		return d, err
	}
	return d, nil
}

func encodeEvents(events []model.EventRecord) ([]byte, error) {
	if events == nil {
		events = []model.EventRecord{}
	}
	b, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return b, nil
}

func encodeLineup(lineup model.Lineup) ([]byte, error) {
	if lineup == nil {
		lineup = model.Lineup{}
	}
	b, err := json.Marshal(lineup)
	if err != nil {
		return nil, fmt.Errorf("encode lineup: %w", err)
	}
	return b, nil
}

func encodeRoster(roster []model.Player) ([]byte, error) {
	if roster == nil {
		roster = []model.Player{}
	}
	b, err := json.Marshal(roster)
	if err != nil {
		return nil, fmt.Errorf("encode roster: %w", err)
	}
	return b, nil
}

// patchColumns renders the SET list and positional args for the fields in patch.
func patchColumns(p repository.MatchPatch) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	for _, f := range p.Fields() {
		switch f {
		case repository.FieldOpponent:
			add(string(f), *p.OpponentName)
		case repository.FieldStatus:
			add(string(f), string(*p.Status))
		case repository.FieldPeriod:
			add(string(f), int(*p.CurrentPeriod))
		case repository.FieldTimer:
			b, err := json.Marshal(*p.Timer)
			if err != nil {
				return nil, nil, fmt.Errorf("encode timer: %w", err)
			}
			add(string(f), b)
		case repository.FieldStatistics:
			b, err := json.Marshal(*p.Statistics)
			if err != nil {
				return nil, nil, fmt.Errorf("encode statistics: %w", err)
			}
			add(string(f), b)
		case repository.FieldEvents:
			b, err := encodeEvents(p.Events)
			if err != nil {
				return nil, nil, err
			}
			add(string(f), b)
		case repository.FieldLineup:
			b, err := encodeLineup(p.StartingXV)
			if err != nil {
				return nil, nil, err
			}
			add(string(f), b)
		case repository.FieldRoster:
			b, err := encodeRoster(p.Roster)
			if err != nil {
				return nil, nil, err
			}
			add(string(f), b)
		}
	}
	// an empty patch still bumps updated_at and notifies
	if len(sets) == 0 {
		sets = append(sets, "id = id")
	}
	return sets, args, nil
}

func scanMatch(row pgx.Row) (model.Match, error) {
	var (
		m                                         model.Match
		status                                    string
		period                                    int
		timer, statistics, events, lineup, roster []byte
	)
	err := row.Scan(&m.ID, &m.TeamID, &m.OpponentName, &m.ScheduledDate, &status, &period,
		&timer, &statistics, &events, &lineup, &roster, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Match{}, err
	}
	m.Status = model.MatchStatus(status)
	m.CurrentPeriod = model.Period(period)
	m.ScheduledDate = m.ScheduledDate.UTC()

	for _, doc := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"timer", timer, &m.Timer},
		{"statistics", statistics, &m.Statistics},
		{"events", events, &m.Events},
		{"starting_xv", lineup, &m.StartingXV},
		{"roster", roster, &m.Roster},
	} {
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return model.Match{}, fmt.Errorf("decode %s: %w", doc.name, err)
		}
	}
	return m, nil
}
