package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

// mutation computes the next aggregate from a private copy of the current one.
type mutation func(m model.Match, now time.Time) (model.Match, error)

// MatchController owns one match aggregate. Commands are serialised, applied
// to the in-memory copy first, published to observers and then written to
// the repository; a rejected write restores the previous snapshot.
type MatchController struct {
	mu        sync.Mutex
	match     model.Match
	repo      repository.MatchRepository
	now       func() time.Time
	newID     func() string
	observers map[uint64]Observer
	nextObs   uint64
	log       zerolog.Logger
}

// NewMatchController takes ownership of m, which must already be stored in repo.
func NewMatchController(m model.Match, repo repository.MatchRepository, logger zerolog.Logger, opts ...Option) *MatchController {
	o := applyOptions(opts)
	c := &MatchController{
		match:     m.Clone(),
		repo:      repo,
		now:       o.now,
		newID:     o.newID,
		observers: make(map[uint64]Observer),
		log: logger.With().
			Str("module", "service").
			Str("component", "match_controller").
			Str("match_id", m.ID).
			Logger(),
	}
	for _, obs := range o.observers {
		c.Observe(obs)
	}
	return c
}

// Observe registers fn for every published snapshot and returns its removal.
func (c *MatchController) Observe(fn Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *MatchController) publish(kind ChangeKind, op string, m model.Match) {
	for _, obs := range c.observers {
		obs(ChangeEvent{Kind: kind, Op: op, Match: m.Clone()})
	}
}

// apply is the single path every command takes: snapshot, mutate, publish,
// persist the listed fields, and on a rejected write restore and re-publish
// the snapshot before reporting PersistenceError.
func (c *MatchController) apply(ctx context.Context, op string, fn mutation, fields ...repository.Field) (model.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.match
	next, err := fn(before.Clone(), c.now().UTC())
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Msg("command rejected")
		return model.Match{}, err
	}

	c.match = next
	c.publish(ChangeApplied, op, next)

	if err := c.repo.Update(ctx, next.ID, repository.PatchFrom(next, fields...)); err != nil {
		c.match = before
		c.publish(ChangeReverted, op, before)
		c.log.Error().Err(err).Str("op", op).Msg("persist failed, reverted")
		return model.Match{}, &PersistenceError{Op: op, Err: err}
	}

	c.log.Debug().Str("op", op).Msg("command applied")
	return next.Clone(), nil
}

func requireActive(m model.Match) error {
	if m.Status == model.StatusCompleted || m.Status == model.StatusCancelled {
		return gameday.ErrMatchNotActive
	}
	return nil
}

func findPlayer(roster []model.Player, id string) (int, bool) {
	for i, p := range roster {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

// StartTimer starts the clock for the current period. The first start moves
// the match from scheduled to active.
func (c *MatchController) StartTimer(ctx context.Context) (model.Match, error) {
	return c.apply(ctx, "start_timer", func(m model.Match, now time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		if m.CurrentPeriod == model.HalfTime {
			return m, invalidField("current_period", "clock cannot run during half-time; end the break first")
		}
		t, err := gameday.StartTimer(m.Timer, now)
		if err != nil {
			return m, err
		}
		m.Timer = t
		if m.Status == model.StatusScheduled {
			m.Status = model.StatusActive
		}
		return m, nil
	}, repository.FieldTimer, repository.FieldStatus)
}

func (c *MatchController) PauseTimer(ctx context.Context) (model.Match, error) {
	return c.clockCommand(ctx, "pause_timer", gameday.PauseTimer)
}

func (c *MatchController) ResumeTimer(ctx context.Context) (model.Match, error) {
	return c.clockCommand(ctx, "resume_timer", gameday.ResumeTimer)
}

func (c *MatchController) clockCommand(ctx context.Context, op string, step func(model.Timer, time.Time) (model.Timer, error)) (model.Match, error) {
	return c.apply(ctx, op, func(m model.Match, now time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		t, err := step(m.Timer, now)
		if err != nil {
			return m, err
		}
		m.Timer = t
		return m, nil
	}, repository.FieldTimer)
}

// EndPeriod closes the current segment. Period 1 goes to half-time, half-time
// goes to period 2 and any later period n goes to n+1. Ending a playing
// period requires the clock to be running or paused.
func (c *MatchController) EndPeriod(ctx context.Context) (model.Match, error) {
	return c.apply(ctx, "end_period", func(m model.Match, now time.Time) (model.Match, error) {
		if m.Status != model.StatusActive {
			return m, gameday.ErrMatchNotActive
		}
		if m.CurrentPeriod == model.HalfTime {
			m.CurrentPeriod = 2
			return m, nil
		}
		t, err := gameday.StopTimer(m.Timer, now)
		if err != nil {
			return m, err
		}
		m.Timer = t
		if m.CurrentPeriod == 1 {
			m.CurrentPeriod = model.HalfTime
		} else {
			m.CurrentPeriod++
		}
		return m, nil
	}, repository.FieldTimer, repository.FieldPeriod)
}

// EndMatch stops a running or paused clock and completes the match.
func (c *MatchController) EndMatch(ctx context.Context) (model.Match, error) {
	return c.apply(ctx, "end_match", func(m model.Match, now time.Time) (model.Match, error) {
		if m.Status != model.StatusActive {
			return m, gameday.ErrMatchNotActive
		}
		if m.Timer.State != model.ClockStopped {
			t, err := gameday.StopTimer(m.Timer, now)
			if err != nil {
				return m, err
			}
			m.Timer = t
		}
		m.Status = model.StatusCompleted
		return m, nil
	}, repository.FieldTimer, repository.FieldStatus)
}

// CancelMatch abandons a scheduled or active match. Cancelled is terminal.
func (c *MatchController) CancelMatch(ctx context.Context) (model.Match, error) {
	return c.apply(ctx, "cancel_match", func(m model.Match, now time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		if m.Timer.State != model.ClockStopped {
			t, err := gameday.StopTimer(m.Timer, now)
			if err != nil {
				return m, err
			}
			m.Timer = t
		}
		m.Status = model.StatusCancelled
		return m, nil
	}, repository.FieldTimer, repository.FieldStatus)
}

// UpdateOpponent renames the opponent. Allowed in every status so results can be corrected.
func (c *MatchController) UpdateOpponent(ctx context.Context, name string) (model.Match, error) {
	name = strings.TrimSpace(name)
	return c.apply(ctx, "update_opponent", func(m model.Match, _ time.Time) (model.Match, error) {
		if name == "" {
			return m, invalidField("opponent_name", "must not be empty")
		}
		if len(name) > maxNameLen {
			return m, invalidField("opponent_name", "too long")
		}
		m.OpponentName = name
		return m, nil
	}, repository.FieldOpponent)
}

// RecordEvent appends one entry to the log. A player id must belong to the
// roster; the player name is filled from it when omitted.
func (c *MatchController) RecordEvent(ctx context.Context, in gameday.EventInput) (model.Match, model.EventRecord, error) {
	var rec model.EventRecord
	m, err := c.apply(ctx, "record_event", func(m model.Match, now time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		if in.PlayerID != "" {
			i, ok := findPlayer(m.Roster, in.PlayerID)
			if !ok {
				return m, gameday.ErrPlayerNotFound
			}
			if in.PlayerName == "" {
				in.PlayerName = m.Roster[i].FullName()
			}
		}
		next, r, err := gameday.RecordEvent(m, in, c.newID(), now)
		if err != nil {
			return m, err
		}
		rec = r
		return next, nil
	}, repository.FieldEvents, repository.FieldStatistics)
	if err != nil {
		return model.Match{}, model.EventRecord{}, err
	}
	return m, rec, nil
}

func (c *MatchController) TogglePossession(ctx context.Context, team model.Team) (model.Match, error) {
	return c.statsCommand(ctx, "toggle_possession", team, gameday.TogglePossession)
}

func (c *MatchController) ToggleTerritory(ctx context.Context, team model.Team) (model.Match, error) {
	return c.statsCommand(ctx, "toggle_territory", team, gameday.ToggleTerritory)
}

func (c *MatchController) IncrementError(ctx context.Context, team model.Team) (model.Match, error) {
	return c.statsCommand(ctx, "increment_error", team, gameday.IncrementErrors)
}

func (c *MatchController) IncrementPenalty(ctx context.Context, team model.Team) (model.Match, error) {
	return c.statsCommand(ctx, "increment_penalty", team, gameday.IncrementPenalties)
}

func (c *MatchController) IncrementTurnover(ctx context.Context, team model.Team) (model.Match, error) {
	return c.statsCommand(ctx, "increment_turnover", team, gameday.IncrementTurnovers)
}

func (c *MatchController) statsCommand(ctx context.Context, op string, team model.Team, step func(model.Statistics, model.Team) (model.Statistics, error)) (model.Match, error) {
	return c.apply(ctx, op, func(m model.Match, _ time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		s, err := step(m.Statistics, team)
		if err != nil {
			return m, err
		}
		m.Statistics = s
		return m, nil
	}, repository.FieldStatistics)
}

// AssignPlayer puts playerID at positionID. A player already in the lineup
// moves; the previous occupant of positionID leaves the lineup.
func (c *MatchController) AssignPlayer(ctx context.Context, positionID, playerID string) (model.Match, error) {
	return c.apply(ctx, "assign_player", func(m model.Match, _ time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		i, ok := findPlayer(m.Roster, playerID)
		if !ok {
			return m, gameday.ErrPlayerNotFound
		}
		lineup, displaced, err := gameday.Assign(m.StartingXV, positionID, playerID)
		if err != nil {
			return m, err
		}
		c.noteAssignment(m.Roster[i], positionID, displaced)
		m.StartingXV = lineup
		return m, nil
	}, repository.FieldLineup)
}

func (c *MatchController) noteAssignment(p model.Player, positionID, displaced string) {
	if p.Status != model.PlayerAvailable {
		c.log.Warn().Str("player_id", p.ID).Str("status", string(p.Status)).Str("position", positionID).
			Msg("assigned player is not available")
	}
	if displaced != "" {
		c.log.Info().Str("player_id", displaced).Str("position", positionID).Msg("player displaced from lineup")
	}
}

func (c *MatchController) RemovePlayer(ctx context.Context, positionID string) (model.Match, error) {
	return c.apply(ctx, "remove_player", func(m model.Match, _ time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		lineup, err := gameday.Remove(m.StartingXV, positionID)
		if err != nil {
			return m, err
		}
		m.StartingXV = lineup
		return m, nil
	}, repository.FieldLineup)
}

// QuickAssignNextPosition fills the first open slot with playerID and reports which slot it was.
func (c *MatchController) QuickAssignNextPosition(ctx context.Context, playerID string) (model.Match, model.Position, error) {
	var pos model.Position
	m, err := c.apply(ctx, "quick_assign", func(m model.Match, _ time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		i, ok := findPlayer(m.Roster, playerID)
		if !ok {
			return m, gameday.ErrPlayerNotFound
		}
		lineup, p, err := gameday.QuickAssign(m.StartingXV, playerID)
		if err != nil {
			return m, err
		}
		c.noteAssignment(m.Roster[i], p.ID, "")
		pos = p
		m.StartingXV = lineup
		return m, nil
	}, repository.FieldLineup)
	if err != nil {
		return model.Match{}, model.Position{}, err
	}
	return m, pos, nil
}

// SetPlayerStatus updates availability. Lineup slots are left alone; ranking
// picks the change up on the next query.
func (c *MatchController) SetPlayerStatus(ctx context.Context, playerID string, status model.PlayerStatus) (model.Match, error) {
	return c.apply(ctx, "set_player_status", func(m model.Match, _ time.Time) (model.Match, error) {
		if !validPlayerStatus(status) {
			return m, invalidField("status", "must be one of available|injured|absent")
		}
		i, ok := findPlayer(m.Roster, playerID)
		if !ok {
			return m, gameday.ErrPlayerNotFound
		}
		m.Roster[i].Status = status
		return m, nil
	}, repository.FieldRoster)
}

// AddRosterPlayer appends a player to the squad of a match that has not finished.
func (c *MatchController) AddRosterPlayer(ctx context.Context, in PlayerInput) (model.Match, model.Player, error) {
	var added model.Player
	m, err := c.apply(ctx, "add_roster_player", func(m model.Match, _ time.Time) (model.Match, error) {
		if err := requireActive(m); err != nil {
			return m, err
		}
		p, err := in.toPlayer(c.newID, "")
		if err != nil {
			return m, err
		}
		if _, dup := findPlayer(m.Roster, p.ID); dup {
			return m, invalidField("id", "player already on the roster")
		}
		m.Roster = append(m.Roster, p)
		added = p
		return m, nil
	}, repository.FieldRoster)
	if err != nil {
		return model.Match{}, model.Player{}, err
	}
	return m, added, nil
}

// Snapshot returns a copy of the current aggregate.
func (c *MatchController) Snapshot() model.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match.Clone()
}

// ElapsedTime evaluates the clock at the current instant without changing it.
func (c *MatchController) ElapsedTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gameday.Elapsed(c.match.Timer, c.now().UTC())
}

func (c *MatchController) NextUnfilledPosition() (model.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := gameday.NextUnfilledPosition(c.match.StartingXV)
	if !ok {
		return model.Position{}, gameday.ErrNoOpenPosition
	}
	return pos, nil
}

// RankedCandidates scores the unassigned roster against positionID. An empty
// positionID ranks against the next open slot.
func (c *MatchController) RankedCandidates(positionID string) (model.Position, []gameday.Candidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var (
		pos model.Position
		ok  bool
	)
	if positionID == "" {
		pos, ok = gameday.NextUnfilledPosition(c.match.StartingXV)
		if !ok {
			return model.Position{}, nil, gameday.ErrNoOpenPosition
		}
	} else if pos, ok = gameday.PositionByID(positionID); !ok {
		return model.Position{}, nil, gameday.ErrPositionNotFound
	}
	return pos, gameday.RankCandidates(c.match.Roster, c.match.StartingXV, pos), nil
}

func (c *MatchController) TotalPoints(team model.Team) (int, error) {
	if !gameday.ValidTeam(team) {
		return 0, gameday.ErrInvalidTeam
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return gameday.TotalPoints(c.match.Events, team), nil
}

func (c *MatchController) EventsForPeriod(p model.Period) []model.EventRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gameday.EventsForPeriod(c.match.Events, p)
}

// Option customises controllers and the service that builds them.
type Option func(*options)

type options struct {
	now       func() time.Time
	newID     func() string
	observers []Observer
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithIDGenerator replaces the uuid generator used for events and players.
func WithIDGenerator(newID func() string) Option { return func(o *options) { o.newID = newID } }

// WithObserver attaches obs to every controller.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
