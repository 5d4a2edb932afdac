package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
	"github.com/maxviazov/gameday-service/internal/repository/memory"
	"github.com/maxviazov/gameday-service/internal/service"
)

var kickoff = time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func seqIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var errBoom = errors.New("disk on fire")

// flakyRepo rejects updates while failing is set.
type flakyRepo struct {
	*memory.MatchRepository
	mu      sync.Mutex
	failing bool
}

func (r *flakyRepo) setFailing(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = v
}

func (r *flakyRepo) Update(ctx context.Context, id string, patch repository.MatchPatch) error {
	r.mu.Lock()
	failing := r.failing
	r.mu.Unlock()
	if failing {
		return errBoom
	}
	return r.MatchRepository.Update(ctx, id, patch)
}

type fixture struct {
	clock *fakeClock
	repo  *flakyRepo
	svc   service.MatchService
	ctrl  *ctrlHandle
}

// ctrlHandle keeps the created match id next to its controller.
type ctrlHandle struct {
	*service.MatchController
	ID string
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	clock := &fakeClock{t: kickoff}
	repo := &flakyRepo{MatchRepository: memory.NewMatchRepository(zerolog.New(io.Discard))}
	opts = append([]service.Option{service.WithClock(clock.Now), service.WithIDGenerator(seqIDs("id"))}, opts...)
	svc := service.NewMatchService(repo, zerolog.New(io.Discard), opts...)

	m, err := svc.CreateMatch(context.Background(), service.CreateMatchInput{
		TeamID:        "team-1",
		OpponentName:  "Harlequins",
		ScheduledDate: kickoff,
		Roster: []service.PlayerInput{
			{ID: "alice", FirstName: "Alice", LastName: "Smith", PreferredPositions: []string{"Prop", "Lock"}},
			{ID: "bob", FirstName: "Bob", LastName: "Jones", PreferredPositions: []string{"Flanker"}, Status: model.PlayerInjured},
			{ID: "cara", FirstName: "Cara", LastName: "Lee", PreferredPositions: []string{"Scrum Half"}},
		},
	})
	require.NoError(t, err)
	ctrl, err := svc.Controller(context.Background(), m.ID)
	require.NoError(t, err)
	return &fixture{clock: clock, repo: repo, svc: svc, ctrl: &ctrlHandle{MatchController: ctrl, ID: m.ID}}
}

func (f *fixture) stored(t *testing.T) model.Match {
	t.Helper()
	m, err := f.repo.Get(context.Background(), f.ctrl.ID)
	require.NoError(t, err)
	return m
}

func TestMatchController_ClockLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.ctrl.StartTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, m.Status)
	assert.Equal(t, model.ClockRunning, m.Timer.State)

	f.clock.Advance(10 * time.Second)
	_, err = f.ctrl.PauseTimer(ctx)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)
	assert.Equal(t, 10*time.Second, f.ctrl.ElapsedTime(), "paused clock is frozen")

	_, err = f.ctrl.ResumeTimer(ctx)
	require.NoError(t, err)
	f.clock.Advance(20 * time.Second)
	assert.Equal(t, 30*time.Second, f.ctrl.ElapsedTime())

	stored := f.stored(t)
	assert.Equal(t, model.StatusActive, stored.Status)
	assert.Equal(t, 5*time.Second, stored.Timer.TotalPaused)
}

func TestMatchController_Periods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.EndPeriod(ctx)
	assert.ErrorIs(t, err, gameday.ErrMatchNotActive, "scheduled match has no period to end")

	_, err = f.ctrl.StartTimer(ctx)
	require.NoError(t, err)
	f.clock.Advance(40 * time.Minute)

	m, err := f.ctrl.EndPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.HalfTime, m.CurrentPeriod)
	assert.Equal(t, model.ClockStopped, m.Timer.State)
	assert.Equal(t, 40*time.Minute, f.ctrl.ElapsedTime())

	_, err = f.ctrl.StartTimer(ctx)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	require.Len(t, service.FieldErrors(err), 1)
	assert.Equal(t, "current_period", service.FieldErrors(err)[0].Field)

	m, err = f.ctrl.EndPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Period(2), m.CurrentPeriod)

	_, err = f.ctrl.EndPeriod(ctx)
	assert.ErrorIs(t, err, gameday.ErrInvalidTimerTransition, "clock must run before period 2 can end")

	_, err = f.ctrl.StartTimer(ctx)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, f.ctrl.ElapsedTime(), "each period measures from its own start")

	m, err = f.ctrl.EndPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Period(3), m.CurrentPeriod)
	assert.Equal(t, model.Period(3), f.stored(t).CurrentPeriod)
}

func TestMatchController_InvalidTransitionLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	before := f.ctrl.Snapshot()

	_, err := f.ctrl.PauseTimer(context.Background())
	var te *gameday.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.ClockStopped, te.From)
	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.Equal(t, model.ClockStopped, f.stored(t).Timer.State)
}

func TestMatchController_EndAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("end", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ctrl.EndMatch(ctx)
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)

		_, err = f.ctrl.StartTimer(ctx)
		require.NoError(t, err)
		f.clock.Advance(80 * time.Minute)
		m, err := f.ctrl.EndMatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, m.Status)
		assert.Equal(t, model.ClockStopped, m.Timer.State)

		_, err = f.ctrl.StartTimer(ctx)
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)
		_, _, err = f.ctrl.RecordEvent(ctx, gameday.EventInput{Type: model.EventTry, Team: model.TeamSelf})
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)
		_, err = f.ctrl.TogglePossession(ctx, model.TeamSelf)
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)
		_, err = f.ctrl.AssignPlayer(ctx, "hooker", "alice")
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)
		_, err = f.ctrl.CancelMatch(ctx)
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)

		// corrections stay possible after the final whistle
		_, err = f.ctrl.UpdateOpponent(ctx, "Harlequin FC")
		require.NoError(t, err)
		_, err = f.ctrl.SetPlayerStatus(ctx, "bob", model.PlayerAvailable)
		require.NoError(t, err)
		assert.Equal(t, "Harlequin FC", f.stored(t).OpponentName)
	})

	t.Run("cancel", func(t *testing.T) {
		f := newFixture(t)
		m, err := f.ctrl.CancelMatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, m.Status)
		_, err = f.ctrl.StartTimer(ctx)
		assert.ErrorIs(t, err, gameday.ErrMatchNotActive)
	})
}

func TestMatchController_RecordEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ctrl.StartTimer(ctx)
	require.NoError(t, err)

	_, rec, err := f.ctrl.RecordEvent(ctx, gameday.EventInput{Type: model.EventTry, Team: model.TeamSelf, PlayerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", rec.PlayerName)
	assert.Equal(t, 5, rec.Points)
	assert.Equal(t, model.Period(1), rec.Period)

	m, _, err := f.ctrl.RecordEvent(ctx, gameday.EventInput{Type: model.EventConversion, Team: model.TeamSelf})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Statistics.Tries.Self)
	assert.Equal(t, 1, m.Statistics.Conversions.Self)

	self, err := f.ctrl.TotalPoints(model.TeamSelf)
	require.NoError(t, err)
	assert.Equal(t, 7, self)
	opp, err := f.ctrl.TotalPoints(model.TeamOpponent)
	require.NoError(t, err)
	assert.Zero(t, opp)
	_, err = f.ctrl.TotalPoints("referee")
	assert.ErrorIs(t, err, gameday.ErrInvalidTeam)

	_, _, err = f.ctrl.RecordEvent(ctx, gameday.EventInput{Type: model.EventTry, Team: model.TeamSelf, PlayerID: "ghost"})
	assert.ErrorIs(t, err, gameday.ErrPlayerNotFound)
	_, _, err = f.ctrl.RecordEvent(ctx, gameday.EventInput{Type: "haka", Team: model.TeamSelf})
	assert.ErrorIs(t, err, gameday.ErrInvalidEventType)

	stored := f.stored(t)
	require.Len(t, stored.Events, 2)
	assert.Equal(t, "id-1", stored.Events[0].ID, "ids come from the injected generator")
	assert.Equal(t, 1, stored.Statistics.Conversions.Self)
	assert.Len(t, f.ctrl.EventsForPeriod(1), 2)
	assert.Empty(t, f.ctrl.EventsForPeriod(2))
}

func TestMatchController_StatsCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.ctrl.TogglePossession(ctx, model.TeamOpponent)
	require.NoError(t, err)
	assert.Equal(t, model.SideCount{Opponent: 1}, m.Statistics.Possession)
	m, err = f.ctrl.ToggleTerritory(ctx, model.TeamSelf)
	require.NoError(t, err)
	assert.Equal(t, model.SideCount{Self: 1}, m.Statistics.Territory)

	for i := 0; i < 3; i++ {
		_, err = f.ctrl.IncrementError(ctx, model.TeamSelf)
		require.NoError(t, err)
	}
	_, err = f.ctrl.IncrementPenalty(ctx, model.TeamOpponent)
	require.NoError(t, err)
	m, err = f.ctrl.IncrementTurnover(ctx, model.TeamOpponent)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Statistics.Errors.Self)
	assert.Equal(t, 1, m.Statistics.Penalties.Opponent)
	assert.Equal(t, 1, m.Statistics.Turnovers.Opponent)
	assert.Equal(t, m.Statistics, f.stored(t).Statistics)

	_, err = f.ctrl.IncrementError(ctx, "")
	assert.ErrorIs(t, err, gameday.ErrInvalidTeam)
}

func TestMatchController_RevertsOnPersistenceFailure(t *testing.T) {
	var (
		mu     sync.Mutex
		events []service.ChangeEvent
	)
	f := newFixture(t, service.WithObserver(func(ev service.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}))
	ctx := context.Background()
	_, err := f.ctrl.StartTimer(ctx)
	require.NoError(t, err)

	before := f.ctrl.Snapshot()
	f.repo.setFailing(true)

	_, err = f.ctrl.TogglePossession(ctx, model.TeamSelf)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPersistenceFailure)
	assert.ErrorIs(t, err, errBoom)
	var pe *service.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "toggle_possession", pe.Op)
	assert.Equal(t, before, f.ctrl.Snapshot())

	_, _, err = f.ctrl.RecordEvent(ctx, gameday.EventInput{Type: model.EventTry, Team: model.TeamSelf})
	assert.ErrorIs(t, err, service.ErrPersistenceFailure)
	assert.Empty(t, f.ctrl.Snapshot().Events)
	assert.Zero(t, f.ctrl.Snapshot().Statistics.Tries.Self)

	_, err = f.ctrl.AssignPlayer(ctx, "hooker", "alice")
	assert.ErrorIs(t, err, service.ErrPersistenceFailure)
	assert.Empty(t, f.ctrl.Snapshot().StartingXV)

	mu.Lock()
	got := append([]service.ChangeEvent(nil), events...)
	mu.Unlock()
	// start, then an applied/reverted pair per failed command
	require.Len(t, got, 7)
	assert.Equal(t, service.ChangeApplied, got[1].Kind)
	assert.Equal(t, model.SideCount{Self: 1}, got[1].Match.Statistics.Possession)
	assert.Equal(t, service.ChangeReverted, got[2].Kind)
	assert.Equal(t, model.SideCount{}, got[2].Match.Statistics.Possession)

	f.repo.setFailing(false)
	m, err := f.ctrl.TogglePossession(ctx, model.TeamSelf)
	require.NoError(t, err, "retry succeeds once storage recovers")
	assert.Equal(t, model.SideCount{Self: 1}, m.Statistics.Possession)
}

func TestMatchController_Lineup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pos, cands, err := f.ctrl.RankedCandidates("")
	require.NoError(t, err)
	assert.Equal(t, "loosehead-prop", pos.ID)
	require.Len(t, cands, 3)
	assert.Equal(t, "alice", cands[0].Player.ID)
	assert.Equal(t, 3, cands[0].Score)
	assert.Equal(t, "bob", cands[2].Player.ID, "injured players sort after available ones")

	m, p, err := f.ctrl.QuickAssignNextPosition(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "loosehead-prop", p.ID)
	assert.Equal(t, "alice", m.StartingXV["loosehead-prop"])

	next, err := f.ctrl.NextUnfilledPosition()
	require.NoError(t, err)
	assert.Equal(t, "hooker", next.ID)

	m, err = f.ctrl.AssignPlayer(ctx, "scrum-half", "cara")
	require.NoError(t, err)
	assert.Equal(t, "cara", m.StartingXV["scrum-half"])

	// moving alice onto cara's slot displaces cara and empties alice's old slot
	m, err = f.ctrl.AssignPlayer(ctx, "scrum-half", "alice")
	require.NoError(t, err)
	assert.Equal(t, model.Lineup{"scrum-half": "alice"}, m.StartingXV)

	_, err = f.ctrl.AssignPlayer(ctx, "goalkeeper", "cara")
	assert.ErrorIs(t, err, gameday.ErrPositionNotFound)
	_, err = f.ctrl.AssignPlayer(ctx, "hooker", "ghost")
	assert.ErrorIs(t, err, gameday.ErrPlayerNotFound)
	_, _, err = f.ctrl.RankedCandidates("goalkeeper")
	assert.ErrorIs(t, err, gameday.ErrPositionNotFound)

	m, err = f.ctrl.RemovePlayer(ctx, "scrum-half")
	require.NoError(t, err)
	assert.Empty(t, m.StartingXV)
	assert.Empty(t, f.stored(t).StartingXV)
}

func TestMatchController_FullLineup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range gameday.Positions() {
		_, _, err := f.ctrl.AddRosterPlayer(ctx, service.PlayerInput{
			ID:        fmt.Sprintf("extra-%02d", i),
			FirstName: "Extra",
			LastName:  fmt.Sprintf("%02d", i),
		})
		require.NoError(t, err)
		_, _, err = f.ctrl.QuickAssignNextPosition(ctx, fmt.Sprintf("extra-%02d", i))
		require.NoError(t, err)
	}

	_, err := f.ctrl.NextUnfilledPosition()
	assert.ErrorIs(t, err, gameday.ErrNoOpenPosition)
	_, _, err = f.ctrl.QuickAssignNextPosition(ctx, "alice")
	assert.ErrorIs(t, err, gameday.ErrNoOpenPosition)
	_, _, err = f.ctrl.RankedCandidates("")
	assert.ErrorIs(t, err, gameday.ErrNoOpenPosition)
	assert.Len(t, f.stored(t).StartingXV, 15)
}

func TestMatchController_Roster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, p, err := f.ctrl.AddRosterPlayer(ctx, service.PlayerInput{FirstName: " Dan ", LastName: "Cole", PreferredPositions: []string{"Tighthead", " "}})
	require.NoError(t, err)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "Dan", p.FirstName)
	assert.Equal(t, []string{"Tighthead"}, p.PreferredPositions)
	assert.Equal(t, model.PlayerAvailable, p.Status)
	assert.Len(t, m.Roster, 4)

	_, _, err = f.ctrl.AddRosterPlayer(ctx, service.PlayerInput{ID: "alice", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, _, err = f.ctrl.AddRosterPlayer(ctx, service.PlayerInput{FirstName: ""})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Len(t, service.FieldErrors(err), 2)

	m, err = f.ctrl.SetPlayerStatus(ctx, "alice", model.PlayerAbsent)
	require.NoError(t, err)
	assert.Equal(t, model.PlayerAbsent, m.Roster[0].Status)
	_, err = f.ctrl.SetPlayerStatus(ctx, "alice", "retired")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = f.ctrl.SetPlayerStatus(ctx, "ghost", model.PlayerInjured)
	assert.ErrorIs(t, err, gameday.ErrPlayerNotFound)

	_, cands, err := f.ctrl.RankedCandidates("loosehead-prop")
	require.NoError(t, err)
	assert.Equal(t, "alice", cands[len(cands)-1].Player.ID, "absent players rank last")
}

func TestMatchController_RepositorySubscribersSeeCommittedChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	changes := make(chan model.Match, 4)
	unsubscribe, err := f.repo.Subscribe(ctx, f.ctrl.ID, func(m model.Match) { changes <- m })
	require.NoError(t, err)
	defer unsubscribe()

	_, err = f.ctrl.UpdateOpponent(ctx, "  Bath Rugby ")
	require.NoError(t, err)
	select {
	case m := <-changes:
		assert.Equal(t, "Bath Rugby", m.OpponentName)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	_, err = f.ctrl.UpdateOpponent(ctx, "   ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
