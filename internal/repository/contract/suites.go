// Package contract holds behavior suites every MatchRepository implementation must pass.
package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

// MatchFactory returns a fresh repository and its cleanup.
type MatchFactory func(t *testing.T) (repository.MatchRepository, func())

// PingerFactory returns a readiness probe and its cleanup.
type PingerFactory func(t *testing.T) (repository.Pinger, func())

// notifyWait bounds how long suites wait for asynchronous change notifications.
const notifyWait = 5 * time.Second

// SeedMatch builds a scheduled match the suites store.
func SeedMatch(teamID, opponent string, date time.Time) model.Match {
	return model.Match{
		TeamID:        teamID,
		OpponentName:  opponent,
		ScheduledDate: date,
		Status:        model.StatusScheduled,
		CurrentPeriod: 1,
		Timer:         model.Timer{State: model.ClockStopped},
		Events:        []model.EventRecord{},
		StartingXV:    model.Lineup{},
		Roster: []model.Player{
			{ID: "p1", FirstName: "Alice", LastName: "Smith", PreferredPositions: []string{"Prop", "Lock"}, Status: model.PlayerAvailable},
			{ID: "p2", FirstName: "Bob", LastName: "Jones", PreferredPositions: []string{"Flanker"}, Status: model.PlayerInjured},
		},
	}
}

func RunMatchRepositoryContract(t *testing.T, makeRepo MatchFactory) {
	t.Helper()
	kickoff := time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC)

	t.Run("create_and_get", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := repo.Create(ctx, SeedMatch("team-1", "Harlequins", kickoff))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID == "" {
			t.Fatalf("expected id to be assigned")
		}
		got, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.OpponentName != "Harlequins" || got.TeamID != "team-1" || len(got.Roster) != 2 {
			t.Fatalf("mismatch: %+v", got)
		}
		if !got.ScheduledDate.Equal(kickoff) || got.CurrentPeriod != 1 || got.Status != model.StatusScheduled {
			t.Fatalf("mismatch: %+v", got)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update_replaces_only_patched_fields", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := repo.Create(ctx, SeedMatch("team-1", "Saracens", kickoff))
		if err != nil {
			t.Fatalf("seed: %v", err)
		}

		m := created.Clone()
		m.Status = model.StatusActive
		m.Statistics.Possession = model.SideCount{Self: 1}
		m.StartingXV = model.Lineup{"loosehead-prop": "p1"}
		m.OpponentName = "should not be written"
		patch := repository.PatchFrom(m, repository.FieldStatus, repository.FieldStatistics, repository.FieldLineup)
		if err := repo.Update(ctx, created.ID, patch); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != model.StatusActive || got.Statistics.Possession.Self != 1 || got.StartingXV["loosehead-prop"] != "p1" {
			t.Fatalf("patch not applied: %+v", got)
		}
		if got.OpponentName != "Saracens" {
			t.Fatalf("unpatched field changed: %q", got.OpponentName)
		}
	})

	t.Run("update_period_and_events", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := repo.Create(ctx, SeedMatch("team-1", "Bath", kickoff))
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		m := created.Clone()
		m.CurrentPeriod = model.HalfTime
		m.Events = append(m.Events, model.EventRecord{ID: "e1", Type: model.EventTry, Team: model.TeamSelf, Points: 5, Period: 1, Timestamp: kickoff})
		if err := repo.Update(ctx, created.ID, repository.PatchFrom(m, repository.FieldPeriod, repository.FieldEvents)); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.CurrentPeriod != model.HalfTime || len(got.Events) != 1 || got.Events[0].Points != 5 {
			t.Fatalf("unexpected state: period=%v events=%+v", got.CurrentPeriod, got.Events)
		}
	})

	t.Run("update_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		status := model.StatusActive
		err := repo.Update(context.Background(), "00000000-0000-0000-0000-000000000000", repository.MatchPatch{Status: &status})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("subscribe_and_unsubscribe", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		created, err := repo.Create(ctx, SeedMatch("team-1", "Wasps", kickoff))
		if err != nil {
			t.Fatalf("seed: %v", err)
		}

		changes := make(chan model.Match, 8)
		unsubscribe, err := repo.Subscribe(ctx, created.ID, func(m model.Match) { changes <- m })
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}

		name := "Wasps RFC"
		if err := repo.Update(ctx, created.ID, repository.MatchPatch{OpponentName: &name}); err != nil {
			t.Fatalf("update: %v", err)
		}
		select {
		case m := <-changes:
			if m.ID != created.ID || m.OpponentName != name {
				t.Fatalf("unexpected change: %+v", m)
			}
		case <-time.After(notifyWait):
			t.Fatalf("no change notification received")
		}

		unsubscribe()
		unsubscribe()
		other := "Wasps Again"
		if err := repo.Update(ctx, created.ID, repository.MatchPatch{OpponentName: &other}); err != nil {
			t.Fatalf("update: %v", err)
		}
		select {
		case m := <-changes:
			t.Fatalf("change after unsubscribe: %+v", m)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("list_by_team", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		for i, opp := range []string{"Late", "Early", "Middle"} {
			date := kickoff.AddDate(0, 0, []int{14, 0, 7}[i])
			if _, err := repo.Create(ctx, SeedMatch("team-list", opp, date)); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		if _, err := repo.Create(ctx, SeedMatch("team-other", "Elsewhere", kickoff)); err != nil {
			t.Fatalf("seed: %v", err)
		}

		got, err := repo.ListByTeam(ctx, "team-list")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(got))
		}
		for i, want := range []string{"Early", "Middle", "Late"} {
			if got[i].OpponentName != want {
				t.Fatalf("position %d: want %s got %s", i, want, got[i].OpponentName)
			}
		}
		empty, err := repo.ListByTeam(ctx, "team-none")
		if err != nil || len(empty) != 0 {
			t.Fatalf("expected empty list, got %d (%v)", len(empty), err)
		}
	})
}

func RunPingerContract(t *testing.T, makePinger PingerFactory) {
	t.Helper()
	t.Run("ping", func(t *testing.T) {
		p, cleanup := makePinger(t)
		t.Cleanup(cleanup)
		if err := p.Ping(context.Background()); err != nil {
			t.Fatalf("ping failed: %v", err)
		}
	})
}
