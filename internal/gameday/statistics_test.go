package gameday_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gameday-service/internal/gameday"
	"github.com/maxviazov/gameday-service/internal/model"
)

func TestToggles_MutuallyExclusive(t *testing.T) {
	sequences := [][]model.Team{
		{model.TeamSelf},
		{model.TeamOpponent},
		{model.TeamSelf, model.TeamSelf},
		{model.TeamSelf, model.TeamOpponent, model.TeamSelf},
		{model.TeamOpponent, model.TeamOpponent, model.TeamSelf, model.TeamOpponent},
	}
	for _, seq := range sequences {
		var s model.Statistics
		var err error
		for _, team := range seq {
			s, err = gameday.TogglePossession(s, team)
			require.NoError(t, err)
			s, err = gameday.ToggleTerritory(s, team)
			require.NoError(t, err)
		}
		last := seq[len(seq)-1]
		for _, c := range []model.SideCount{s.Possession, s.Territory} {
			assert.Equal(t, 1, c.Self+c.Opponent)
			if last == model.TeamSelf {
				assert.Equal(t, 1, c.Self)
			} else {
				assert.Equal(t, 1, c.Opponent)
			}
		}
	}
}

func TestIncrements(t *testing.T) {
	var s model.Statistics
	var err error
	for i := 0; i < 3; i++ {
		s, err = gameday.IncrementErrors(s, model.TeamSelf)
		require.NoError(t, err)
	}
	s, err = gameday.IncrementPenalties(s, model.TeamOpponent)
	require.NoError(t, err)
	s, err = gameday.IncrementTurnovers(s, model.TeamSelf)
	require.NoError(t, err)

	assert.Equal(t, model.SideCount{Self: 3}, s.Errors)
	assert.Equal(t, model.SideCount{Opponent: 1}, s.Penalties)
	assert.Equal(t, model.SideCount{Self: 1}, s.Turnovers)
	assert.Equal(t, model.SideCount{}, s.Tries, "scoring counters only move through the event log")
}

func TestStatistics_InvalidTeam(t *testing.T) {
	s := model.Statistics{Errors: model.SideCount{Self: 2}}
	out, err := gameday.IncrementErrors(s, "")
	assert.ErrorIs(t, err, gameday.ErrInvalidTeam)
	assert.Equal(t, s, out)
	_, err = gameday.TogglePossession(s, "both")
	assert.ErrorIs(t, err, gameday.ErrInvalidTeam)
}
