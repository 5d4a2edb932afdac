package gameday

import "github.com/maxviazov/gameday-service/internal/model"

// ValidTeam reports whether team is one of the two sides.
func ValidTeam(team model.Team) bool {
	return team == model.TeamSelf || team == model.TeamOpponent
}

// toggle marks team as holding the indicator; the two sides are mutually exclusive.
func toggle(team model.Team) (model.SideCount, error) {
	switch team {
	case model.TeamSelf:
		return model.SideCount{Self: 1, Opponent: 0}, nil
	case model.TeamOpponent:
		return model.SideCount{Self: 0, Opponent: 1}, nil
	default:
		return model.SideCount{}, ErrInvalidTeam
	}
}

func increment(c model.SideCount, team model.Team) (model.SideCount, error) {
	switch team {
	case model.TeamSelf:
		c.Self++
	case model.TeamOpponent:
		c.Opponent++
	default:
		return c, ErrInvalidTeam
	}
	return c, nil
}

// TogglePossession gives possession to team.
func TogglePossession(s model.Statistics, team model.Team) (model.Statistics, error) {
	c, err := toggle(team)
	if err != nil {
		return s, err
	}
	s.Possession = c
	return s, nil
}

// ToggleTerritory gives territorial advantage to team.
func ToggleTerritory(s model.Statistics, team model.Team) (model.Statistics, error) {
	c, err := toggle(team)
	if err != nil {
		return s, err
	}
	s.Territory = c
	return s, nil
}

// IncrementErrors adds one to team's count of handling errors.
func IncrementErrors(s model.Statistics, team model.Team) (model.Statistics, error) {
	c, err := increment(s.Errors, team)
	if err != nil {
		return s, err
	}
	s.Errors = c
	return s, nil
}

// IncrementPenalties adds one to team's count of penalties conceded.
func IncrementPenalties(s model.Statistics, team model.Team) (model.Statistics, error) {
	c, err := increment(s.Penalties, team)
	if err != nil {
		return s, err
	}
	s.Penalties = c
	return s, nil
}

// IncrementTurnovers adds one to team's count of turnovers conceded.
func IncrementTurnovers(s model.Statistics, team model.Team) (model.Statistics, error) {
	c, err := increment(s.Turnovers, team)
	if err != nil {
		return s, err
	}
	s.Turnovers = c
	return s, nil
}

// applyScoring bumps the counter that matches a scoring event. Non-scoring types are ignored.
func applyScoring(s model.Statistics, typ model.EventType, team model.Team) (model.Statistics, error) {
	var err error
	switch typ {
	case model.EventTry:
		s.Tries, err = increment(s.Tries, team)
	case model.EventConversion:
		s.Conversions, err = increment(s.Conversions, team)
	case model.EventPenaltyGoal:
		s.PenaltyGoals, err = increment(s.PenaltyGoals, team)
	case model.EventDropGoal:
		s.DropGoals, err = increment(s.DropGoals, team)
	}
	return s, err
}

// ScoringFromEvents rebuilds the scoring counters from the log alone.
// Only tries, conversions, penalty goals and drop goals are populated.
func ScoringFromEvents(events []model.EventRecord) model.Statistics {
	var s model.Statistics
	for _, e := range events {
		if next, err := applyScoring(s, e.Type, e.Team); err == nil {
			s = next
		}
	}
	return s
}
