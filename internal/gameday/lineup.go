package gameday

import (
	"cmp"
	"slices"

	"github.com/maxviazov/gameday-service/internal/model"
)

// Candidate is a roster player scored against a target position.
type Candidate struct {
	Player model.Player `json:"player"`
	Score  int          `json:"score"`
}

// NextUnfilledPosition returns the first empty slot in jersey order.
// ok is false when all fifteen positions are filled.
func NextUnfilledPosition(lineup model.Lineup) (pos model.Position, ok bool) {
	for _, p := range positions {
		if lineup[p.ID] == "" {
			return p, true
		}
	}
	return model.Position{}, false
}

func statusRank(s model.PlayerStatus) int {
	switch s {
	case model.PlayerAvailable:
		return 0
	case model.PlayerInjured:
		return 1
	case model.PlayerAbsent:
		return 2
	default:
		return 3
	}
}

// compareCandidates orders by status, then score descending, then full name, then id.
func compareCandidates(a, b Candidate) int {
	if c := cmp.Compare(statusRank(a.Player.Status), statusRank(b.Player.Status)); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Player.FullName(), b.Player.FullName()); c != 0 {
		return c
	}
	return cmp.Compare(a.Player.ID, b.Player.ID)
}

// RankCandidates scores every roster player not already in the lineup against
// pos and returns them best first. Unavailable players are ranked, not removed.
func RankCandidates(roster []model.Player, lineup model.Lineup, pos model.Position) []Candidate {
	assigned := make(map[string]struct{}, len(lineup))
	for _, id := range lineup {
		assigned[id] = struct{}{}
	}
	out := make([]Candidate, 0, len(roster))
	for _, p := range roster {
		if _, taken := assigned[p.ID]; taken {
			continue
		}
		out = append(out, Candidate{Player: p, Score: RelevanceScore(p, pos)})
	}
	slices.SortStableFunc(out, compareCandidates)
	return out
}

// PositionOf returns the position currently held by playerID, if any.
func PositionOf(lineup model.Lineup, playerID string) (string, bool) {
	for pos, id := range lineup {
		if id == playerID {
			return pos, true
		}
	}
	return "", false
}

func copyLineup(lineup model.Lineup) model.Lineup {
	out := make(model.Lineup, len(lineup)+1)
	for k, v := range lineup {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Assign places playerID at positionID and returns a new lineup. A player
// already elsewhere in the lineup is moved; the previous occupant of
// positionID is dropped from the lineup and returned as displaced.
func Assign(lineup model.Lineup, positionID, playerID string) (next model.Lineup, displaced string, err error) {
	if _, ok := positionsByID[positionID]; !ok {
		return lineup, "", ErrPositionNotFound
	}
	if playerID == "" {
		return lineup, "", ErrPlayerNotFound
	}
	next = copyLineup(lineup)
	if from, ok := PositionOf(next, playerID); ok {
		delete(next, from)
	}
	if occupant := next[positionID]; occupant != "" && occupant != playerID {
		displaced = occupant
	}
	next[positionID] = playerID
	return next, displaced, nil
}

// Remove clears positionID. Other slots are untouched.
func Remove(lineup model.Lineup, positionID string) (model.Lineup, error) {
	if _, ok := positionsByID[positionID]; !ok {
		return lineup, ErrPositionNotFound
	}
	next := copyLineup(lineup)
	delete(next, positionID)
	return next, nil
}

// QuickAssign puts playerID into the next unfilled position.
func QuickAssign(lineup model.Lineup, playerID string) (model.Lineup, model.Position, error) {
	pos, ok := NextUnfilledPosition(lineup)
	if !ok {
		return lineup, model.Position{}, ErrNoOpenPosition
	}
	next, _, err := Assign(lineup, pos.ID, playerID)
	if err != nil {
		return lineup, model.Position{}, err
	}
	return next, pos, nil
}
