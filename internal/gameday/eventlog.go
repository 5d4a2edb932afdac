package gameday

import (
	"time"

	"github.com/maxviazov/gameday-service/internal/model"
)

var pointsTable = map[model.EventType]int{
	model.EventTry:         5,
	model.EventConversion:  2,
	model.EventPenaltyGoal: 3,
	model.EventDropGoal:    3,
}

// PointsFor returns the fixed value of an event type; non-scoring types are worth 0.
func PointsFor(typ model.EventType) int {
	return pointsTable[typ]
}

// IsScoring reports whether typ contributes to the score.
func IsScoring(typ model.EventType) bool {
	_, ok := pointsTable[typ]
	return ok
}

// ValidEventType reports whether typ is accepted by the log.
func ValidEventType(typ model.EventType) bool {
	switch typ {
	case model.EventTry, model.EventConversion, model.EventPenaltyGoal, model.EventDropGoal,
		model.EventCard, model.EventSubstitution, model.EventGenericTeamEvent:
		return true
	}
	return false
}

// EventInput is the payload of a new log entry.
type EventInput struct {
	Type       model.EventType
	Team       model.Team
	PlayerID   string
	PlayerName string
	Detail     string
}

// RecordEvent appends one entry to m's log and, for scoring types, bumps the
// matching statistics counter. m is not modified; the updated copy is returned
// together with the new record.
func RecordEvent(m model.Match, in EventInput, id string, now time.Time) (model.Match, model.EventRecord, error) {
	if !ValidEventType(in.Type) {
		return m, model.EventRecord{}, ErrInvalidEventType
	}
	if !ValidTeam(in.Team) {
		return m, model.EventRecord{}, ErrInvalidTeam
	}

	stats, err := applyScoring(m.Statistics, in.Type, in.Team)
	if err != nil {
		return m, model.EventRecord{}, err
	}

	// keep the log ordered by timestamp even if the wall clock steps back
	ts := now
	if n := len(m.Events); n > 0 && ts.Before(m.Events[n-1].Timestamp) {
		ts = m.Events[n-1].Timestamp
	}

	rec := model.EventRecord{
		ID:         id,
		Type:       in.Type,
		Timestamp:  ts,
		Period:     m.CurrentPeriod,
		Team:       in.Team,
		PlayerID:   in.PlayerID,
		PlayerName: in.PlayerName,
		Points:     PointsFor(in.Type),
		Detail:     in.Detail,
	}

	out := m
	out.Events = make([]model.EventRecord, len(m.Events), len(m.Events)+1)
	copy(out.Events, m.Events)
	out.Events = append(out.Events, rec)
	out.Statistics = stats
	return out, rec, nil
}

// EventsForPeriod returns the entries recorded during period p, in log order.
func EventsForPeriod(events []model.EventRecord, p model.Period) []model.EventRecord {
	out := make([]model.EventRecord, 0)
	for _, e := range events {
		if e.Period == p {
			out = append(out, e)
		}
	}
	return out
}

// TotalPoints sums the points of every entry belonging to team.
func TotalPoints(events []model.EventRecord, team model.Team) int {
	total := 0
	for _, e := range events {
		if e.Team == team {
			total += e.Points
		}
	}
	return total
}
