// Package model contains domain entities used across layers.
// I keep it lean and focused on data shapes; match behavior lives in gameday.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusActive    MatchStatus = "active"
	StatusCompleted MatchStatus = "completed"
	StatusCancelled MatchStatus = "cancelled"
)

// Team identifies which side an event or counter belongs to.
type Team string

const (
	TeamSelf     Team = "self"
	TeamOpponent Team = "opponent"
)

// ClockState is the state of the match clock.
type ClockState string

const (
	ClockStopped ClockState = "stopped"
	ClockRunning ClockState = "running"
	ClockPaused  ClockState = "paused"
)

// PlayerStatus describes whether a player can be selected.
type PlayerStatus string

const (
	PlayerAvailable PlayerStatus = "available"
	PlayerInjured   PlayerStatus = "injured"
	PlayerAbsent    PlayerStatus = "absent"
)

// EventType enumerates the entries the event log accepts.
type EventType string

const (
	EventTry              EventType = "try"
	EventConversion       EventType = "conversion"
	EventPenaltyGoal      EventType = "penaltyGoal"
	EventDropGoal         EventType = "dropGoal"
	EventCard             EventType = "card"
	EventSubstitution     EventType = "substitution"
	EventGenericTeamEvent EventType = "genericTeamEvent"
)

// Period is a match segment. Positive values are playing periods, HalfTime is the break.
type Period int

// HalfTime is the sentinel period between the first and second half.
const HalfTime Period = 0

const halfTimeLabel = "half-time"

func (p Period) String() string {
	if p == HalfTime {
		return halfTimeLabel
	}
	return strconv.Itoa(int(p))
}

// MarshalJSON renders half-time as a string and playing periods as numbers.
func (p Period) MarshalJSON() ([]byte, error) {
	if p == HalfTime {
		return json.Marshal(halfTimeLabel)
	}
	return json.Marshal(int(p))
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		if label != halfTimeLabel {
			return fmt.Errorf("unknown period %q", label)
		}
		*p = HalfTime
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("period must be a positive number or %q: %w", halfTimeLabel, err)
	}
	if n <= 0 {
		return fmt.Errorf("period must be positive, got %d", n)
	}
	*p = Period(n)
	return nil
}

// Timer is the persisted clock state of a match.
type Timer struct {
	State       ClockState    `json:"state"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	PausedAt    *time.Time    `json:"paused_at,omitempty"`
	TotalPaused time.Duration `json:"total_paused"`
	LastElapsed time.Duration `json:"last_elapsed"`
}

// SideCount is a counter split by side.
type SideCount struct {
	Self     int `json:"self"`
	Opponent int `json:"opponent"`
}

// Statistics holds the running counters of a match.
type Statistics struct {
	Possession   SideCount `json:"possession"`
	Territory    SideCount `json:"territory"`
	Errors       SideCount `json:"errors"`
	Penalties    SideCount `json:"penalties"`
	Turnovers    SideCount `json:"turnovers"`
	Tries        SideCount `json:"tries"`
	Conversions  SideCount `json:"conversions"`
	PenaltyGoals SideCount `json:"penalty_goals"`
	DropGoals    SideCount `json:"drop_goals"`
}

// EventRecord is one immutable entry of the match event log.
type EventRecord struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Period     Period    `json:"period"`
	Team       Team      `json:"team"`
	PlayerID   string    `json:"player_id,omitempty"`
	PlayerName string    `json:"player_name,omitempty"`
	Points     int       `json:"points"`
	Detail     string    `json:"detail,omitempty"`
}

// Player is a squad member available for selection.
type Player struct {
	ID                 string       `json:"id"`
	FirstName          string       `json:"first_name"`
	LastName           string       `json:"last_name"`
	PreferredPositions []string     `json:"preferred_positions"`
	Status             PlayerStatus `json:"status"`
}

// FullName is used for display and as the deterministic ranking tie-break.
func (p Player) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Position is one of the fifteen fixed rugby positions.
type Position struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Number  int      `json:"number"`
	Aliases []string `json:"aliases"`
}

// Lineup maps position ids to player ids (the starting XV).
type Lineup map[string]string

// Match is the aggregate root for one fixture.
type Match struct {
	ID            string        `json:"id"`
	TeamID        string        `json:"team_id"`
	OpponentName  string        `json:"opponent_name"`
	ScheduledDate time.Time     `json:"scheduled_date"`
	Status        MatchStatus   `json:"status"`
	CurrentPeriod Period        `json:"current_period"`
	Timer         Timer         `json:"timer"`
	Statistics    Statistics    `json:"statistics"`
	Events        []EventRecord `json:"events"`
	StartingXV    Lineup        `json:"starting_xv"`
	Roster        []Player      `json:"roster"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (m Match) Clone() Match {
	out := m
	out.Timer = m.Timer.clone()
	out.Events = make([]EventRecord, len(m.Events))
	copy(out.Events, m.Events)
	out.StartingXV = make(Lineup, len(m.StartingXV))
	for k, v := range m.StartingXV {
		out.StartingXV[k] = v
	}
	out.Roster = make([]Player, len(m.Roster))
	for i, p := range m.Roster {
		p.PreferredPositions = append([]string(nil), p.PreferredPositions...)
		out.Roster[i] = p
	}
	return out
}

func (t Timer) clone() Timer {
	out := t
	if t.StartTime != nil {
		st := *t.StartTime
		out.StartTime = &st
	}
	if t.PausedAt != nil {
		pa := *t.PausedAt
		out.PausedAt = &pa
	}
	return out
}
