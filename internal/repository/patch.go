package repository

import "github.com/maxviazov/gameday-service/internal/model"

// Field names one replaceable part of the match aggregate.
type Field string

const (
	FieldOpponent   Field = "opponent_name"
	FieldStatus     Field = "status"
	FieldPeriod     Field = "current_period"
	FieldTimer      Field = "timer"
	FieldStatistics Field = "statistics"
	FieldEvents     Field = "events"
	FieldLineup     Field = "starting_xv"
	FieldRoster     Field = "roster"
)

// MatchPatch carries the fields to replace on Update. Nil means untouched.
type MatchPatch struct {
	OpponentName  *string
	Status        *model.MatchStatus
	CurrentPeriod *model.Period
	Timer         *model.Timer
	Statistics    *model.Statistics
	Events        []model.EventRecord
	StartingXV    model.Lineup
	Roster        []model.Player

	// set flags for the slice/map fields, where nil is a legal value
	setEvents, setLineup, setRoster bool
}

// PatchFrom copies the listed fields of m into a patch.
func PatchFrom(m model.Match, fields ...Field) MatchPatch {
	var p MatchPatch
	for _, f := range fields {
		switch f {
		case FieldOpponent:
			v := m.OpponentName
			p.OpponentName = &v
		case FieldStatus:
			v := m.Status
			p.Status = &v
		case FieldPeriod:
			v := m.CurrentPeriod
			p.CurrentPeriod = &v
		case FieldTimer:
			v := m.Timer
			p.Timer = &v
		case FieldStatistics:
			v := m.Statistics
			p.Statistics = &v
		case FieldEvents:
			p.Events, p.setEvents = m.Events, true
		case FieldLineup:
			p.StartingXV, p.setLineup = m.StartingXV, true
		case FieldRoster:
			p.Roster, p.setRoster = m.Roster, true
		}
	}
	return p
}

// HasEvents, HasLineup and HasRoster report whether the slice/map fields are part of the patch.
func (p MatchPatch) HasEvents() bool { return p.setEvents || p.Events != nil }
func (p MatchPatch) HasLineup() bool { return p.setLineup || p.StartingXV != nil }
func (p MatchPatch) HasRoster() bool { return p.setRoster || p.Roster != nil }

// Empty reports whether the patch changes nothing.
func (p MatchPatch) Empty() bool {
	return p.OpponentName == nil && p.Status == nil && p.CurrentPeriod == nil && p.Timer == nil &&
		p.Statistics == nil && !p.HasEvents() && !p.HasLineup() && !p.HasRoster()
}

// Apply returns m with the patch fields replaced.
func (p MatchPatch) Apply(m model.Match) model.Match {
	out := m.Clone()
	if p.OpponentName != nil {
		out.OpponentName = *p.OpponentName
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.CurrentPeriod != nil {
		out.CurrentPeriod = *p.CurrentPeriod
	}
	if p.Timer != nil {
		out.Timer = *p.Timer
	}
	if p.Statistics != nil {
		out.Statistics = *p.Statistics
	}
	if p.HasEvents() {
		out.Events = append([]model.EventRecord{}, p.Events...)
	}
	if p.HasLineup() {
		out.StartingXV = make(model.Lineup, len(p.StartingXV))
		for k, v := range p.StartingXV {
			out.StartingXV[k] = v
		}
	}
	if p.HasRoster() {
		out.Roster = append([]model.Player{}, p.Roster...)
	}
	return out.Clone()
}

// Fields lists the fields present in the patch, in a stable order.
func (p MatchPatch) Fields() []Field {
	var out []Field
	if p.OpponentName != nil {
		out = append(out, FieldOpponent)
	}
	if p.Status != nil {
		out = append(out, FieldStatus)
	}
	if p.CurrentPeriod != nil {
		out = append(out, FieldPeriod)
	}
	if p.Timer != nil {
		out = append(out, FieldTimer)
	}
	if p.Statistics != nil {
		out = append(out, FieldStatistics)
	}
	if p.HasEvents() {
		out = append(out, FieldEvents)
	}
	if p.HasLineup() {
		out = append(out, FieldLineup)
	}
	if p.HasRoster() {
		out = append(out, FieldRoster)
	}
	return out
}
