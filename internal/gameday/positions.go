package gameday

import (
	"strings"
	"unicode"

	"github.com/maxviazov/gameday-service/internal/model"
)

// positions is the fixed fifteen-slot table in jersey-number order.
// Aliases are stored normalised (see NormalizePosition).
var positions = []model.Position{
	{ID: "loosehead-prop", Name: "Loosehead Prop", Number: 1, Aliases: []string{"PROP", "LOOSEHEAD", "LOOSEHEADPROP", "LHP", "FRONTROW"}},
	{ID: "hooker", Name: "Hooker", Number: 2, Aliases: []string{"HOOKER", "HOOK", "FRONTROW"}},
	{ID: "tighthead-prop", Name: "Tighthead Prop", Number: 3, Aliases: []string{"PROP", "TIGHTHEAD", "TIGHTHEADPROP", "THP", "FRONTROW"}},
	{ID: "lock-4", Name: "Lock", Number: 4, Aliases: []string{"LOCK", "SECONDROW"}},
	{ID: "lock-5", Name: "Lock", Number: 5, Aliases: []string{"LOCK", "SECONDROW"}},
	{ID: "blindside-flanker", Name: "Blindside Flanker", Number: 6, Aliases: []string{"FLANKER", "FLANK", "BLINDSIDE", "BLINDSIDEFLANKER", "BACKROW"}},
	{ID: "openside-flanker", Name: "Openside Flanker", Number: 7, Aliases: []string{"FLANKER", "FLANK", "OPENSIDE", "OPENSIDEFLANKER", "BACKROW"}},
	{ID: "number-8", Name: "Number 8", Number: 8, Aliases: []string{"NUMBER8", "NUMBEREIGHT", "NO8", "EIGHTHMAN", "BACKROW"}},
	{ID: "scrum-half", Name: "Scrum-half", Number: 9, Aliases: []string{"SCRUMHALF", "HALFBACK"}},
	{ID: "fly-half", Name: "Fly-half", Number: 10, Aliases: []string{"FLYHALF", "OUTHALF", "STANDOFF", "FIRSTFIVE", "FIRSTFIVEEIGHTH"}},
	{ID: "left-wing", Name: "Left Wing", Number: 11, Aliases: []string{"WING", "WINGER", "LEFTWING", "OUTSIDEBACK"}},
	{ID: "inside-centre", Name: "Inside Centre", Number: 12, Aliases: []string{"CENTRE", "CENTER", "INSIDECENTRE", "INSIDECENTER", "SECONDFIVE"}},
	{ID: "outside-centre", Name: "Outside Centre", Number: 13, Aliases: []string{"CENTRE", "CENTER", "OUTSIDECENTRE", "OUTSIDECENTER"}},
	{ID: "right-wing", Name: "Right Wing", Number: 14, Aliases: []string{"WING", "WINGER", "RIGHTWING", "OUTSIDEBACK"}},
	{ID: "fullback", Name: "Fullback", Number: 15, Aliases: []string{"FULLBACK", "OUTSIDEBACK"}},
}

var positionsByID = func() map[string]model.Position {
	m := make(map[string]model.Position, len(positions))
	for _, p := range positions {
		m[p.ID] = p
	}
	return m
}()

// Positions returns the fifteen positions in ascending jersey order.
func Positions() []model.Position {
	out := make([]model.Position, len(positions))
	for i, p := range positions {
		p.Aliases = append([]string(nil), p.Aliases...)
		out[i] = p
	}
	return out
}

// PositionByID looks up a position by its id.
func PositionByID(id string) (model.Position, bool) {
	p, ok := positionsByID[id]
	return p, ok
}

// NormalizePosition strips whitespace and hyphens and upper-cases s.
func NormalizePosition(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// RelevanceScore rates how well player's stated preferences fit pos:
// 3 for a first-choice match, 2 for second, 1 for third, 0 for none.
// The highest-ranked overlapping preference wins.
func RelevanceScore(player model.Player, pos model.Position) int {
	for rank, pref := range player.PreferredPositions {
		if rank >= 3 {
			break
		}
		norm := NormalizePosition(pref)
		if norm == "" {
			continue
		}
		for _, alias := range pos.Aliases {
			if strings.Contains(alias, norm) || strings.Contains(norm, alias) {
				return 3 - rank
			}
		}
	}
	return 0
}
