package core

import (
	"sort"
	"strings"
)

// Waypoint is a named, static world-coordinate anchor (spec §3, GLOSSARY).
type Waypoint struct {
	CanonicalName string
	X, Y          float64
}

// WaypointTable is the static configuration of named landmarks plus a
// many-to-one alias map into canonical names (spec §3 "aliases form a
// many-to-one map"). It is immutable after construction, mirroring how
// the teacher's Workspace is treated as static scene configuration.
type WaypointTable struct {
	byName  map[string]Waypoint
	aliases map[string]string // lowercased alias -> canonical name
}

// NewWaypointTable builds a table from canonical waypoints and an alias
// map (lowercased alias -> canonical name). Both maps are copied; the
// table is safe to share read-only across robots/autopilots.
func NewWaypointTable(points []Waypoint, aliases map[string]string) *WaypointTable {
	t := &WaypointTable{
		byName:  make(map[string]Waypoint, len(points)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, p := range points {
		t.byName[strings.ToLower(p.CanonicalName)] = p
	}
	for alias, canon := range aliases {
		t.aliases[strings.ToLower(alias)] = canon
	}
	return t
}

// Resolve looks up a spoken/typed name: exact canonical match first, then
// exact alias match, then substring match against the longest alias,
// finally substring match against a waypoint name. Returns ok=false if
// nothing resolves.
func (t *WaypointTable) Resolve(spoken string) (Waypoint, bool) {
	s := strings.ToLower(strings.TrimSpace(spoken))
	if s == "" {
		return Waypoint{}, false
	}

	if wp, ok := t.byName[s]; ok {
		return wp, true
	}
	if canon, ok := t.aliases[s]; ok {
		if wp, ok := t.byName[strings.ToLower(canon)]; ok {
			return wp, true
		}
	}

	// Longest-alias substring match: prefer the most specific alias that
	// appears in the spoken text.
	bestAlias := ""
	var bestWP Waypoint
	found := false
	for alias, canon := range t.aliases {
		if strings.Contains(s, alias) && len(alias) > len(bestAlias) {
			if wp, ok := t.byName[strings.ToLower(canon)]; ok {
				bestAlias = alias
				bestWP = wp
				found = true
			}
		}
	}
	if found {
		return bestWP, true
	}

	// Waypoint-name substring match.
	bestName := ""
	found = false
	for name, wp := range t.byName {
		if strings.Contains(s, name) && len(name) > len(bestName) {
			bestName = name
			bestWP = wp
			found = true
		}
	}
	if found {
		return bestWP, true
	}

	return Waypoint{}, false
}

// All returns every canonical waypoint, in a stable order by name.
func (t *WaypointTable) All() []Waypoint {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Waypoint, 0, len(names))
	for _, name := range names {
		out = append(out, t.byName[name])
	}
	return out
}
