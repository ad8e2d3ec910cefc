// Package voice implements the CommandParser: transcript text to
// ParsedCommand/CommandSequence (spec §4.5). There is no NL/parsing
// library anywhere in the retrieved example pack, so this package is
// built directly on stdlib regexp/strings in the teacher's idiom (small
// pure functions, explicit ok-bool returns, no panics) rather than
// adopting a library with no in-corpus precedent.
package voice

import (
	"regexp"
	"strings"
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

var (
	reTransport     = regexp.MustCompile(`^(?:please\s+)?(take|bring|carry|fetch|move|deliver|transport)\s+(.+?)\s+to\s+(.+)$`)
	rePickupDeliver = regexp.MustCompile(`^pick\s+up\s+(.+?)\s+(?:and\s+)?(?:then\s+)?(?:bring|take|carry|deliver)\s+(?:it\s+)?to\s+(.+)$`)
	reNav           = regexp.MustCompile(`^(?:please\s+)?(?:walk|go|navigate|move|head|drive|take me|bring me)\s+(?:to\s+)?(.+)$`)
	reSetGear       = regexp.MustCompile(`^(?:shift|set)\s+gear(?:\s+to)?(?:\s+(\w+))?$`)
	reRobotID       = regexp.MustCompile(`\brobot[\s-]?(\w+)\b`)
	reZone          = regexp.MustCompile(`\bzone\s+(\w+)\b`)
)

var leadingFillers = []string{"the", "box", "from", "at", "near", "it"}

// Parser turns operator speech/text into structured commands against a
// fixed set of known landmarks and robot addresses (spec §4.5). It holds
// no mutable state and is safe for concurrent use.
type Parser struct {
	waypoints *core.WaypointTable
	robots    map[string]core.RobotID // lowercased name/alias -> robot id
}

// New creates a Parser bound to the scene's landmark table and an
// optional robot-addressing table (lowercased name -> id), used by the
// automated template (spec §4.5 item 6).
func New(waypoints *core.WaypointTable, robots map[string]core.RobotID) *Parser {
	return &Parser{waypoints: waypoints, robots: robots}
}

// Parse resolves a single-step command (spec §4.5 items 4-6). It never
// raises; an unresolved transcript returns ok=false.
func (p *Parser) Parse(transcript string, now time.Time) (core.ParsedCommand, bool) {
	return p.parseSingle(normalize(transcript), transcript, now)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func stripFillers(s string) string {
	for {
		trimmed := strings.TrimSpace(s)
		changed := false
		for _, f := range leadingFillers {
			if trimmed == f {
				continue
			}
			if strings.HasPrefix(trimmed, f+" ") {
				trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, f+" "))
				changed = true
			}
		}
		s = trimmed
		if !changed {
			return s
		}
	}
}

// parseSingle tries, in order: landmark-navigation, direct override,
// automated template (spec §4.5 items 4-6).
func (p *Parser) parseSingle(text, raw string, now time.Time) (core.ParsedCommand, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.ParsedCommand{}, false
	}

	if cmd, ok := p.tryNav(text, raw, now); ok {
		return cmd, true
	}
	if cmd, ok := p.tryDirectOverride(text, raw, now); ok {
		return cmd, true
	}
	if cmd, ok := p.tryAutomated(text, raw, now); ok {
		return cmd, true
	}
	return core.ParsedCommand{}, false
}

func (p *Parser) tryNav(text, raw string, now time.Time) (core.ParsedCommand, bool) {
	m := reNav.FindStringSubmatch(text)
	if m == nil {
		return core.ParsedCommand{}, false
	}
	wp, ok := p.waypoints.Resolve(stripFillers(m[1]))
	if !ok {
		return core.ParsedCommand{}, false
	}
	return core.ParsedCommand{
		Kind:       core.KindDirectOverride,
		Action:     core.CmdNavigate,
		Target:     wp.CanonicalName,
		RawText:    raw,
		Confidence: 0.9,
		Timestamp:  now,
	}, true
}

// tryDirectOverride checks the fixed keyword table (spec §4.5 item 5) in
// table order, so "emergency stop" beats "stop". "shift gear" with no
// gear name yields SHIFT_GEAR; "shift/set gear <name>" yields SET_GEAR.
func (p *Parser) tryDirectOverride(text, raw string, now time.Time) (core.ParsedCommand, bool) {
	if m := reSetGear.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if name == "" {
			return core.ParsedCommand{
				Kind:       core.KindDirectOverride,
				Action:     core.CmdShiftGear,
				RawText:    raw,
				Confidence: 1.0,
				Timestamp:  now,
			}, true
		}
		gear, ok := gearNames[name]
		if !ok {
			return core.ParsedCommand{}, false
		}
		return core.ParsedCommand{
			Kind:       core.KindDirectOverride,
			Action:     core.CmdSetGear,
			Gear:       gear,
			RawText:    raw,
			Confidence: 1.0,
			Timestamp:  now,
		}, true
	}

	for _, entry := range directOverrides {
		if strings.Contains(text, entry.phrase) {
			return core.ParsedCommand{
				Kind:       core.KindDirectOverride,
				Action:     entry.action,
				RawText:    raw,
				Confidence: 1.0,
				Timestamp:  now,
			}, true
		}
	}
	return core.ParsedCommand{}, false
}

// tryAutomated requires a robot-id or zone token plus a recognized verb
// (spec §4.5 item 6). If both an item and a target landmark are present
// the resolved action is TRANSPORT.
func (p *Parser) tryAutomated(text, raw string, now time.Time) (core.ParsedCommand, bool) {
	robotID := ""
	if m := reRobotID.FindStringSubmatch(text); m != nil {
		if id, ok := p.robots[strings.ToLower(m[1])]; ok {
			robotID = string(id)
		} else {
			robotID = m[1]
		}
	}
	zone := ""
	if m := reZone.FindStringSubmatch(text); m != nil {
		zone = m[1]
	}
	if robotID == "" && zone == "" {
		return core.ParsedCommand{}, false
	}

	item := ""
	for _, w := range []string{"box", "item", "package"} {
		if strings.Contains(text, w) {
			item = w
			break
		}
	}
	hasItem := item != ""

	var target string
	var action core.CommandAction
	switch {
	case strings.Contains(text, "transport") || strings.Contains(text, "deliver"):
		action = core.CmdTransport
	case strings.Contains(text, "pick") || strings.Contains(text, "grab"):
		action = core.CmdGrab
	case strings.Contains(text, "navigate") || strings.Contains(text, "go") || strings.Contains(text, "move"):
		action = core.CmdNavigate
	default:
		return core.ParsedCommand{}, false
	}

	if wp, ok := p.resolveAnyLandmark(text); ok {
		target = wp.CanonicalName
		if hasItem {
			action = core.CmdTransport
		}
	}

	return core.ParsedCommand{
		Kind:       core.KindAutomated,
		Action:     action,
		RobotID:    robotID,
		Target:     target,
		Item:       item,
		RawText:    raw,
		Confidence: 0.7,
		Timestamp:  now,
	}, true
}

// resolveAnyLandmark scans canonical waypoint names (not aliases) for
// the longest one appearing in text, used by the automated template which has no fixed
// "to <X>" anchor to lean on.
func (p *Parser) resolveAnyLandmark(text string) (core.Waypoint, bool) {
	best := core.Waypoint{}
	found := false
	for _, wp := range p.waypoints.All() {
		if strings.Contains(text, strings.ToLower(wp.CanonicalName)) {
			if !found || len(wp.CanonicalName) > len(best.CanonicalName) {
				best = wp
				found = true
			}
		}
	}
	return best, found
}
