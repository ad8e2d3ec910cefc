package voice

import (
	"strings"
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// ParseSequence resolves a (possibly multi-step) transcript into an
// ordered CommandSequence (spec §4.5). Matching order: compound
// transport template, pickup-deliver template, conjunction split,
// falling back to a single parsed command. Returns ok=false only if
// nothing at all resolves.
func (p *Parser) ParseSequence(transcript string, now time.Time) (core.CommandSequence, bool) {
	text := normalize(transcript)

	if seq, ok := p.tryTransportTemplate(text, transcript, now); ok {
		return seq, true
	}
	if seq, ok := p.tryPickupDeliverTemplate(text, transcript, now); ok {
		return seq, true
	}
	if seq, ok := p.trySplitConjunctions(text, transcript, now); ok {
		return seq, true
	}
	if cmd, ok := p.Parse(transcript, now); ok {
		return core.CommandSequence{cmd}, true
	}
	return nil, false
}

// transportSequence builds the fixed NAVIGATE/GRAB/NAVIGATE/RELEASE
// expansion shared by the transport and pickup-deliver templates (spec
// §4.5 items 1-2).
func transportSequence(from, to core.Waypoint, raw string, now time.Time) core.CommandSequence {
	return core.CommandSequence{
		{Kind: core.KindDirectOverride, Action: core.CmdNavigate, Target: from.CanonicalName, RawText: raw, Confidence: 0.95, Timestamp: now},
		{Kind: core.KindDirectOverride, Action: core.CmdGrab, RawText: raw, Confidence: 0.95, Timestamp: now},
		{Kind: core.KindDirectOverride, Action: core.CmdNavigate, Target: to.CanonicalName, RawText: raw, Confidence: 0.95, Timestamp: now},
		{Kind: core.KindDirectOverride, Action: core.CmdRelease, RawText: raw, Confidence: 0.95, Timestamp: now},
	}
}

func (p *Parser) tryTransportTemplate(text, raw string, now time.Time) (core.CommandSequence, bool) {
	m := reTransport.FindStringSubmatch(text)
	if m == nil || !transportVerbs[m[1]] {
		return nil, false
	}
	from, ok := p.waypoints.Resolve(stripFillers(m[2]))
	if !ok {
		return nil, false
	}
	to, ok := p.waypoints.Resolve(stripFillers(m[3]))
	if !ok {
		return nil, false
	}
	return transportSequence(from, to, raw, now), true
}

func (p *Parser) tryPickupDeliverTemplate(text, raw string, now time.Time) (core.CommandSequence, bool) {
	m := rePickupDeliver.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	from, ok := p.waypoints.Resolve(stripFillers(m[1]))
	if !ok {
		return nil, false
	}
	to, ok := p.waypoints.Resolve(stripFillers(m[2]))
	if !ok {
		return nil, false
	}
	return transportSequence(from, to, raw, now), true
}

// trySplitConjunctions splits at every conjunction in the text and
// parses each fragment independently, dropping fragments that don't
// resolve (spec §4.5 item 3). Returns ok=false if no conjunction is
// present or every fragment fails to parse.
func (p *Parser) trySplitConjunctions(text, raw string, now time.Time) (core.CommandSequence, bool) {
	fragments, split := splitOnConjunctions(text)
	if !split {
		return nil, false
	}

	var out core.CommandSequence
	for _, frag := range fragments {
		if cmd, ok := p.parseSingle(frag, raw, now); ok {
			out = append(out, cmd)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// splitOnConjunctions scans for the first occurring conjunction (by
// position, then by longest match at that position) and splits
// recursively so a transcript with several joins yields every fragment.
func splitOnConjunctions(text string) ([]string, bool) {
	bestIdx, bestLen := -1, 0
	for _, conj := range conjunctions {
		needle := " " + conj + " "
		idx := strings.Index(text, needle)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(needle) > bestLen) {
			bestIdx, bestLen = idx, len(needle)
		}
	}
	if bestIdx < 0 {
		return nil, false
	}
	head := strings.TrimSpace(text[:bestIdx])
	tail := strings.TrimSpace(text[bestIdx+bestLen:])
	rest, _ := splitOnConjunctions(tail)
	if rest == nil {
		rest = []string{tail}
	}
	return append([]string{head}, rest...), true
}
