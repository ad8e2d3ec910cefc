// Package gesture converts a per-tick brain-class stream into discrete,
// edge-triggered gesture events (spec §4.3).
package gesture

import (
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// internalState mirrors the recognizer's four states (spec §4.3), named
// with an unexported phase field the way the teacher's
// internal/vis/state/playback.go tracks a single explicit phase driving
// per-tick advancement.
type internalState int

const (
	stateIdle internalState = iota
	stateHolding
	stateAwaitingSelect
	stateAwaitingReclench
)

// Thresholds holds the recognizer's timing configuration (spec §4.3).
type Thresholds struct {
	QuickMax       time.Duration
	LongThreshold  time.Duration
	DoubleWindow   time.Duration
	SelectWindow   time.Duration
	ReclenchWindow time.Duration
}

// DefaultThresholds returns the spec's indicative defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		QuickMax:       1500 * time.Millisecond,
		LongThreshold:  4000 * time.Millisecond,
		DoubleWindow:   1000 * time.Millisecond,
		SelectWindow:   1500 * time.Millisecond,
		ReclenchWindow: 1500 * time.Millisecond,
	}
}

// Recognizer is pure state plus a wall clock supplied externally (spec
// §4.3 invariants): every method takes `now` rather than calling
// time.Now() itself, so it is deterministic and testable tick-by-tick.
type Recognizer struct {
	th Thresholds

	state internalState

	// Active hold bookkeeping.
	holdClass core.BrainClass
	holdStart time.Time

	// Pending-quick bookkeeping for DOUBLE_CLENCH detection.
	pendingQuickClass core.BrainClass
	pendingQuickAt    time.Time
	hasPendingQuick   bool

	// AWAITING_SELECT / AWAITING_RECLENCH bookkeeping.
	awaitStart      time.Time
	selectDirection core.SelectDirection
}

// New creates a Recognizer with the given thresholds.
func New(th Thresholds) *Recognizer {
	return &Recognizer{th: th, state: stateIdle}
}

// Reset returns the recognizer to its initial state (spec §5 full_reset).
func (r *Recognizer) Reset() {
	*r = Recognizer{th: r.th, state: stateIdle}
}

// Tick feeds one tick's class label (core.ClassNone/"" for no signal) and
// returns at most one completed GestureEvent (spec §4.3 invariant: "at
// most one event per tick").
func (r *Recognizer) Tick(now time.Time, class core.BrainClass) (core.GestureEvent, bool) {
	class = core.NormalizeBrainClass(string(class))

	switch r.state {
	case stateAwaitingSelect:
		if ev, ok := r.tickAwaitingSelect(now, class); ok {
			return ev, true
		}
		return core.GestureEvent{}, false

	case stateAwaitingReclench:
		if ev, ok := r.tickAwaitingReclench(now, class); ok {
			return ev, true
		}
		return core.GestureEvent{}, false

	case stateHolding:
		return r.tickHolding(now, class)

	default: // stateIdle
		return r.tickIdle(now, class)
	}
}

func (r *Recognizer) tickIdle(now time.Time, class core.BrainClass) (core.GestureEvent, bool) {
	if class.IsActive() {
		r.beginHold(now, class)
	}
	return core.GestureEvent{}, false
}

func (r *Recognizer) beginHold(now time.Time, class core.BrainClass) {
	r.state = stateHolding
	r.holdClass = class
	r.holdStart = now
}

// tickHolding advances an in-progress hold. A mid-hold class change is
// treated as release-then-begin-new-hold: the first hold is emitted per
// its observed duration, then a new hold begins immediately (spec §4.3
// "Mid-hold class change").
func (r *Recognizer) tickHolding(now time.Time, class core.BrainClass) (core.GestureEvent, bool) {
	if class == r.holdClass {
		return core.GestureEvent{}, false // still held, no edge yet
	}

	duration := now.Sub(r.holdStart)
	releasedClass := r.holdClass
	ev, emitted := r.completeHold(now, releasedClass, duration)
	if r.state == stateAwaitingSelect {
		return ev, emitted
	}

	if class.IsActive() {
		r.beginHold(now, class)
	} else {
		r.state = stateIdle
	}

	return ev, emitted
}

// completeHold classifies a completed hold by duration and emits the
// resulting gesture, or transitions into AWAITING_SELECT for a long
// BothFists hold (spec §4.3).
func (r *Recognizer) completeHold(now time.Time, class core.BrainClass, duration time.Duration) (core.GestureEvent, bool) {
	switch {
	case duration < r.th.QuickMax:
		return r.completeQuickClench(now, class, duration)

	case duration < r.th.LongThreshold:
		r.state = stateIdle
		return core.GestureEvent{Type: core.GestureHoldMedium, BrainClass: class, Duration: duration}, true

	default: // HOLD_LONG
		if class == core.ClassBothFists {
			r.state = stateAwaitingSelect
			r.awaitStart = now
			return core.GestureEvent{}, false
		}
		r.state = stateIdle
		return core.GestureEvent{Type: core.GestureHoldLong, BrainClass: class, Duration: duration}, true
	}
}

// completeQuickClench applies DOUBLE_CLENCH coalescing: two same-class
// QUICK_CLENCHes within DoubleWindow become one DOUBLE_CLENCH (spec
// §4.3, §8 invariant 7).
func (r *Recognizer) completeQuickClench(now time.Time, class core.BrainClass, duration time.Duration) (core.GestureEvent, bool) {
	r.state = stateIdle

	if r.hasPendingQuick && r.pendingQuickClass == class && now.Sub(r.pendingQuickAt) < r.th.DoubleWindow {
		r.hasPendingQuick = false
		return core.GestureEvent{Type: core.GestureDoubleClench, BrainClass: class, Duration: duration}, true
	}

	r.hasPendingQuick = true
	r.pendingQuickClass = class
	r.pendingQuickAt = now
	return core.GestureEvent{Type: core.GestureQuickClench, BrainClass: class, Duration: duration}, true
}

func (r *Recognizer) tickAwaitingSelect(now time.Time, class core.BrainClass) (core.GestureEvent, bool) {
	if now.Sub(r.awaitStart) >= r.th.SelectWindow {
		r.state = stateIdle
		return core.GestureEvent{Type: core.GestureHoldLong, BrainClass: core.ClassBothFists, Duration: r.th.SelectWindow}, true
	}

	switch class {
	case core.ClassLeftFist:
		r.state = stateAwaitingReclench
		r.awaitStart = now
		r.selectDirection = core.SelectLeft
	case core.ClassRightFist:
		r.state = stateAwaitingReclench
		r.awaitStart = now
		r.selectDirection = core.SelectRight
	}
	return core.GestureEvent{}, false
}

func (r *Recognizer) tickAwaitingReclench(now time.Time, class core.BrainClass) (core.GestureEvent, bool) {
	if now.Sub(r.awaitStart) >= r.th.ReclenchWindow {
		r.state = stateIdle
		return core.GestureEvent{Type: core.GestureHoldLong, BrainClass: core.ClassBothFists, Duration: r.th.ReclenchWindow}, true
	}

	if class == core.ClassBothFists {
		r.state = stateIdle
		return core.GestureEvent{
			Type:            core.GestureSelectSequence,
			BrainClass:      core.ClassBothFists,
			SelectDirection: r.selectDirection,
		}, true
	}

	return core.GestureEvent{}, false
}
