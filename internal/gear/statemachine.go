// Package gear implements the GearStateMachine: applying a gesture event
// (or a voice-induced shift) to produce an action, plus the ORCHESTRATE
// sub-state for structured task composition (spec §4.4).
package gear

import (
	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// Result is what GearStateMachine.Apply produces for one gesture event.
type Result struct {
	Action             core.RobotAction
	ToggleChanged      bool
	OrchestrationEvent string // "cancel", or "" if none
	OrchestrationTask  *core.OrchestrationTask
}

// Machine owns one robot's gear + toggle + orchestration sub-state. Each
// robot exclusively owns its own Machine instance (spec §3 Ownership).
type Machine struct {
	state     *core.RobotState
	holding   func() bool // current holding_item, queried rather than cached: SimBridge is authoritative
	waypoints *core.WaypointTable
}

// New creates a Machine bound to a robot's state. holding reports the
// robot's current holding_item so BothFists-in-NEUTRAL can choose
// GRAB/RELEASE without this package mutating that flag itself (spec
// §4.4: "without mutating it here; SimBridge is authoritative").
func New(state *core.RobotState, holding func() bool, waypoints *core.WaypointTable) *Machine {
	return &Machine{state: state, holding: holding, waypoints: waypoints}
}

// Apply applies one completed GestureEvent to the machine (spec §4.4).
func (m *Machine) Apply(ev core.GestureEvent) Result {
	if ev.Type == core.GestureSelectSequence {
		// Passed through unchanged; the SupervisoryLoop interprets it to
		// change the selected robot (spec §4.4).
		return Result{}
	}

	if ev.Type == core.GestureQuickClench && ev.BrainClass == core.ClassTongueTap {
		m.state.Gear = m.state.Gear.Next()
		m.state.Orchestration = core.OrchestrationState{}
		return Result{Action: core.ActionIdle}
	}

	if m.state.Gear == core.GearOrchestrate {
		return m.applyOrchestration(ev)
	}

	switch ev.Type {
	case core.GestureQuickClench:
		return m.applyToggle(ev.BrainClass)

	case core.GestureHoldMedium, core.GestureHoldLong, core.GestureDoubleClench:
		// Only QUICK_CLENCH drives gear shift/toggle in non-orchestrate
		// gears (spec §4.4); longer holds do not toggle.
		return Result{Action: m.resolveBaseAction(ev.BrainClass)}
	}

	return Result{}
}

// resolveBaseAction maps a brain class to an action for the current gear
// without touching the toggle (spec §4.4 "Brain-class -> base action").
func (m *Machine) resolveBaseAction(class core.BrainClass) core.RobotAction {
	switch class {
	case core.ClassLeftFist:
		return core.ActionRotateLeft
	case core.ClassRightFist:
		return core.ActionRotateRight
	case core.ClassBothFists:
		switch m.state.Gear {
		case core.GearForward:
			return core.ActionMoveForward
		case core.GearReverse:
			return core.ActionMoveBackward
		default: // NEUTRAL
			if m.holding() {
				return core.ActionRelease
			}
			return core.ActionGrab
		}
	default:
		return core.ActionIdle
	}
}

// applyToggle implements the toggle protocol (spec §4.4 "Toggle
// protocol"): a matching QUICK_CLENCH clears the toggle; any other
// QUICK_CLENCH latches a new one, auto-cancelling the old.
func (m *Machine) applyToggle(class core.BrainClass) Result {
	action := m.resolveBaseAction(class)

	if m.state.ToggleMatches(action, class) {
		m.state.ClearToggle()
		return Result{Action: core.ActionIdle, ToggleChanged: true}
	}

	m.state.SetToggle(action, class)
	return Result{Action: action, ToggleChanged: true}
}
