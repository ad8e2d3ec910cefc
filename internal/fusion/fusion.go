// Package fusion implements CommandFusion: the per-tick priority
// arbitration between a voice command, the brain-gesture pipeline, and a
// sustained toggle (spec §4.6).
package fusion

import (
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/gear"
	"github.com/elektrokombinacija/bci-robot-core/internal/gesture"
)

// DefaultHoldWindow is the spec's indicative voice-hold duration (spec
// §4.6 "~2 s").
const DefaultHoldWindow = 2 * time.Second

// Result is what one Tick produces. Navigate/CancelNav signal the
// SupervisoryLoop to route work to the Autopilot rather than emitting an
// actuator action directly (spec §4.6 "NAVIGATE commands return None
// from fusion").
type Result struct {
	Action    core.RobotAction
	Source    core.ActionSource
	Navigate  *core.Waypoint
	CancelNav bool

	// Populated when a gesture completed this tick, whatever the Source
	// (a voice or voice_hold result carries them too): the completed
	// gesture itself (the loop needs the raw type/class for the
	// cancel-confirm double-clench protocol, spec §4.7 step 6) plus the
	// gear machine's side-channel outputs (spec §4.4 Apply Result) for
	// dispatching orchestration tasks and logging toggle changes.
	Gesture            *core.GestureEvent
	ToggleChanged      bool
	OrchestrationEvent string
	OrchestrationTask  *core.OrchestrationTask
	IsSelectSequence   bool
	SelectDirection    core.SelectDirection
}

// directActions maps a ParsedCommand's CommandAction to its
// directly-corresponding RobotAction, for every action that needs no
// special loop-level handling (spec §4.6 item 1).
var directActions = map[core.CommandAction]core.RobotAction{
	core.CmdGrab:        core.ActionGrab,
	core.CmdRelease:     core.ActionRelease,
	core.CmdStop:        core.ActionStop,
	core.CmdEmergency:   core.ActionEmergencyStop,
	core.CmdMoveForward: core.ActionMoveForward,
	core.CmdMoveBack:    core.ActionMoveBackward,
	core.CmdTurnLeft:    core.ActionRotateLeft,
	core.CmdTurnRight:   core.ActionRotateRight,
	core.CmdBackflip:    core.ActionBackflip,
}

// Fusion owns one robot's gesture recognizer + gear machine and the
// voice-hold bookkeeping that sits on top of them (spec §4.6). Each
// robot exclusively owns its own Fusion instance.
type Fusion struct {
	recognizer *gesture.Recognizer
	machine    *gear.Machine
	state      *core.RobotState
	holdWindow time.Duration

	voiceOverrideUntil time.Time
	lastVoiceAction    core.RobotAction
	hasLastVoice       bool
	toggleSuppressed   bool
}

// New creates a Fusion bound to a robot's recognizer, gear machine, and
// state, with the given voice-hold duration (pass DefaultHoldWindow
// absent a config override).
func New(recognizer *gesture.Recognizer, machine *gear.Machine, state *core.RobotState, holdWindow time.Duration) *Fusion {
	return &Fusion{recognizer: recognizer, machine: machine, state: state, holdWindow: holdWindow}
}

// Reset clears gesture state, toggle state, and the voice-hold window
// (spec §4.6 "Reset").
func (f *Fusion) Reset() {
	f.recognizer.Reset()
	f.state.ClearToggle()
	f.voiceOverrideUntil = time.Time{}
	f.hasLastVoice = false
	f.toggleSuppressed = false
}

// Tick applies one tick's optional brain class and optional voice
// command in priority order: voice, then voice-hold, then brain
// gesture, then sustained toggle, else idle (spec §4.6). The recognizer
// observes brainClass exactly once per call regardless of which branch
// ends up winning the tick's emitted action (spec §4.7 step 5: "gesture
// state must always observe brain input") — a gesture that completes
// during a voice-arbitrated tick still latches its toggle/gear/
// orchestration side effects and is still reported via Result.Gesture
// (e.g. for the loop's double-clench cancel-confirm protocol), even
// though voice's mapped action is what gets emitted this tick.
func (f *Fusion) Tick(now time.Time, brainClass *core.BrainClass, voiceCmd *core.ParsedCommand) Result {
	var gestureRes Result
	gestureApplied := false
	if brainClass != nil {
		if ev, ok := f.recognizer.Tick(now, *brainClass); ok {
			gestureRes = f.applyGestureEvent(ev)
			gestureApplied = true
		}
	} else {
		f.recognizer.Tick(now, core.ClassNone)
	}

	if voiceCmd != nil {
		if res, ok := f.applyVoice(now, *voiceCmd); ok {
			if gestureApplied {
				carryGestureSideEffects(&res, gestureRes)
			}
			return res
		}
	}

	if now.Before(f.voiceOverrideUntil) && f.hasLastVoice {
		res := Result{Action: f.lastVoiceAction, Source: core.SourceVoiceHold}
		if gestureApplied {
			carryGestureSideEffects(&res, gestureRes)
		}
		return res
	}

	if gestureApplied {
		return gestureRes
	}

	if f.state.ToggledAction != nil && !f.toggleSuppressed {
		return Result{Action: *f.state.ToggledAction, Source: core.SourceBrainToggle}
	}

	return Result{Action: core.ActionIdle, Source: core.SourceIdle}
}

// carryGestureSideEffects copies a completed gesture's side-channel
// output (toggle/orchestration/select-sequence bookkeeping, and the
// gesture itself) onto a Result whose Action/Source was decided by
// higher-priority arbitration.
func carryGestureSideEffects(dst *Result, src Result) {
	dst.Gesture = src.Gesture
	dst.ToggleChanged = src.ToggleChanged
	dst.OrchestrationEvent = src.OrchestrationEvent
	dst.OrchestrationTask = src.OrchestrationTask
	dst.IsSelectSequence = src.IsSelectSequence
	dst.SelectDirection = src.SelectDirection
}

// InjectGesture applies a synthetic GestureEvent directly to the gear
// machine, bypassing the recognizer. This is how the manual_command
// pseudo-actions ORCH_CONFIRM/ORCH_CANCEL/BOTH_FISTS (spec §6 "Inbound
// command protocol") reach the same toggle/orchestration logic a real
// brain gesture would, without waiting out the recognizer's timing
// windows.
func (f *Fusion) InjectGesture(ev core.GestureEvent) Result {
	return f.applyGestureEvent(ev)
}

// applyGestureEvent applies a completed gesture to the gear machine and
// folds its side-channel outputs into a fusion Result (spec §4.4 Apply
// Result, passed through so the loop can dispatch orchestration tasks
// and log toggle changes).
func (f *Fusion) applyGestureEvent(ev core.GestureEvent) Result {
	f.toggleSuppressed = false
	completed := ev

	if ev.Type == core.GestureSelectSequence {
		return Result{
			Action:           core.ActionIdle,
			Source:           core.SourceBrainGesture,
			Gesture:          &completed,
			IsSelectSequence: true,
			SelectDirection:  ev.SelectDirection,
		}
	}

	res := f.machine.Apply(ev)
	return Result{
		Action:             res.Action,
		Source:             core.SourceBrainGesture,
		Gesture:            &completed,
		ToggleChanged:      res.ToggleChanged,
		OrchestrationEvent: res.OrchestrationEvent,
		OrchestrationTask:  res.OrchestrationTask,
	}
}

// applyVoice resolves a single voice command to a fusion Result. NAVIGATE
// signals the loop to route to the Autopilot instead of an action;
// CANCEL_NAV maps to STOP and additionally signals cancellation;
// SHIFT_GEAR/SET_GEAR mutate gear as a side effect and otherwise behave
// like IDLE (spec §4.6 item 1, SPEC_FULL §C.4 gear-shift voice override).
func (f *Fusion) applyVoice(now time.Time, cmd core.ParsedCommand) (Result, bool) {
	switch cmd.Action {
	case core.CmdNavigate:
		if cmd.Target == "" {
			return Result{}, false
		}
		return Result{Navigate: &core.Waypoint{CanonicalName: cmd.Target}}, true

	case core.CmdCancelNav:
		f.latchVoice(now, core.ActionStop)
		return Result{Action: core.ActionStop, Source: core.SourceVoice, CancelNav: true}, true

	case core.CmdShiftGear:
		f.state.Gear = f.state.Gear.Next()
		f.state.Orchestration = core.OrchestrationState{}
		f.latchVoice(now, core.ActionIdle)
		return Result{Action: core.ActionIdle, Source: core.SourceVoice}, true

	case core.CmdSetGear:
		f.state.Gear = cmd.Gear
		f.state.Orchestration = core.OrchestrationState{}
		f.latchVoice(now, core.ActionIdle)
		return Result{Action: core.ActionIdle, Source: core.SourceVoice}, true

	case core.CmdTransport:
		return Result{}, false
	}

	if action, ok := directActions[cmd.Action]; ok {
		f.latchVoice(now, action)
		return Result{Action: action, Source: core.SourceVoice}, true
	}

	return Result{}, false
}

// latchVoice records the mapped action and opens the voice-hold window
// (spec §4.6 "voice_override_until = now + HOLD_S"). The toggle is never
// cleared here (SPEC_FULL §9 Open Question 2, spec §8 boundary scenario
// C): it stops re-manifesting until a new gesture completes, even after
// the hold window itself lapses.
func (f *Fusion) latchVoice(now time.Time, action core.RobotAction) {
	f.lastVoiceAction = action
	f.hasLastVoice = true
	f.voiceOverrideUntil = now.Add(f.holdWindow)
	f.toggleSuppressed = true
}
