package fusion

import (
	"testing"
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/gear"
	"github.com/elektrokombinacija/bci-robot-core/internal/gesture"
)

var ft0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestFusion() (*Fusion, *core.RobotState) {
	state := core.NewRobotState()
	table := core.NewWaypointTable(nil, nil)
	m := gear.New(&state, func() bool { return false }, table)
	r := gesture.New(gesture.DefaultThresholds())
	f := New(r, m, &state, DefaultHoldWindow)
	return f, &state
}

func cls(c core.BrainClass) *core.BrainClass { return &c }

func TestVoiceOverrideThenHoldThenIdleBoundaryScenarioC(t *testing.T) {
	f, state := newTestFusion()
	state.Gear = core.GearForward
	rotLeft := core.ActionRotateLeft
	leftFist := core.ClassLeftFist
	state.SetToggle(rotLeft, leftFist)

	stopCmd := core.ParsedCommand{Kind: core.KindDirectOverride, Action: core.CmdStop}
	res := f.Tick(ft0, nil, &stopCmd)
	if res.Action != core.ActionStop || res.Source != core.SourceVoice {
		t.Fatalf("expected STOP/voice, got %+v", res)
	}

	// Within the hold window, no voice command, no gesture: voice_hold.
	res = f.Tick(ft0.Add(1*time.Second), nil, nil)
	if res.Action != core.ActionStop || res.Source != core.SourceVoiceHold {
		t.Fatalf("expected STOP/voice_hold, got %+v", res)
	}

	// After the hold window lapses with no new gesture: IDLE, not the
	// surviving ROTATE_LEFT toggle (spec §8 boundary scenario C).
	res = f.Tick(ft0.Add(3*time.Second), nil, nil)
	if res.Action != core.ActionIdle || res.Source != core.SourceIdle {
		t.Fatalf("expected IDLE after hold lapse with no new gesture, got %+v", res)
	}
	if state.ToggledAction == nil || *state.ToggledAction != core.ActionRotateLeft {
		t.Fatal("the toggle itself must survive the voice override")
	}
}

func TestToggleResumesAfterNewGesture(t *testing.T) {
	f, state := newTestFusion()
	state.Gear = core.GearForward

	stopCmd := core.ParsedCommand{Kind: core.KindDirectOverride, Action: core.CmdStop}
	f.Tick(ft0, nil, &stopCmd)

	// Let the hold window lapse.
	f.Tick(ft0.Add(3*time.Second), nil, nil)

	// A fresh gesture completes: latch a new toggle via LeftFist QUICK_CLENCH.
	leftFist := core.ClassLeftFist
	f.Tick(ft0.Add(3100*time.Millisecond), &leftFist, nil)
	res := f.Tick(ft0.Add(3600*time.Millisecond), cls(core.ClassRelax), nil)
	if res.Source != core.SourceBrainGesture {
		t.Fatalf("expected brain_gesture on hold release, got %+v", res)
	}

	// Now the toggle should resume sustaining on subsequent idle ticks.
	res = f.Tick(ft0.Add(3700*time.Millisecond), nil, nil)
	if res.Source != core.SourceBrainToggle || res.Action != core.ActionRotateLeft {
		t.Fatalf("expected brain_toggle ROTATE_LEFT to resume, got %+v", res)
	}
	if state.ToggledAction == nil || *state.ToggledAction != core.ActionRotateLeft {
		t.Fatal("expected ROTATE_LEFT latched as the new toggle")
	}
}

func TestSustainedToggleInvariant3(t *testing.T) {
	f, state := newTestFusion()
	state.Gear = core.GearForward
	action := core.ActionMoveForward
	class := core.ClassBothFists
	state.SetToggle(action, class)

	res := f.Tick(ft0, nil, nil)
	if res.Action != core.ActionMoveForward || res.Source != core.SourceBrainToggle {
		t.Fatalf("expected sustained MOVE_FORWARD/brain_toggle, got %+v", res)
	}
}

func TestIdleWhenNothingActive(t *testing.T) {
	f, _ := newTestFusion()
	res := f.Tick(ft0, nil, nil)
	if res.Action != core.ActionIdle || res.Source != core.SourceIdle {
		t.Fatalf("expected IDLE, got %+v", res)
	}
}

func TestNavigateRoutesToAutopilotNotAction(t *testing.T) {
	f, _ := newTestFusion()
	navCmd := core.ParsedCommand{Kind: core.KindDirectOverride, Action: core.CmdNavigate, Target: "Dock"}
	res := f.Tick(ft0, nil, &navCmd)
	if res.Navigate == nil || res.Navigate.CanonicalName != "Dock" {
		t.Fatalf("expected Navigate target Dock, got %+v", res)
	}
	if res.Action != core.ActionIdle {
		t.Fatalf("NAVIGATE must not itself emit an actuator action, got %+v", res)
	}
}

func TestCancelNavStopsAndSignalsCancellation(t *testing.T) {
	f, _ := newTestFusion()
	cancelCmd := core.ParsedCommand{Kind: core.KindDirectOverride, Action: core.CmdCancelNav}
	res := f.Tick(ft0, nil, &cancelCmd)
	if res.Action != core.ActionStop || !res.CancelNav {
		t.Fatalf("expected STOP with CancelNav=true, got %+v", res)
	}
}

// A voice command must not stall the gesture recognizer's clock (spec
// §4.7 step 5 "gesture state must always observe brain input"): a hold
// begun before a voice-arbitrated tick must still complete on schedule
// once voice stops winning, rather than having lost whatever ticks it
// spent masked behind a voice command.
func TestVoiceDoesNotStallGestureRecognizer(t *testing.T) {
	f, _ := newTestFusion()
	f.state.Gear = core.GearForward

	leftFist := core.ClassLeftFist
	f.Tick(ft0, &leftFist, nil) // begin a LeftFist hold

	stopCmd := core.ParsedCommand{Kind: core.KindDirectOverride, Action: core.CmdStop}
	// Voice wins this tick's action, but the recognizer must still see
	// the held LeftFist class so its hold-duration clock advances.
	res := f.Tick(ft0.Add(200*time.Millisecond), &leftFist, &stopCmd)
	if res.Action != core.ActionStop || res.Source != core.SourceVoice {
		t.Fatalf("expected STOP/voice to win the tick, got %+v", res)
	}

	// Release after a duration that only makes sense if the hold's
	// clock kept running across the voice-arbitrated tick above. The
	// voice-hold window is still open here, so it still wins the
	// emitted action/source, but the completed gesture must still be
	// reported (and its duration must reflect the hold starting at
	// ft0, not at the voice-arbitrated tick).
	res = f.Tick(ft0.Add(2*time.Second), cls(core.ClassRelax), nil)
	if res.Source != core.SourceVoiceHold {
		t.Fatalf("expected voice_hold to still win this tick's action, got %+v", res)
	}
	if res.Gesture == nil {
		t.Fatal("expected the completed LeftFist hold to still be reported via Result.Gesture")
	}
	if res.Gesture.Type != core.GestureHoldMedium {
		t.Fatalf("expected HOLD_MEDIUM given a ~2s duration measured from the original hold start, got %+v", res.Gesture)
	}
}

func TestResetClearsGestureToggleAndHold(t *testing.T) {
	f, state := newTestFusion()
	action := core.ActionMoveForward
	class := core.ClassBothFists
	state.SetToggle(action, class)
	stopCmd := core.ParsedCommand{Kind: core.KindDirectOverride, Action: core.CmdStop}
	f.Tick(ft0, nil, &stopCmd)

	f.Reset()

	if state.ToggledAction != nil {
		t.Fatal("reset should clear the toggle")
	}
	res := f.Tick(ft0.Add(time.Millisecond), nil, nil)
	if res.Source != core.SourceIdle {
		t.Fatalf("expected idle after reset, got %+v", res)
	}
}
