package gear

import (
	"testing"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

func newTestMachine() (*Machine, *core.RobotState) {
	state := core.NewRobotState()
	holding := false
	table := core.NewWaypointTable([]core.Waypoint{
		{CanonicalName: "Conveyor", X: 1, Y: 1},
		{CanonicalName: "Pallet 2", X: 2, Y: 2},
	}, nil)
	m := New(&state, func() bool { return holding }, table)
	return m, &state
}

func tongueQuick() core.GestureEvent {
	return core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassTongueTap}
}

func TestGearCycleBoundaryScenarioA(t *testing.T) {
	m, state := newTestMachine()

	want := []core.Gear{core.GearForward, core.GearReverse, core.GearOrchestrate, core.GearNeutral}
	for i, w := range want {
		m.Apply(tongueQuick())
		if state.Gear != w {
			t.Fatalf("after shift %d: gear=%v want=%v", i+1, state.Gear, w)
		}
	}
}

func TestToggleWalkThenCancelBoundaryScenarioB(t *testing.T) {
	m, state := newTestMachine()
	state.Gear = core.GearForward

	res := m.Apply(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassBothFists})
	if res.Action != core.ActionMoveForward || !res.ToggleChanged {
		t.Fatalf("expected MOVE_FORWARD toggle_changed=true, got %+v", res)
	}
	if state.ToggledAction == nil || *state.ToggledAction != core.ActionMoveForward {
		t.Fatal("toggle should be latched to MOVE_FORWARD")
	}

	// A second identical QUICK_CLENCH BothFists clears it.
	res = m.Apply(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassBothFists})
	if res.Action != core.ActionIdle {
		t.Fatalf("expected IDLE on toggle clear, got %+v", res)
	}
	if state.ToggledAction != nil {
		t.Fatal("toggle should be cleared")
	}
}

func TestToggleReplacementAutoCancels(t *testing.T) {
	m, state := newTestMachine()
	state.Gear = core.GearForward

	m.Apply(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassBothFists})
	res := m.Apply(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassLeftFist})
	if res.Action != core.ActionRotateLeft || !res.ToggleChanged {
		t.Fatalf("expected ROTATE_LEFT replacing the old toggle, got %+v", res)
	}
	if state.ToggledClass == nil || *state.ToggledClass != core.ClassLeftFist {
		t.Fatal("new toggle should be LeftFist")
	}
}

func TestNeutralBothFistsGrabsWhenNotHolding(t *testing.T) {
	m, state := newTestMachine()
	state.Gear = core.GearNeutral

	res := m.Apply(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassBothFists})
	if res.Action != core.ActionGrab {
		t.Fatalf("expected GRAB, got %v", res.Action)
	}
}

func TestOrchestrationCycleAndDispatch(t *testing.T) {
	m, state := newTestMachine()
	state.Gear = core.GearOrchestrate

	// Cycle action to the second entry (CARRY_TO).
	m.Apply(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassRightFist})
	if core.OrchestrationActions[state.Orchestration.ActionIndex] != core.OrchCarryTo {
		t.Fatalf("expected CARRY_TO selected, got %v", core.OrchestrationActions[state.Orchestration.ActionIndex])
	}

	// Advance to SELECTING_LANDMARK.
	res := m.Apply(core.GestureEvent{Type: core.GestureHoldMedium, BrainClass: core.ClassBothFists})
	if state.Orchestration.Phase != core.PhaseSelectingLandmark {
		t.Fatalf("expected SELECTING_LANDMARK, got %v", state.Orchestration.Phase)
	}
	if res.OrchestrationTask != nil {
		t.Fatal("should not dispatch yet")
	}

	// Confirm landmark -> dispatch.
	res = m.Apply(core.GestureEvent{Type: core.GestureHoldMedium, BrainClass: core.ClassBothFists})
	if res.OrchestrationTask == nil || res.OrchestrationTask.Action != core.OrchCarryTo {
		t.Fatalf("expected dispatched CARRY_TO task, got %+v", res.OrchestrationTask)
	}
	if state.Orchestration.Phase != core.PhaseSelectingAction {
		t.Fatal("sub-state should reset to SELECTING_ACTION after dispatch")
	}
}

func TestOrchestrationDoubleClenchCancelWithNoSelection(t *testing.T) {
	m, state := newTestMachine()
	state.Gear = core.GearOrchestrate

	res := m.Apply(core.GestureEvent{Type: core.GestureDoubleClench, BrainClass: core.ClassBothFists})
	if res.OrchestrationEvent != "cancel" {
		t.Fatalf("expected cancel event, got %+v", res)
	}
}
