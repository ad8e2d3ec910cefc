package autopilot

import (
	"math"
	"testing"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
)

func openPlanner() *planner.Planner {
	return planner.New(0.25, 0.3, planner.Bounds{MinX: -10, MaxX: 10, MinY: -10, MaxY: 10}, nil)
}

func TestAutopilotRotatesThenWalksTowardTarget(t *testing.T) {
	p := openPlanner()
	a := New(p, "Dock", planner.Point{X: 5, Y: 0}, planner.Point{X: 0, Y: 0})

	// Facing straight up (pi/2) but target is due east: large heading
	// error should yield a rotation, not a forward move.
	action := a.Update(planner.Point{X: 0, Y: 0}, math.Pi/2)
	if action != core.ActionRotateRight && action != core.ActionRotateLeft {
		t.Fatalf("expected a rotation while misaligned, got %v", action)
	}

	// Once aligned (yaw ~ 0, facing east), should walk forward.
	action = a.Update(planner.Point{X: 0, Y: 0}, 0)
	if action != core.ActionMoveForward {
		t.Fatalf("expected MOVE_FORWARD once aligned, got %v", action)
	}
}

func TestAutopilotArrivalIsMonotonicInvariant4(t *testing.T) {
	p := openPlanner()
	a := New(p, "Dock", planner.Point{X: 1, Y: 0}, planner.Point{X: 0, Y: 0})

	if a.Arrived() {
		t.Fatal("should not start arrived")
	}

	pos := planner.Point{X: 0, Y: 0}
	var action core.RobotAction
	for i := 0; i < 2000 && !a.Arrived(); i++ {
		action = a.Update(pos, 0)
		switch action {
		case core.ActionMoveForward:
			pos.X += 0.06
		case core.ActionRotateLeft, core.ActionRotateRight:
			// yaw fixed at 0 in this test; alignment is immediate for a
			// due-east target so this branch should not be hit.
		}
	}

	if !a.Arrived() {
		t.Fatal("expected arrival within the iteration budget")
	}
	if action != core.ActionStop {
		t.Fatalf("expected STOP on arrival tick, got %v", action)
	}

	// Once arrived, further updates must never un-arrive.
	for i := 0; i < 5; i++ {
		a.Update(pos, 0)
		if !a.Arrived() {
			t.Fatal("arrived became false without constructing a new Autopilot")
		}
	}
}

func TestAutopilotCancelDeactivatesWithoutArriving(t *testing.T) {
	p := openPlanner()
	a := New(p, "Dock", planner.Point{X: 5, Y: 0}, planner.Point{X: 0, Y: 0})

	a.Cancel()
	if a.Active() {
		t.Fatal("expected inactive after cancel")
	}
	if a.Arrived() {
		t.Fatal("cancel must not mark arrived")
	}
	if action := a.Update(planner.Point{X: 0, Y: 0}, 0); action != core.ActionIdle {
		t.Fatalf("expected IDLE after cancel, got %v", action)
	}
}

func TestAutopilotDegradesToLiteralTargetWithNoObstaclesOrNoPath(t *testing.T) {
	// A planner whose bounds exclude the target entirely should still
	// degrade gracefully to a single-waypoint path rather than panicking.
	p := planner.New(0.25, 0.3, planner.Bounds{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}, nil)
	a := New(p, "Far", planner.Point{X: 100, Y: 100}, planner.Point{X: 0, Y: 0})

	if a.wpLen() == 0 {
		t.Fatal("expected at least the literal target as a fallback waypoint")
	}
}

func (a *Autopilot) wpLen() int { return len(a.waypoints) }

func TestResolveTargetDelegatesToWaypointTable(t *testing.T) {
	table := core.NewWaypointTable([]core.Waypoint{{CanonicalName: "Dock", X: 1, Y: 2}}, nil)
	wp, ok := ResolveTarget(table, "dock")
	if !ok || wp.CanonicalName != "Dock" {
		t.Fatalf("expected resolved Dock waypoint, got %+v ok=%v", wp, ok)
	}
}
