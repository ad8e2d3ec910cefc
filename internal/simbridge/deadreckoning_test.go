package simbridge

import (
	"context"
	"math"
	"testing"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
)

func testBounds() planner.Bounds {
	return planner.Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5}
}

func TestDeadReckoningMoveForwardIntegratesAlongYaw(t *testing.T) {
	d := NewDeadReckoning(testBounds(), 0.06, 0.06)
	id := core.RobotID("r1")
	d.RegisterRobot(id, core.Pose{})

	st, err := d.Execute(context.Background(), core.ActionMoveForward, id)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(st.Pose.X-0.06) > 1e-9 || math.Abs(st.Pose.Y) > 1e-9 {
		t.Fatalf("expected forward step along yaw=0, got %+v", st.Pose)
	}
}

func TestDeadReckoningClampsToBounds(t *testing.T) {
	d := NewDeadReckoning(planner.Bounds{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}, 10, 0.06)
	id := core.RobotID("r1")
	d.RegisterRobot(id, core.Pose{})

	st, _ := d.Execute(context.Background(), core.ActionMoveForward, id)
	if st.Pose.X != 1 {
		t.Fatalf("expected clamp to MaxX=1, got %v", st.Pose.X)
	}
}

func TestDeadReckoningGrabReleaseSetsHoldingAuthoritatively(t *testing.T) {
	d := NewDeadReckoning(testBounds(), 0.06, 0.06)
	id := core.RobotID("r1")
	d.RegisterRobot(id, core.Pose{})

	st, _ := d.Execute(context.Background(), core.ActionGrab, id)
	if !st.Holding {
		t.Fatal("expected holding=true after GRAB")
	}
	st, _ = d.Execute(context.Background(), core.ActionRelease, id)
	if st.Holding {
		t.Fatal("expected holding=false after RELEASE")
	}
}

func TestDeadReckoningResetRestoresRegisteredRobots(t *testing.T) {
	d := NewDeadReckoning(testBounds(), 0.06, 0.06)
	id := core.RobotID("r1")
	d.RegisterRobot(id, core.Pose{})
	d.Execute(context.Background(), core.ActionMoveForward, id)

	if err := d.Reset(map[core.RobotID]core.Pose{id: {X: 2, Y: 3}}); err != nil {
		t.Fatal(err)
	}
	st, ok := d.GetState(id)
	if !ok || st.Pose.X != 2 || st.Pose.Y != 3 {
		t.Fatalf("expected reset pose, got %+v ok=%v", st, ok)
	}
}

func TestDeadReckoningGetAllStates(t *testing.T) {
	d := NewDeadReckoning(testBounds(), 0.06, 0.06)
	a, b := core.RobotID("a"), core.RobotID("b")
	d.RegisterRobot(a, core.Pose{})
	d.RegisterRobot(b, core.Pose{})

	states := d.GetAllStates()
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}
}
