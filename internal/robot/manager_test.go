package robot

import (
	"testing"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

func newFleet(n int) []*core.Robot {
	robots := make([]*core.Robot, n)
	for i := 0; i < n; i++ {
		robots[i] = core.NewRobot(core.NewRobotID(), core.Pose{X: float64(i)}, "red")
	}
	return robots
}

func TestSelectByDirectionWrapsModularly(t *testing.T) {
	robots := newFleet(3)
	m := New(robots)

	first := m.SelectedRobot().ID
	if first != robots[0].ID {
		t.Fatalf("expected first robot selected by default")
	}

	m.SelectByDirection(core.SelectLeft)
	if m.SelectedRobot().ID != robots[2].ID {
		t.Fatalf("expected wraparound to last robot, got %v", m.SelectedRobot().ID)
	}

	m.SelectByDirection(core.SelectRight)
	m.SelectByDirection(core.SelectRight)
	if m.SelectedRobot().ID != robots[1].ID {
		t.Fatalf("expected second robot, got %v", m.SelectedRobot().ID)
	}
}

func TestActiveRobotsDefaultsToSelected(t *testing.T) {
	robots := newFleet(2)
	m := New(robots)

	active := m.ActiveRobots()
	if len(active) != 1 || active[0].ID != robots[0].ID {
		t.Fatalf("expected selected robot as sole active, got %+v", active)
	}
}

func TestSetActiveRobotsIgnoresUnknownIDs(t *testing.T) {
	robots := newFleet(2)
	m := New(robots)

	m.SetActiveRobots([]core.RobotID{robots[1].ID, core.NewRobotID()})
	active := m.ActiveRobots()
	if len(active) != 1 || active[0].ID != robots[1].ID {
		t.Fatalf("expected only the known robot active, got %+v", active)
	}
}

func TestDispatchPlanBackflipAlwaysSimultaneous(t *testing.T) {
	robots := newFleet(3)
	m := New(robots)
	m.SetActiveRobots([]core.RobotID{robots[0].ID, robots[1].ID, robots[2].ID})

	plan := m.DispatchPlan(core.OrchestrationTask{Action: core.OrchBackflip})
	if plan.Sequential || len(plan.Targets) != 3 {
		t.Fatalf("expected simultaneous backflip across all 3, got %+v", plan)
	}
}

func TestDispatchPlanLogisticsTaskSequentialWithMultipleActive(t *testing.T) {
	robots := newFleet(3)
	m := New(robots)
	m.SetActiveRobots([]core.RobotID{robots[0].ID, robots[1].ID})

	plan := m.DispatchPlan(core.OrchestrationTask{Action: core.OrchCarryTo})
	if !plan.Sequential || len(plan.Targets) != 2 {
		t.Fatalf("expected sequential dispatch with 2 active robots, got %+v", plan)
	}
}

func TestDispatchPlanLogisticsTaskSimultaneousWithSingleActive(t *testing.T) {
	robots := newFleet(3)
	m := New(robots)

	plan := m.DispatchPlan(core.OrchestrationTask{Action: core.OrchStackTo})
	if plan.Sequential || len(plan.Targets) != 1 {
		t.Fatalf("expected simultaneous dispatch with 1 active robot, got %+v", plan)
	}
}

func TestDispatchPlanSelectRobotNarrowsActiveSet(t *testing.T) {
	robots := newFleet(3)
	m := New(robots)
	m.SetActiveRobots([]core.RobotID{robots[0].ID, robots[1].ID, robots[2].ID})
	m.SelectByID(robots[1].ID)

	m.DispatchPlan(core.OrchestrationTask{Action: core.OrchSelectRobot})

	active := m.ActiveRobots()
	if len(active) != 1 || active[0].ID != robots[1].ID {
		t.Fatalf("expected active set narrowed to selected robot, got %+v", active)
	}
}

func TestResetRestoresSelectionAndClearsActiveSet(t *testing.T) {
	robots := newFleet(2)
	m := New(robots)
	m.SetActiveRobots([]core.RobotID{robots[1].ID})
	m.SelectByID(robots[1].ID)

	starts := map[core.RobotID]core.Pose{
		robots[0].ID: {X: 1, Y: 1},
		robots[1].ID: {X: 2, Y: 2},
	}
	m.Reset(starts)

	if m.SelectedRobot().ID != robots[0].ID {
		t.Fatal("expected selection reset to first robot")
	}
	active := m.ActiveRobots()
	if len(active) != 1 || active[0].ID != robots[0].ID {
		t.Fatalf("expected active set reset to defaulting on selection, got %+v", active)
	}
	if robots[0].Pose.X != 1 || robots[1].Pose.X != 2 {
		t.Fatal("expected poses restored to provided starts")
	}
}

func TestGetAllStatesReportsSelectionAndActivity(t *testing.T) {
	robots := newFleet(2)
	m := New(robots)

	states := m.GetAllStates()
	if len(states) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(states))
	}
	if !states[0].Selected || !states[0].Active {
		t.Fatalf("expected first robot selected and active by default: %+v", states[0])
	}
	if states[1].Selected || states[1].Active {
		t.Fatalf("expected second robot neither selected nor active: %+v", states[1])
	}
}
