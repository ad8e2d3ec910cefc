package core

import "testing"

func TestGearNextCycle(t *testing.T) {
	tests := []struct {
		from Gear
		want Gear
	}{
		{GearNeutral, GearForward},
		{GearForward, GearReverse},
		{GearReverse, GearOrchestrate},
		{GearOrchestrate, GearNeutral},
	}
	for _, tt := range tests {
		if got := tt.from.Next(); got != tt.want {
			t.Errorf("%v.Next() = %v, want %v", tt.from, got, tt.want)
		}
	}
}

func TestGearFourShiftsReturnToStart(t *testing.T) {
	g := GearNeutral
	for i := 0; i < 4; i++ {
		g = g.Next()
	}
	if g != GearNeutral {
		t.Errorf("four shifts from NEUTRAL landed on %v, want NEUTRAL", g)
	}
}

func TestRobotStateToggleProtocol(t *testing.T) {
	s := NewRobotState()
	if s.ToggledAction != nil {
		t.Fatal("new state should have no toggle")
	}

	s.SetToggle(ActionMoveForward, ClassBothFists)
	if !s.ToggleMatches(ActionMoveForward, ClassBothFists) {
		t.Fatal("toggle should match just-set action/class")
	}

	// Setting a different toggle auto-cancels the previous one, no
	// separate clear step required.
	s.SetToggle(ActionRotateLeft, ClassLeftFist)
	if s.ToggleMatches(ActionMoveForward, ClassBothFists) {
		t.Fatal("old toggle should no longer match")
	}
	if !s.ToggleMatches(ActionRotateLeft, ClassLeftFist) {
		t.Fatal("new toggle should match")
	}

	s.ClearToggle()
	if s.ToggledAction != nil || s.ToggledClass != nil {
		t.Fatal("clear should null both fields")
	}
}
