package gear

import "github.com/elektrokombinacija/bci-robot-core/internal/core"

// applyOrchestration handles gesture events while in ORCHESTRATE gear
// (spec §4.4 "ORCHESTRATE gear sub-state").
func (m *Machine) applyOrchestration(ev core.GestureEvent) Result {
	st := &m.state.Orchestration

	switch ev.Type {
	case core.GestureQuickClench:
		switch ev.BrainClass {
		case core.ClassRightFist:
			m.cycle(st, 1)
		case core.ClassLeftFist:
			m.cycle(st, -1)
		}
		return Result{Action: core.ActionIdle}

	case core.GestureHoldMedium:
		if ev.BrainClass != core.ClassBothFists {
			return Result{Action: core.ActionIdle}
		}
		if st.Phase == core.PhaseSelectingAction {
			st.Phase = core.PhaseSelectingLandmark
			return Result{Action: core.ActionIdle}
		}
		// SELECTING_LANDMARK: dispatch and reset.
		task := m.buildTask(*st)
		*st = core.OrchestrationState{}
		return Result{Action: core.ActionIdle, OrchestrationTask: task}

	case core.GestureDoubleClench:
		if ev.BrainClass != core.ClassBothFists {
			return Result{Action: core.ActionIdle}
		}
		if st.Phase == core.PhaseSelectingLandmark {
			st.Phase = core.PhaseSelectingAction
			return Result{Action: core.ActionIdle}
		}
		// Already at SELECTING_ACTION with no active selection: cancel.
		*st = core.OrchestrationState{}
		return Result{Action: core.ActionIdle, OrchestrationEvent: "cancel"}
	}

	return Result{Action: core.ActionIdle}
}

func (m *Machine) cycle(st *core.OrchestrationState, delta int) {
	switch st.Phase {
	case core.PhaseSelectingAction:
		n := len(core.OrchestrationActions)
		st.ActionIndex = ((st.ActionIndex+delta)%n + n) % n
	case core.PhaseSelectingLandmark:
		waypoints := m.waypoints.All()
		if len(waypoints) == 0 {
			return
		}
		n := len(waypoints)
		st.LandmarkIndex = ((st.LandmarkIndex+delta)%n + n) % n
	}
}

func (m *Machine) buildTask(st core.OrchestrationState) *core.OrchestrationTask {
	actions := core.OrchestrationActions
	if st.ActionIndex < 0 || st.ActionIndex >= len(actions) {
		return nil
	}
	waypoints := m.waypoints.All()
	if st.LandmarkIndex < 0 || st.LandmarkIndex >= len(waypoints) {
		return nil
	}
	return &core.OrchestrationTask{
		Action:   actions[st.ActionIndex],
		Landmark: waypoints[st.LandmarkIndex],
	}
}
