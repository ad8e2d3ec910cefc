package core

import "github.com/google/uuid"

// RobotID uniquely identifies a robot for its lifetime. Robots are
// created at startup and reset on full_reset, never destroyed (spec §3).
type RobotID string

// NewRobotID generates a fresh robot identifier, grounded on the
// uuid.New().String() convention used for task/robot IDs throughout the
// pack (e.g. ScottDWilson-robot-challenge/b-librobot).
func NewRobotID() RobotID {
	return RobotID(uuid.NewString())
}

// Pose is a 2D position plus heading, with an optional Z held for
// actuators that report full 3D pelvis height (spec §4.9 fall recovery).
type Pose struct {
	X, Y, Z float64
	Yaw     float64
}

// OrchestrationPhase is the sub-state of ORCHESTRATE gear task
// composition (spec §4.4).
type OrchestrationPhase int

const (
	PhaseSelectingAction OrchestrationPhase = iota
	PhaseSelectingLandmark
)

func (p OrchestrationPhase) String() string {
	if p == PhaseSelectingLandmark {
		return "SELECTING_LANDMARK"
	}
	return "SELECTING_ACTION"
}

// OrchestrationAction is one of the fixed orchestration verbs cycled by
// L/R clenches in ORCHESTRATE gear (spec §4.4).
type OrchestrationAction string

const (
	OrchMoveTo      OrchestrationAction = "MOVE_TO"
	OrchCarryTo     OrchestrationAction = "CARRY_TO"
	OrchStackTo     OrchestrationAction = "STACK_TO"
	OrchSelectRobot OrchestrationAction = "SELECT_ROBOT"
	OrchBackflip    OrchestrationAction = "BACKFLIP"
)

// OrchestrationActions is the fixed, ordered cycle QUICK_CLENCH L/R steps
// through in SELECTING_ACTION phase.
var OrchestrationActions = []OrchestrationAction{
	OrchMoveTo, OrchCarryTo, OrchStackTo, OrchSelectRobot, OrchBackflip,
}

// LogisticsTask reports whether an orchestration action is a logistics
// task subject to sequential (vs. simultaneous) multi-robot dispatch
// (spec §4.8).
func (a OrchestrationAction) LogisticsTask() bool {
	return a == OrchCarryTo || a == OrchStackTo
}

// OrchestrationState is the ORCHESTRATE gear's sub-state: which phase is
// active and where the action/landmark cursors currently sit (spec §4.4).
type OrchestrationState struct {
	Phase         OrchestrationPhase
	ActionIndex   int
	LandmarkIndex int
}

// OrchestrationTask is the dispatched {action, landmark} pair produced
// when HOLD_MEDIUM BothFists confirms SELECTING_LANDMARK (spec §4.4).
type OrchestrationTask struct {
	Action   OrchestrationAction
	Landmark Waypoint
}

// RobotState is the per-robot state the GearStateMachine and fusion
// operate on (spec §3). toggled_action is non-nil only when a clench
// event has activated a sustainable action in a non-orchestrate gear;
// clearing it implies the next tick's current action is IDLE absent new
// input (enforced by CommandFusion, not by this struct itself).
type RobotState struct {
	Gear          Gear
	HoldingItem   bool
	CurrentAction RobotAction
	ToggledAction *RobotAction
	ToggledClass  *BrainClass
	Orchestration OrchestrationState
}

// NewRobotState returns a RobotState in its reset/default configuration.
func NewRobotState() RobotState {
	return RobotState{
		Gear:          GearNeutral,
		CurrentAction: ActionIdle,
	}
}

// ClearToggle clears any latched toggle.
func (s *RobotState) ClearToggle() {
	s.ToggledAction = nil
	s.ToggledClass = nil
}

// SetToggle latches a new toggled action/class pair, auto-cancelling any
// previous toggle (spec §4.4 toggle protocol: "auto-cancels any previous
// toggle without an extra event").
func (s *RobotState) SetToggle(action RobotAction, class BrainClass) {
	s.ToggledAction = &action
	s.ToggledClass = &class
}

// ToggleMatches reports whether the given (action, class) pair equals the
// currently latched toggle.
func (s *RobotState) ToggleMatches(action RobotAction, class BrainClass) bool {
	if s.ToggledAction == nil || s.ToggledClass == nil {
		return false
	}
	return *s.ToggledAction == action && *s.ToggledClass == class
}

// Robot is a humanoid agent in the scene (spec §3). Position/orientation
// are last known actuator readback; Color is cosmetic, carried through
// unused by the control logic itself but preserved for the state
// broadcast.
type Robot struct {
	ID      RobotID
	Pose    Pose
	Holding bool
	Color   string
	Task    *OrchestrationTask
	SM      RobotState
}

// NewRobot creates a robot at the given start pose with default state.
func NewRobot(id RobotID, start Pose, color string) *Robot {
	return &Robot{
		ID:    id,
		Pose:  start,
		Color: color,
		SM:    NewRobotState(),
	}
}

// Reset restores a robot to a fresh state at the given pose, used by
// full_reset (spec §5 cancellation semantics). Robots are never
// destroyed, only reset.
func (r *Robot) Reset(start Pose) {
	r.Pose = start
	r.Holding = false
	r.Task = nil
	r.SM = NewRobotState()
}
