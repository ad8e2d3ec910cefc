// Package robot implements RobotManager: the fleet of Robots, which one
// is selected, which are active, and the dispatch rules for
// orchestration tasks (spec §4.8).
package robot

import (
	"sync"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// Snapshot is one robot's externally-visible state, the shape the
// state_update broadcast carries per robot (spec §6).
type Snapshot struct {
	ID            core.RobotID
	Pose          core.Pose
	Holding       bool
	Color         string
	Gear          core.Gear
	CurrentAction core.RobotAction
	Selected      bool
	Active        bool
	Task          *core.OrchestrationTask
}

// Plan is the dispatch decision for one orchestration task (spec §4.8):
// which robots it applies to and whether they execute it one at a time
// or all at once.
type Plan struct {
	Targets    []core.RobotID
	Sequential bool
}

// Manager owns the fleet's robots plus selection/activation state. The
// SupervisoryLoop exclusively owns one Manager (spec §3 Ownership); the
// mutex here guards reads from other goroutines (CLI, broadcaster) the
// same way the teacher's Simulator guards concurrent Metrics() reads.
type Manager struct {
	mu       sync.Mutex
	robots   []*core.Robot
	selected int // index into robots, -1 if none
	active   map[core.RobotID]bool
}

// New creates a Manager over a fixed fleet, selecting the first robot
// (if any) and activating none.
func New(robots []*core.Robot) *Manager {
	selected := -1
	if len(robots) > 0 {
		selected = 0
	}
	return &Manager{robots: robots, selected: selected, active: make(map[core.RobotID]bool)}
}

// ByID finds a robot by ID, mirroring the teacher's Instance.RobotByID
// linear scan.
func (m *Manager) ByID(id core.RobotID) *core.Robot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byIDLocked(id)
}

func (m *Manager) byIDLocked(id core.RobotID) *core.Robot {
	for _, r := range m.robots {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *Manager) indexOfLocked(id core.RobotID) int {
	for i, r := range m.robots {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// AllRobots returns every robot in the fleet, in construction order. The
// returned pointers are live: callers (the SupervisoryLoop, which
// exclusively owns this Manager) may mutate them directly, e.g. to clear
// a toggle during the cancel-confirm protocol or assign an orchestration
// Task.
func (m *Manager) AllRobots() []*core.Robot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.Robot, len(m.robots))
	copy(out, m.robots)
	return out
}

// SelectedRobot returns the currently selected robot, or nil if the
// fleet is empty.
func (m *Manager) SelectedRobot() *core.Robot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected < 0 || m.selected >= len(m.robots) {
		return nil
	}
	return m.robots[m.selected]
}

// SelectByDirection moves the selection cursor modularly (spec §4.8
// "select_by_direction(left|right) (modular)"), used by SELECT_SEQUENCE.
func (m *Manager) SelectByDirection(dir core.SelectDirection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.robots)
	if n == 0 {
		return
	}
	delta := 1
	if dir == core.SelectLeft {
		delta = -1
	}
	m.selected = ((m.selected+delta)%n + n) % n
}

// SelectByID selects a specific robot by ID, returning false if unknown.
func (m *Manager) SelectByID(id core.RobotID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOfLocked(id)
	if idx < 0 {
		return false
	}
	m.selected = idx
	return true
}

// SetActiveRobots replaces the active set with exactly the given IDs.
// Unknown IDs are ignored.
func (m *Manager) SetActiveRobots(ids []core.RobotID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[core.RobotID]bool, len(ids))
	for _, id := range ids {
		if m.byIDLocked(id) != nil {
			m.active[id] = true
		}
	}
}

// ActiveRobots returns the currently active robots. If none have been
// explicitly activated, the selected robot alone is considered active
// (spec §4.8's dispatch rules assume a non-empty active set).
func (m *Manager) ActiveRobots() []*core.Robot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeRobotsLocked()
}

func (m *Manager) activeRobotsLocked() []*core.Robot {
	if len(m.active) == 0 {
		if m.selected >= 0 && m.selected < len(m.robots) {
			return []*core.Robot{m.robots[m.selected]}
		}
		return nil
	}
	out := make([]*core.Robot, 0, len(m.active))
	for _, r := range m.robots {
		if m.active[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// UpdateRobotState applies a pose readback from SimBridge (spec §4.8
// "update_robot_state(id, pos, yaw)").
func (m *Manager) UpdateRobotState(id core.RobotID, pose core.Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.byIDLocked(id); r != nil {
		r.Pose = pose
	}
}

// GetAllStates returns a snapshot of every robot (spec §4.8).
func (m *Manager) GetAllStates() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.activeRobotsLocked()
	out := make([]Snapshot, 0, len(m.robots))
	for i, r := range m.robots {
		out = append(out, Snapshot{
			ID:            r.ID,
			Pose:          r.Pose,
			Holding:       r.Holding,
			Color:         r.Color,
			Gear:          r.SM.Gear,
			CurrentAction: r.SM.CurrentAction,
			Selected:      i == m.selected,
			Active:        containsRobot(active, r.ID),
			Task:          r.Task,
		})
	}
	return out
}

func containsRobot(robots []*core.Robot, id core.RobotID) bool {
	for _, r := range robots {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Reset restores every robot to its start pose and clears selection back
// to the first robot and the active set (spec §5 full_reset).
func (m *Manager) Reset(starts map[core.RobotID]core.Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.robots {
		start := starts[r.ID]
		r.Reset(start)
	}
	m.active = make(map[core.RobotID]bool)
	if len(m.robots) > 0 {
		m.selected = 0
	} else {
		m.selected = -1
	}
}

// DispatchPlan resolves an orchestration task into a dispatch Plan (spec
// §4.8). SELECT_ROBOT narrows the active set down to the currently
// selected robot rather than addressing a landmark (SPEC_FULL §9 Open
// Question: SELECT_ROBOT's "landmark" cursor has no robot-identity
// meaning, so dispatching it scopes future orchestration to whichever
// robot is presently selected). BACKFLIP and non-logistics tasks with an
// active set of one or fewer dispatch simultaneously; CARRY_TO/STACK_TO
// with more than one active robot dispatch sequentially.
func (m *Manager) DispatchPlan(task core.OrchestrationTask) Plan {
	m.mu.Lock()
	defer m.mu.Unlock()

	if task.Action == core.OrchSelectRobot {
		if m.selected >= 0 && m.selected < len(m.robots) {
			id := m.robots[m.selected].ID
			m.active = map[core.RobotID]bool{id: true}
		}
		return Plan{}
	}

	active := m.activeRobotsLocked()
	ids := make([]core.RobotID, len(active))
	for i, r := range active {
		ids[i] = r.ID
	}

	if task.Action == core.OrchBackflip || !task.Action.LogisticsTask() || len(ids) <= 1 {
		return Plan{Targets: ids, Sequential: false}
	}
	return Plan{Targets: ids, Sequential: true}
}
