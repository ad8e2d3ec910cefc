package simbridge

import (
	"context"
	"math"
	"sync"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
)

// DefaultLinearStep and DefaultAngularStep are the spec's indicative
// dead-reckoning deltas (spec §4.9 "default 0.06 m and 0.06 rad"),
// overridable via config per SPEC_FULL §9 Open Question 3.
const (
	DefaultLinearStep  = 0.06
	DefaultAngularStep = 0.06
)

// DeadReckoning is the default Actuator backend: it integrates a fixed
// per-tick delta from the requested action rather than querying a live
// simulator, clamping position to the map bounds (spec §4.9). It has no
// pelvis sensor, so fall recovery never triggers here — only HTTPBridge
// can observe pelvis-z.
type DeadReckoning struct {
	mu      sync.Mutex
	bounds  planner.Bounds
	linStep float64
	angStep float64
	states  map[core.RobotID]State
}

var _ Actuator = (*DeadReckoning)(nil)

// NewDeadReckoning creates a DeadReckoning bridge clamped to bounds, with
// the given per-tick deltas.
func NewDeadReckoning(bounds planner.Bounds, linStep, angStep float64) *DeadReckoning {
	return &DeadReckoning{
		bounds:  bounds,
		linStep: linStep,
		angStep: angStep,
		states:  make(map[core.RobotID]State),
	}
}

// RegisterRobot seeds a robot's initial pose. Robots not registered
// before Execute default to the zero pose the first time they're seen.
func (d *DeadReckoning) RegisterRobot(id core.RobotID, start core.Pose) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[id] = State{Pose: start}
}

func (d *DeadReckoning) Start(ctx context.Context) error { return nil }
func (d *DeadReckoning) Stop() error                     { return nil }

// Reset restores every known robot to its given start pose (spec §5
// full_reset). Robots absent from starts keep their current state.
func (d *DeadReckoning) Reset(starts map[core.RobotID]core.Pose) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, pose := range starts {
		d.states[id] = State{Pose: pose}
	}
	return nil
}

// Execute integrates one tick of the requested action and returns the
// resulting authoritative state (spec §4.9).
func (d *DeadReckoning) Execute(ctx context.Context, action core.RobotAction, id core.RobotID) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.states[id]

	switch action {
	case core.ActionMoveForward:
		st.Pose.X += d.linStep * math.Cos(st.Pose.Yaw)
		st.Pose.Y += d.linStep * math.Sin(st.Pose.Yaw)
	case core.ActionMoveBackward:
		st.Pose.X -= d.linStep * math.Cos(st.Pose.Yaw)
		st.Pose.Y -= d.linStep * math.Sin(st.Pose.Yaw)
	case core.ActionRotateLeft:
		st.Pose.Yaw += d.angStep
	case core.ActionRotateRight:
		st.Pose.Yaw -= d.angStep
	case core.ActionGrab:
		st.Holding = true
	case core.ActionRelease:
		st.Holding = false
	}

	st.Pose.X = clamp(st.Pose.X, d.bounds.MinX, d.bounds.MaxX)
	st.Pose.Y = clamp(st.Pose.Y, d.bounds.MinY, d.bounds.MaxY)

	d.states[id] = st
	return st, nil
}

// GetState returns a robot's last known state.
func (d *DeadReckoning) GetState(id core.RobotID) (State, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.states[id]
	return st, ok
}

// GetAllStates returns every known robot's current state.
func (d *DeadReckoning) GetAllStates() map[core.RobotID]State {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[core.RobotID]State, len(d.states))
	for id, st := range d.states {
		out[id] = st
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
