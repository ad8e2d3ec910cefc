// Package autopilot implements the per-robot turn-then-walk steering
// controller (spec §4.2).
package autopilot

import (
	"math"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
)

// Spec §6 "Static" configuration defaults: waypoint arrival distance
// (0.5 m) and align threshold (0.3 rad).
const (
	DefaultArrivalDist    = 0.5
	DefaultAlignThreshold = 0.3
)

// Autopilot steers one robot to a named landmark (spec §4.2, §3
// AutopilotState). Arrived is monotonic once true per instance (spec §8
// invariant 4): constructing a fresh Autopilot is the only way back to
// arrived=false.
type Autopilot struct {
	targetName string
	targetXY   planner.Point
	waypoints  []planner.Point
	wpIndex    int
	active     bool
	arrived    bool

	arrivalDist    float64
	alignThreshold float64
}

// New constructs an Autopilot, invoking the planner for a path from
// startXY to targetXY. If the planner yields no path, the waypoint list
// degrades to the literal target (spec §4.2 construction).
func New(p *planner.Planner, targetName string, targetXY, startXY planner.Point) *Autopilot {
	return NewWithThresholds(p, targetName, targetXY, startXY, DefaultArrivalDist, DefaultAlignThreshold)
}

// NewWithThresholds is New with explicit arrival/align thresholds, for
// callers wiring in config overrides.
func NewWithThresholds(p *planner.Planner, targetName string, targetXY, startXY planner.Point, arrivalDist, alignThreshold float64) *Autopilot {
	waypoints := p.FindPath(startXY, targetXY)
	if len(waypoints) == 0 {
		waypoints = []planner.Point{targetXY}
	}
	return &Autopilot{
		targetName:     targetName,
		targetXY:       targetXY,
		waypoints:      waypoints,
		active:         true,
		arrivalDist:    arrivalDist,
		alignThreshold: alignThreshold,
	}
}

// Update advances the controller by one tick given the robot's current
// pose (spec §4.2 update). Waypoint arrival and heading alignment are
// both re-evaluated within the same call, never leaving a stale
// already-passed waypoint selected for the next tick.
func (a *Autopilot) Update(robotXY planner.Point, robotYaw float64) core.RobotAction {
	if !a.active {
		return core.ActionIdle
	}

	for a.wpIndex < len(a.waypoints) && distance(robotXY, a.waypoints[a.wpIndex]) < a.arrivalDist {
		a.wpIndex++
	}

	if a.wpIndex >= len(a.waypoints) {
		a.active = false
		a.arrived = true
		return core.ActionStop
	}

	wp := a.waypoints[a.wpIndex]
	dx, dy := wp.X-robotXY.X, wp.Y-robotXY.Y
	desired := math.Atan2(dy, dx)
	diff := normalizeAngle(desired - robotYaw)

	if math.Abs(diff) > a.alignThreshold {
		if diff > 0 {
			return core.ActionRotateLeft
		}
		return core.ActionRotateRight
	}
	return core.ActionMoveForward
}

// Cancel deactivates the controller without marking it arrived (spec
// §4.2 cancel()).
func (a *Autopilot) Cancel() {
	a.active = false
}

// Active reports whether the controller is still steering.
func (a *Autopilot) Active() bool { return a.active }

// Arrived reports whether the controller reached its final waypoint.
func (a *Autopilot) Arrived() bool { return a.arrived }

// TargetName is the landmark this controller was constructed for.
func (a *Autopilot) TargetName() string { return a.targetName }

// TargetXY is the literal coordinate this controller is steering toward.
func (a *Autopilot) TargetXY() planner.Point { return a.targetXY }

// WaypointsTotal is the length of the planned path.
func (a *Autopilot) WaypointsTotal() int { return len(a.waypoints) }

// WaypointsRemaining is how many waypoints (including the current one)
// are left to pass through.
func (a *Autopilot) WaypointsRemaining() int { return len(a.waypoints) - a.wpIndex }

// DistanceTo reports the remaining straight-line distance from robotXY
// to the final target, for progress reporting.
func (a *Autopilot) DistanceTo(robotXY planner.Point) float64 {
	return distance(robotXY, a.targetXY)
}

// ResolveTarget resolves a spoken/typed landmark name against table,
// delegating to WaypointTable's exact-then-alias-then-substring match
// (spec §4.2 resolve_target).
func ResolveTarget(table *core.WaypointTable, spokenName string) (core.Waypoint, bool) {
	return table.Resolve(spokenName)
}

func distance(a, b planner.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Hypot(dx, dy)
}

// normalizeAngle folds an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
