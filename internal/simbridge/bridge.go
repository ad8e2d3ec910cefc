// Package simbridge implements the SimBridge adapter contract (spec
// §4.9): the only authority on robot actuation and the `holding` flag.
// DeadReckoning is the default backend for robots with no live
// simulator; HTTPBridge is the optional real-simulator backend.
package simbridge

import (
	"context"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// State is the authoritative per-robot readback an Actuator returns.
// Holding is always populated by Execute/GetState (spec §4.9 "execute
// guarantees an authoritative holding: bool field").
type State struct {
	Pose    core.Pose
	Holding bool
}

// Actuator is the SimBridge adapter contract (spec §4.9). Every method
// is safe to call concurrently; a robot not yet known to the backend is
// reported via GetState's ok=false.
type Actuator interface {
	Start(ctx context.Context) error
	Stop() error
	Reset(starts map[core.RobotID]core.Pose) error
	Execute(ctx context.Context, action core.RobotAction, id core.RobotID) (State, error)
	GetState(id core.RobotID) (State, bool)
	GetAllStates() map[core.RobotID]State
}
