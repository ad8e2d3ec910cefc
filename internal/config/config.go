// Package config assembles the supervisory core's static configuration
// (spec §6 "Configuration"): control rate, timing windows, gesture
// thresholds, planner/autopilot tuning, dead-reckoning deltas, and the
// factory scene's map bounds, obstacles, and waypoint/alias table.
//
// Scene-file parsing is an explicit out-of-scope collaborator (spec §1);
// the scene below is compile-time configuration the way the teacher's
// SimulationConfig/DefaultConfig pair (internal/sim/simulator.go) ships a
// default instance rather than reading one from disk.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/elektrokombinacija/bci-robot-core/internal/autopilot"
	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/fusion"
	"github.com/elektrokombinacija/bci-robot-core/internal/gesture"
	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
	"github.com/elektrokombinacija/bci-robot-core/internal/simbridge"
)

// ControlHz is the fixed supervisory loop rate (spec §4.7 "CONTROL_HZ = 10").
const ControlHz = 10

// CancelConfirmTimeout is the indicative double-clench re-confirmation
// window (spec §4.7 "~5 s").
const CancelConfirmTimeout = 5 * time.Second

// Config is the supervisory core's full static configuration.
type Config struct {
	ControlPeriod        time.Duration
	VoiceHoldWindow      time.Duration
	CancelConfirmTimeout time.Duration
	Gesture              gesture.Thresholds
	ArrivalDist          float64
	AlignThreshold       float64
	PlannerResolution    float64
	RobotRadius          float64
	Bounds               planner.Bounds
	Obstacles            []planner.Obstacle
	Waypoints            []core.Waypoint
	Aliases              map[string]string
	DeadReckoningLinStep float64
	DeadReckoningAngStep float64
	SimBackendURL        string // empty uses DeadReckoning
	LatencyHistoryLen    int
	EEGBroadcastEveryN   int
	EEGDecimationFactor  int
	BrainConfidenceGate  float64 // classifier results below this are treated as gated/no-signal
	TTSWorkerCount       int
	TTSCooldown          time.Duration
}

// Default returns the spec's indicative defaults (§6), describing a small
// factory-floor scene: a conveyor, two pallets, and a charging bay around
// a single central obstacle (the assembly line housing).
func Default() Config {
	bounds := planner.Bounds{MinX: -10, MaxX: 10, MinY: -10, MaxY: 10}

	waypoints := []core.Waypoint{
		{CanonicalName: "Conveyor", X: -4, Y: 0},
		{CanonicalName: "Pallet 1", X: 4, Y: 3},
		{CanonicalName: "Pallet 2", X: 4, Y: -3},
		{CanonicalName: "Charging Bay", X: 0, Y: 7},
		{CanonicalName: "Assembly Line", X: 0, Y: 0},
	}
	aliases := map[string]string{
		"conveyor belt": "Conveyor",
		"the conveyor":  "Conveyor",
		"pallet one":    "Pallet 1",
		"pallet two":    "Pallet 2",
		"pallet a":      "Pallet 1",
		"pallet b":      "Pallet 2",
		"charger":       "Charging Bay",
		"charging":      "Charging Bay",
		"home":          "Charging Bay",
		"assembly":      "Assembly Line",
		"the line":      "Assembly Line",
	}

	obstacles := []planner.Obstacle{
		{CX: 0, CY: 0, HX: 2.0, HY: 1.0}, // assembly line housing
	}

	return Config{
		ControlPeriod:        time.Second / ControlHz,
		VoiceHoldWindow:      fusion.DefaultHoldWindow,
		CancelConfirmTimeout: CancelConfirmTimeout,
		Gesture:              gesture.DefaultThresholds(),
		ArrivalDist:          autopilot.DefaultArrivalDist,
		AlignThreshold:       autopilot.DefaultAlignThreshold,
		PlannerResolution:    0.25,
		RobotRadius:          0.3,
		Bounds:               bounds,
		Obstacles:            obstacles,
		Waypoints:            waypoints,
		Aliases:              aliases,
		DeadReckoningLinStep: simbridge.DefaultLinearStep,
		DeadReckoningAngStep: simbridge.DefaultAngularStep,
		LatencyHistoryLen:    100,
		EEGBroadcastEveryN:   10,
		EEGDecimationFactor:  8,
		BrainConfidenceGate:  0.4,
		TTSWorkerCount:       2,
		TTSCooldown:          3 * time.Second,
	}
}

// Load returns Default() overridden by any matching environment
// variables, tolerating a missing .env the same way the teacher's CLI
// loads one (cmd/agsh/main.go: "_ = godotenv.Load(\".env\")").
func Load(envPath string) Config {
	_ = godotenv.Load(envPath)

	cfg := Default()
	if v, ok := floatEnv("BCI_PLANNER_RESOLUTION"); ok {
		cfg.PlannerResolution = v
	}
	if v, ok := floatEnv("BCI_ROBOT_RADIUS"); ok {
		cfg.RobotRadius = v
	}
	if v, ok := floatEnv("BCI_DEAD_RECKONING_LIN_STEP"); ok {
		cfg.DeadReckoningLinStep = v
	}
	if v, ok := floatEnv("BCI_DEAD_RECKONING_ANG_STEP"); ok {
		cfg.DeadReckoningAngStep = v
	}
	if v := os.Getenv("BCI_SIM_BACKEND_URL"); v != "" {
		cfg.SimBackendURL = v
	}
	return cfg
}

func floatEnv(name string) (float64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WaypointTable builds the core.WaypointTable for this configuration.
func (c Config) WaypointTable() *core.WaypointTable {
	return core.NewWaypointTable(c.Waypoints, c.Aliases)
}

// Planner builds the shared, immutable PathPlanner for this configuration
// (spec §3 "PathPlanner is shared read-only and constructed once").
func (c Config) Planner() *planner.Planner {
	return planner.New(c.PlannerResolution, c.RobotRadius, c.Bounds, c.Obstacles)
}
