package config

import (
	"os"
	"testing"

	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
)

func TestDefaultResolvesKnownLandmarks(t *testing.T) {
	cfg := Default()
	table := cfg.WaypointTable()

	for _, name := range []string{"Conveyor", "Pallet 1", "Pallet 2", "Charging Bay", "Assembly Line"} {
		if _, ok := table.Resolve(name); !ok {
			t.Fatalf("expected Default() to resolve landmark %q", name)
		}
	}
	if _, ok := table.Resolve("home"); !ok {
		t.Fatal("expected the 'home' alias to resolve to Charging Bay")
	}
}

func TestDefaultPlannerIsUsable(t *testing.T) {
	cfg := Default()
	p := cfg.Planner()
	path := p.FindPath(
		planner.Point{X: cfg.Bounds.MinX + 0.1, Y: cfg.Bounds.MinY + 0.1},
		planner.Point{X: cfg.Bounds.MaxX - 0.1, Y: cfg.Bounds.MaxY - 0.1},
	)
	if len(path) == 0 {
		t.Fatal("expected a path between two free corners of the default bounds")
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	os.Setenv("BCI_ROBOT_RADIUS", "0.5")
	os.Setenv("BCI_PLANNER_RESOLUTION", "0.1")
	defer os.Unsetenv("BCI_ROBOT_RADIUS")
	defer os.Unsetenv("BCI_PLANNER_RESOLUTION")

	cfg := Load("testdata-does-not-exist.env")
	if cfg.RobotRadius != 0.5 {
		t.Fatalf("expected RobotRadius override 0.5, got %v", cfg.RobotRadius)
	}
	if cfg.PlannerResolution != 0.1 {
		t.Fatalf("expected PlannerResolution override 0.1, got %v", cfg.PlannerResolution)
	}
}

func TestLoadToleratesMissingEnvFile(t *testing.T) {
	cfg := Load("definitely-does-not-exist.env")
	if cfg.ControlPeriod != Default().ControlPeriod {
		t.Fatal("expected Load to fall back to Default() when no .env is present")
	}
}
