package tts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

func TestRequestDispatchesToOnResult(t *testing.T) {
	var mu sync.Mutex
	var got []string

	synth := func(ctx context.Context, text string) ([]byte, error) {
		return []byte(text), nil
	}
	onResult := func(robotID core.RobotID, eventType, text string, audio []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(audio))
	}

	d := New(synth, 2, time.Millisecond, onResult, golog.NewTestLogger(t))
	defer d.Stop()

	d.Request(core.RobotID("r1"), "arrived at dock", "nav_arrived")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "arrived at dock" {
		t.Fatalf("expected one synthesized result, got %v", got)
	}
}

func TestRequestSuppressedWithinCooldown(t *testing.T) {
	var mu sync.Mutex
	count := 0

	synth := func(ctx context.Context, text string) ([]byte, error) { return nil, nil }
	onResult := func(robotID core.RobotID, eventType, text string, audio []byte) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	d := New(synth, 1, time.Hour, onResult, golog.NewTestLogger(t))
	defer d.Stop()

	d.Request(core.RobotID("r1"), "first", "event")
	d.Request(core.RobotID("r1"), "second", "event")

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected the second request within the cooldown to be suppressed, got %d synthesis calls", count)
	}
}

func TestStopDrainsWorkersWithoutPanicking(t *testing.T) {
	synth := func(ctx context.Context, text string) ([]byte, error) { return nil, nil }
	d := New(synth, 3, time.Millisecond, func(core.RobotID, string, string, []byte) {}, golog.NewTestLogger(t))
	d.Request(core.RobotID("r1"), "text", "event")
	d.Stop()
}
