// Command bcictl is the operator-facing control surface for the
// supervisory loop, grounded on the teacher's robot-cli pattern
// (ScottDWilson-robot-challenge/c-robotcli/robot_cli.go): a cobra root
// command with one subcommand per inbound message, runnable either as a
// single invocation or as an interactive REPL when started with no
// arguments.
//
// The scene (HTTP/WebSocket transport, the physics simulator, the GUI)
// is explicitly out of scope; this binary only exercises the loop
// directly, which is enough to drive every boundary scenario by hand.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/bci-robot-core/internal/config"
	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/loop"
)

var (
	logger      = golog.Global
	controlLoop *loop.Loop
	cancelRun   context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "bcictl",
	Short: "Operator console for the BCI supervisory control core",
	Long: `bcictl drives the supervisory loop directly: inject voice
transcripts, manual commands, and simulated brain classes, and inspect
fleet state, without a transport layer in between.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bcictl invoked. Use the available commands to control the fleet.")
	},
}

var voiceCmd = &cobra.Command{
	Use:   "voice [text...]",
	Short: "Enqueue a voice transcript",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.Join(args, " ")
		controlLoop.EnqueueVoice(loop.VoiceTranscript{Text: text, Confidence: 0.95, Timestamp: time.Now()})
		fmt.Printf("queued voice transcript: %q\n", text)
	},
}

var manualCmd = &cobra.Command{
	Use:   "manual [action]",
	Short: "Inject a direct-operator command (e.g. GRAB, STOP, BOTH_FISTS, SHIFT_GEAR)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		action := loop.ManualAction(strings.ToUpper(args[0]))
		controlLoop.EnqueueManualCommand(action, time.Now())
		fmt.Printf("applied manual command: %s\n", action)
	},
}

var brainCmd = &cobra.Command{
	Use:   "brain [class|none]",
	Short: "Pin the simulated brain class (requires test mode; 'none' clears it)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if strings.EqualFold(args[0], "none") {
			controlLoop.SimulateBrain(nil)
			fmt.Println("cleared simulated brain class")
			return
		}
		class := core.NormalizeBrainClass(args[0])
		controlLoop.SimulateBrain(&class)
		fmt.Printf("simulating brain class: %s\n", class)
	},
}

var gearCmd = &cobra.Command{
	Use:   "gear [neutral|forward|reverse|orchestrate]",
	Short: "Force-set the selected robot's gear",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, ok := gearNames[strings.ToLower(args[0])]
		if !ok {
			fmt.Printf("unknown gear %q\n", args[0])
			return
		}
		controlLoop.SetGear(g, time.Now())
		fmt.Printf("gear set to %s\n", g)
	},
}

var gearNames = map[string]core.Gear{
	"neutral":     core.GearNeutral,
	"forward":     core.GearForward,
	"reverse":     core.GearReverse,
	"orchestrate": core.GearOrchestrate,
}

var selectCmd = &cobra.Command{
	Use:   "select [left|right]",
	Short: "Move the robot-selection cursor",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := core.SelectRight
		if strings.EqualFold(args[0], "left") {
			dir = core.SelectLeft
		}
		controlLoop.Manager().SelectByDirection(dir)
		printStatus()
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the selected robot's autopilot and any pending sequence",
	Run: func(cmd *cobra.Command, args []string) {
		controlLoop.CancelNav()
		fmt.Println("navigation cancelled")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear gesture/toggle/voice-hold state without repositioning the fleet",
	Run: func(cmd *cobra.Command, args []string) {
		controlLoop.Reset()
		fmt.Println("reset applied")
	},
}

var fullResetCmd = &cobra.Command{
	Use:   "full_reset",
	Short: "Clear all state and reposition every robot to its start pose",
	Run: func(cmd *cobra.Command, args []string) {
		controlLoop.FullReset()
		fmt.Println("full reset applied")
	},
}

var toggleBrainCmd = &cobra.Command{
	Use:   "toggle_brain [on|off]",
	Short: "Enable or disable the brain channel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		controlLoop.SetBrainEnabled(isOn(args[0]))
		fmt.Printf("brain channel: %s\n", args[0])
	},
}

var toggleVoiceCmd = &cobra.Command{
	Use:   "toggle_voice [on|off]",
	Short: "Enable or disable the voice channel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		controlLoop.SetVoiceEnabled(isOn(args[0]))
		fmt.Printf("voice channel: %s\n", args[0])
	},
}

var toggleTestModeCmd = &cobra.Command{
	Use:   "toggle_test_mode [on|off]",
	Short: "Enable or disable test mode (required for simulate_brain)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		controlLoop.SetTestMode(isOn(args[0]))
		fmt.Printf("test mode: %s\n", args[0])
	},
}

func isOn(s string) bool {
	return strings.EqualFold(s, "on") || strings.EqualFold(s, "true") || s == "1"
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current fleet snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		printStatus()
	},
}

func printStatus() {
	states := controlLoop.Manager().GetAllStates()
	for _, s := range states {
		marker := "  "
		if s.Selected {
			marker = "> "
		}
		fmt.Printf("%s%s  pose=(%.2f, %.2f, yaw=%.2f)  gear=%s  action=%s  holding=%v  active=%v\n",
			marker, s.ID, s.Pose.X, s.Pose.Y, s.Pose.Yaw, s.Gear, s.CurrentAction, s.Holding, s.Active)
	}
	fmt.Printf("avg tick latency: %.3f ms\n", controlLoop.AverageLatencyMS())
}

var ticksCmd = &cobra.Command{
	Use:   "ticks [n]",
	Short: "Advance the loop by n ticks synchronously (useful without a running clock)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Println("n must be a positive integer")
			return
		}
		now := time.Now()
		for i := 0; i < n; i++ {
			controlLoop.Tick(context.Background(), now)
			now = now.Add(100 * time.Millisecond)
		}
		fmt.Printf("advanced %d ticks\n", n)
	},
}

func init() {
	rootCmd.AddCommand(voiceCmd, manualCmd, brainCmd, gearCmd, selectCmd, cancelCmd,
		resetCmd, fullResetCmd, toggleBrainCmd, toggleVoiceCmd, toggleTestModeCmd, statusCmd, ticksCmd)
}

// defaultFleet seeds two robots the way a demo scene would, absent
// scene-file parsing (spec §1 out-of-scope collaborator).
func defaultFleet() []*core.Robot {
	return []*core.Robot{
		core.NewRobot(core.NewRobotID(), core.Pose{X: 0, Y: -6}, "red"),
		core.NewRobot(core.NewRobotID(), core.Pose{X: 1, Y: -6}, "blue"),
	}
}

func main() {
	cfg := config.Load(".env")
	controlLoop = loop.New(cfg, defaultFleet(), nil, nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancelRun = cancel
	go func() {
		if err := controlLoop.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorw("loop exited", "err", err)
		}
	}()
	defer cancelRun()

	if len(os.Args) > 1 {
		if err := rootCmd.Execute(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		return
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Interactive bcictl. Type 'exit' to quit, 'help' for commands.")
	fmt.Println("---")

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("error reading input:", err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			fmt.Println("exiting.")
			return
		}

		rootCmd.SetArgs(strings.Split(input, " "))
		if err := rootCmd.Execute(); err != nil {
			fmt.Println(err)
		}
	}
}
