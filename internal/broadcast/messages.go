// Package broadcast defines the tagged subscriber messages emitted by the
// supervisory loop (spec §6 "Subscriber protocol") and the channel-based
// fan-out that delivers them.
package broadcast

import (
	"time"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// Type discriminates the tagged message records a subscriber receives.
type Type string

const (
	TypeStateUpdate          Type = "state_update"
	TypeNavUpdate            Type = "nav_update"
	TypeEEGData              Type = "eeg_data"
	TypeCommandLog           Type = "command_log"
	TypeCancelConfirmPrompt  Type = "cancel_confirm_prompt"
	TypeCancelConfirmed      Type = "cancel_confirmed"
	TypeCancelConfirmDismiss Type = "cancel_confirm_dismiss"
	TypeTTSRequest           Type = "tts_request"
)

// Message is the envelope every subscriber message is wrapped in; exactly
// one of the payload fields is populated, matching Type.
type Message struct {
	Type Type

	State         *StateUpdate
	Nav           *NavUpdate
	EEG           *EEGData
	CommandLog    *CommandLog
	CancelPrompt  *CancelConfirmPrompt
	CancelConfirm *CancelConfirmed
	CancelDismiss *CancelConfirmDismiss
	TTS           *TTSRequest
}

// RobotSnapshot is the per-robot slice of a state_update (spec §6).
type RobotSnapshot struct {
	ID       core.RobotID
	Pose     core.Pose
	Holding  bool
	Color    string
	Selected bool
	Active   bool
}

// StateUpdate is emitted once per tick for the selected robot, with a
// snapshot of every robot in Robots (spec §6 state_update).
type StateUpdate struct {
	RobotID         core.RobotID
	Gear            core.Gear
	Action          core.RobotAction
	ActionSource    core.ActionSource
	BrainClass      core.BrainClass
	BrainConfidence float64
	BrainGated      bool
	HoldingItem     bool
	ToggledAction   *core.RobotAction
	SelectedRobot   core.RobotID
	Robots          []RobotSnapshot
	Orchestration   *core.OrchestrationState
	ActionQueue     int
	LatencyMS       float64
	Timestamp       time.Time
}

// NavUpdate reports one robot's autopilot progress (spec §6 nav_update).
type NavUpdate struct {
	RobotID            core.RobotID
	Active             bool
	TargetName         string
	TargetX, TargetY   float64
	Distance           float64
	Arrived            bool
	WaypointsTotal     int
	WaypointsRemaining int
}

// EEGData carries a decimated sample window, emitted every 10 ticks when
// a window is available (spec §6 eeg_data).
type EEGData struct {
	RobotID    core.RobotID
	Channels   [][]float64
	SampleRate float64
}

// DecimateChannels downsamples raw by keeping every factor-th sample per
// channel (spec §6 "channels: decimated float matrix", SPEC_FULL §C.2).
// factor <= 1 returns raw unchanged; each output channel always keeps at
// least the first sample of a non-empty input channel.
func DecimateChannels(raw [][]float64, factor int) [][]float64 {
	if factor <= 1 {
		return raw
	}
	out := make([][]float64, len(raw))
	for i, ch := range raw {
		decimated := make([]float64, 0, len(ch)/factor+1)
		for j := 0; j < len(ch); j += factor {
			decimated = append(decimated, ch[j])
		}
		out[i] = decimated
	}
	return out
}

// CommandLog records one resolved instruction for the operator-facing
// command log (spec §6 command_log).
type CommandLog struct {
	Source    CommandSource
	Action    string
	Text      string
	Timestamp time.Time
}

// CommandSource is the origin discriminator for a CommandLog entry.
type CommandSource string

const (
	LogSourceVoice  CommandSource = "voice"
	LogSourceManual CommandSource = "manual"
	LogSourceBrain  CommandSource = "brain"
	LogSourceSystem CommandSource = "system"
)

// CancelConfirmPrompt opens the cancel-confirm window for one robot
// (spec §5, boundary scenario F).
type CancelConfirmPrompt struct {
	RobotID   core.RobotID
	Timestamp time.Time
}

// CancelConfirmed closes the window with the cancellation applied.
type CancelConfirmed struct {
	RobotID   core.RobotID
	Timestamp time.Time
}

// CancelConfirmDismiss closes the window on timeout, no cancellation
// applied.
type CancelConfirmDismiss struct {
	RobotID   core.RobotID
	Timestamp time.Time
}

// TTSRequest asks a subscriber to speak an event. The loop publishes it
// only after the Dispatcher's Synthesizer has run; AudioBase64 is the
// base64-encoded audio it returned (spec §6 "tts_request { ...,
// audio_base64? }"), empty when it returned no bytes.
type TTSRequest struct {
	RobotID     core.RobotID
	Text        string
	EventType   string
	AudioBase64 string
	Timestamp   time.Time
}
