// Package loop implements the SupervisoryLoop: the fixed-rate control
// loop that fuses brain-gesture, voice, and direct operator input into
// actuator commands for a fleet of robots (spec §4.7, §5 Concurrency
// model). It owns every other package's per-robot instances and is the
// sole writer of shared fleet state, grounded on the teacher's
// Simulator (internal/sim/simulator.go): a mutex-guarded step() driven
// by a Run(ctx) loop, with public Metrics()-style accessors
// (AverageLatencyMS, LatencyStats) for readers on other goroutines.
package loop

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edaniels/golog"

	"github.com/elektrokombinacija/bci-robot-core/internal/autopilot"
	"github.com/elektrokombinacija/bci-robot-core/internal/broadcast"
	"github.com/elektrokombinacija/bci-robot-core/internal/config"
	"github.com/elektrokombinacija/bci-robot-core/internal/core"
	"github.com/elektrokombinacija/bci-robot-core/internal/fusion"
	"github.com/elektrokombinacija/bci-robot-core/internal/gear"
	"github.com/elektrokombinacija/bci-robot-core/internal/gesture"
	"github.com/elektrokombinacija/bci-robot-core/internal/planner"
	"github.com/elektrokombinacija/bci-robot-core/internal/robot"
	"github.com/elektrokombinacija/bci-robot-core/internal/simbridge"
	"github.com/elektrokombinacija/bci-robot-core/internal/tts"
	"github.com/elektrokombinacija/bci-robot-core/internal/voice"
)

// BrainClassifier samples one EEG classification window. The classifier
// itself — feature extraction, the trained model — is an opaque
// out-of-scope collaborator (spec §1); the loop only needs a label, a
// confidence, and an ok bool for "no window was ready this tick".
type BrainClassifier interface {
	Classify(ctx context.Context) (class core.BrainClass, confidence float64, ok bool)
}

// EEGSource supplies the decimated raw sample window the eeg_data
// broadcast carries (spec §6), independent of the classifier.
type EEGSource interface {
	Window(ctx context.Context) (channels [][]float64, sampleRate float64, ok bool)
}

// VoiceTranscript is one queued inbound voice recognition result (spec
// §6 "voice_transcript").
type VoiceTranscript struct {
	Text       string
	Confidence float64
	Timestamp  time.Time
}

// ManualAction is a direct-operator input (spec §6 "manual_command"): a
// canonical RobotAction name, or one of the pseudo-actions SHIFT_GEAR,
// BOTH_FISTS, ORCH_CONFIRM, ORCH_CANCEL. SHIFT_GEAR advances the gear
// directly; the other three synthesize a gesture rather than bypass
// fusion outright.
type ManualAction string

const (
	ManualShiftGear   ManualAction = "SHIFT_GEAR"
	ManualBothFists   ManualAction = "BOTH_FISTS"
	ManualOrchConfirm ManualAction = "ORCH_CONFIRM"
	ManualOrchCancel  ManualAction = "ORCH_CANCEL"
)

// perRobot bundles one robot's exclusively-owned collaborators (spec §3
// Ownership): its own Fusion (recognizer + gear machine) and, while
// steering, its own Autopilot.
type perRobot struct {
	fusion    *fusion.Fusion
	autopilot *autopilot.Autopilot
}

// sequenceState tracks one robot's in-progress multi-step command (spec
// §4.5, §8 boundary scenario D).
type sequenceState struct {
	robotID core.RobotID
	steps   core.CommandSequence
	idx     int
}

// queuedTask is one entry of the sequential orchestration dispatch queue
// (spec §4.8 "CARRY_TO/STACK_TO with more than one active robot dispatch
// one at a time").
type queuedTask struct {
	robotID core.RobotID
	task    core.OrchestrationTask
	started bool
}

// Loop is the supervisory control core. Exactly one goroutine calls tick
// (via Run); every other method is safe to call concurrently and
// acquires mu itself, mirroring how an operator CLI or transport layer
// would submit work from a different goroutine than the ticking one.
type Loop struct {
	cfg           config.Config
	logger        golog.Logger
	manager       *robot.Manager
	planner       *planner.Planner
	waypoints     *core.WaypointTable
	actuator      simbridge.Actuator
	broadcaster   *broadcast.Broadcaster
	ttsDispatcher *tts.Dispatcher
	parser        *voice.Parser
	classifier    BrainClassifier
	eegSource     EEGSource

	startPoses map[core.RobotID]core.Pose

	mu         sync.Mutex
	robots     map[core.RobotID]*perRobot
	sequences  map[core.RobotID]*sequenceState
	sequential []queuedTask

	brainEnabled   bool
	voiceEnabled   bool
	testMode       bool
	simulatedBrain *core.BrainClass

	cancelConfirmPending  bool
	cancelConfirmDeadline time.Time

	tickCount     int64
	latencyMS     []float64
	latencyCursor int

	voiceMu    sync.Mutex
	voiceQueue []VoiceTranscript
}

// New assembles a SupervisoryLoop over a fixed fleet. If actuator is nil
// it becomes an HTTPBridge to cfg.SimBackendURL when that is set, and a
// config-driven DeadReckoning backend otherwise; classifier/eegSource
// may be nil (brain input then only ever arrives via simulate_brain).
func New(cfg config.Config, robots []*core.Robot, actuator simbridge.Actuator, classifier BrainClassifier, eegSource EEGSource, logger golog.Logger) *Loop {
	waypoints := cfg.WaypointTable()
	plnr := cfg.Planner()

	if actuator == nil && cfg.SimBackendURL != "" {
		actuator = simbridge.NewHTTPBridge(cfg.SimBackendURL)
	}
	if actuator == nil {
		dr := simbridge.NewDeadReckoning(cfg.Bounds, cfg.DeadReckoningLinStep, cfg.DeadReckoningAngStep)
		for _, r := range robots {
			dr.RegisterRobot(r.ID, r.Pose)
		}
		actuator = dr
	}

	robotNames := make(map[string]core.RobotID, len(robots))
	for _, r := range robots {
		robotNames[strings.ToLower(r.Color)] = r.ID
	}

	l := &Loop{
		cfg:          cfg,
		logger:       logger,
		manager:      robot.New(robots),
		planner:      plnr,
		waypoints:    waypoints,
		actuator:     actuator,
		broadcaster:  broadcast.New(),
		parser:       voice.New(waypoints, robotNames),
		classifier:   classifier,
		eegSource:    eegSource,
		startPoses:   make(map[core.RobotID]core.Pose, len(robots)),
		robots:       make(map[core.RobotID]*perRobot, len(robots)),
		sequences:    make(map[core.RobotID]*sequenceState),
		brainEnabled: true,
		voiceEnabled: true,
		latencyMS:    make([]float64, 0, cfg.LatencyHistoryLen),
	}

	l.ttsDispatcher = tts.New(defaultSynthesizer, cfg.TTSWorkerCount, cfg.TTSCooldown, l.onTTSResult, logger)

	for _, r := range robots {
		l.startPoses[r.ID] = r.Pose
		l.robots[r.ID] = l.newPerRobot(r)
	}

	return l
}

// defaultSynthesizer is the out-of-the-box Synthesizer: it returns an
// empty audio payload rather than performing network synthesis (spec §1
// "TTS synthesis internals" are explicitly out of scope). New always
// installs it; Loop has no option for supplying another Synthesizer.
func defaultSynthesizer(ctx context.Context, text string) ([]byte, error) {
	return nil, nil
}

func (l *Loop) onTTSResult(robotID core.RobotID, eventType, text string, audio []byte) {
	var audioB64 string
	if len(audio) > 0 {
		audioB64 = base64.StdEncoding.EncodeToString(audio)
	}
	l.broadcaster.Publish(broadcast.Message{
		Type: broadcast.TypeTTSRequest,
		TTS: &broadcast.TTSRequest{
			RobotID:     robotID,
			Text:        text,
			EventType:   eventType,
			AudioBase64: audioB64,
			Timestamp:   time.Now(),
		},
	})
}

// gearAnnouncements are the spoken templates for a gear-shift event
// (ported from the original ThoughtLink backend's
// VoiceFeedback.announce_gear_shift FEEDBACK_EVENTS["gear_shift"] table).
var gearAnnouncements = map[core.Gear]string{
	core.GearNeutral:     "Gear neutral.",
	core.GearForward:     "Gear forward.",
	core.GearReverse:     "Gear reverse.",
	core.GearOrchestrate: "Orchestration mode.",
}

// announceGearShift fires the gear_shift TTS event, fire-and-forget.
func (l *Loop) announceGearShift(robotID core.RobotID, g core.Gear) {
	text, ok := gearAnnouncements[g]
	if !ok {
		text = "Gear " + g.String() + "."
	}
	l.ttsDispatcher.Request(robotID, text, "gear_shift")
}

// announceNavArrived fires the nav-arrival TTS event.
func (l *Loop) announceNavArrived(robotID core.RobotID, target string) {
	l.ttsDispatcher.Request(robotID, fmt.Sprintf("Arrived at %s.", target), "nav_arrived")
}

// announceNavFailure fires the unresolved-destination TTS event (spec §7
// "Unresolvable navigation target").
func (l *Loop) announceNavFailure(robotID core.RobotID, target string) {
	l.ttsDispatcher.Request(robotID, fmt.Sprintf("Could not find destination %s.", target), "robot_error")
}

// announceCancelPrompt/announceCancelConfirmed fire the two-stage
// double-clench cancel-confirm protocol's TTS events (spec §8 scenario F).
func (l *Loop) announceCancelPrompt(robotID core.RobotID) {
	l.ttsDispatcher.Request(robotID, "Cancel navigation? Clench again to confirm.", "cancel_confirm_prompt")
}

func (l *Loop) announceCancelConfirmed(robotID core.RobotID) {
	l.ttsDispatcher.Request(robotID, "Navigation cancelled.", "cancel_confirmed")
}

func (l *Loop) newPerRobot(r *core.Robot) *perRobot {
	robotPtr := r
	holding := func() bool { return robotPtr.Holding }
	rec := gesture.New(l.cfg.Gesture)
	machine := gear.New(&r.SM, holding, l.waypoints)
	return &perRobot{fusion: fusion.New(rec, machine, &r.SM, l.cfg.VoiceHoldWindow)}
}

// Broadcaster exposes the subscriber fan-out for UI/TTS consumers.
func (l *Loop) Broadcaster() *broadcast.Broadcaster { return l.broadcaster }

// Manager exposes the fleet manager for read-only inspection (e.g. a CLI
// printing a snapshot between ticks).
func (l *Loop) Manager() *robot.Manager { return l.manager }

// Run ticks the loop at cfg.ControlPeriod until ctx is cancelled,
// mirroring the teacher's Run(ctx)/step() split (internal/sim/simulator.go).
func (l *Loop) Run(ctx context.Context) error {
	if err := l.actuator.Start(ctx); err != nil {
		return fmt.Errorf("starting actuator: %w", err)
	}
	defer l.actuator.Stop()
	defer l.ttsDispatcher.Stop()

	ticker := time.NewTicker(l.cfg.ControlPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.tick(ctx, now)
		}
	}
}

// Tick runs a single iteration synchronously; exported for tests and for
// a CLI driving the loop step-by-step instead of via Run.
func (l *Loop) Tick(ctx context.Context, now time.Time) {
	l.tick(ctx, now)
}

// tick executes one control cycle in the order fixed by spec §4.7: brain
// sample, voice pop, nav routing + sequence advance, fusion (always),
// cancel-confirm protocol, autopilot override, actuation, state
// broadcast, sequential task queue advance, latency recording.
func (l *Loop) tick(ctx context.Context, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tickStart := time.Now()
	l.tickCount++

	brainClass, brainConf, brainGated := l.sampleBrain(ctx)

	l.popAndRouteVoice(now)
	stepCmd := l.readySequenceStep(now)

	selected := l.manager.SelectedRobot()
	if selected == nil {
		return
	}
	pr := l.robots[selected.ID]
	if pr == nil {
		return
	}

	var brainPtr *core.BrainClass
	if !brainGated {
		brainPtr = &brainClass
	}

	prevGear := selected.SM.Gear
	fres := pr.fusion.Tick(now, brainPtr, stepCmd)
	if selected.SM.Gear != prevGear {
		l.announceGearShift(selected.ID, selected.SM.Gear)
	}

	if fres.Navigate != nil {
		l.startNav(selected.ID, fres.Navigate.CanonicalName, now, broadcast.LogSourceVoice)
	}
	isCancelVoice := fres.Source == core.SourceVoice && (fres.CancelNav || fres.Action == core.ActionStop || fres.Action == core.ActionEmergencyStop)
	if isCancelVoice {
		l.cancelAutopilot(selected.ID)
		delete(l.sequences, selected.ID)
	}

	if fres.IsSelectSequence {
		l.manager.SelectByDirection(fres.SelectDirection)
	}
	if fres.ToggleChanged {
		toggleLabel := "none"
		if selected.SM.ToggledAction != nil {
			toggleLabel = selected.SM.ToggledAction.String()
		}
		l.logCommand(broadcast.LogSourceBrain, "TOGGLE", toggleLabel, now)
	}
	if fres.OrchestrationTask != nil {
		l.dispatchOrchestration(*fres.OrchestrationTask, now)
	}

	l.handleCancelConfirm(fres, now)

	action := fres.Action
	source := fres.Source
	if pr.autopilot != nil && pr.autopilot.Active() {
		action = pr.autopilot.Update(planner.Point{X: selected.Pose.X, Y: selected.Pose.Y}, selected.Pose.Yaw)
		source = core.SourceAutopilot
	}

	l.actuate(ctx, selected, action)
	selected.SM.CurrentAction = action

	l.processArrivals(ctx)
	l.advanceOtherAutopilots(ctx, selected.ID)

	l.broadcastState(now, selected, brainClass, brainConf, brainGated, source)
	l.broadcastNavUpdates()

	if l.cfg.EEGBroadcastEveryN > 0 && int(l.tickCount)%l.cfg.EEGBroadcastEveryN == 0 {
		l.broadcastEEG(ctx, selected.ID)
	}

	l.advanceSequentialQueue(ctx, now)

	l.recordLatency(time.Since(tickStart))
}

func (l *Loop) sampleBrain(ctx context.Context) (class core.BrainClass, confidence float64, gated bool) {
	if !l.brainEnabled {
		return core.ClassNone, 0, true
	}
	if l.simulatedBrain != nil {
		return *l.simulatedBrain, 1.0, false
	}
	if l.classifier == nil {
		return core.ClassNone, 0, true
	}
	c, conf, ok := l.classifier.Classify(ctx)
	if !ok {
		return core.ClassNone, 0, true
	}
	if conf < l.cfg.BrainConfidenceGate {
		return core.ClassNone, conf, true
	}
	return core.NormalizeBrainClass(string(c)), conf, false
}

// popAndRouteVoice pops at most one transcript and, if it parses, starts
// or replaces the addressed robot's active sequence (spec §4.7 step 2).
// A disabled voice channel drains the whole queue without processing it.
func (l *Loop) popAndRouteVoice(now time.Time) {
	l.voiceMu.Lock()
	if len(l.voiceQueue) == 0 {
		l.voiceMu.Unlock()
		return
	}
	if !l.voiceEnabled {
		l.voiceQueue = nil
		l.voiceMu.Unlock()
		return
	}
	tr := l.voiceQueue[0]
	l.voiceQueue = l.voiceQueue[1:]
	l.voiceMu.Unlock()

	selected := l.manager.SelectedRobot()
	if selected == nil {
		return
	}

	seq, ok := l.parser.ParseSequence(tr.Text, now)
	if !ok {
		l.logCommand(broadcast.LogSourceVoice, "UNRESOLVED", tr.Text, now)
		return
	}
	l.sequences[selected.ID] = &sequenceState{robotID: selected.ID, steps: seq, idx: 0}
	l.logCommand(broadcast.LogSourceVoice, string(seq[0].Action), tr.Text, now)
}

// readySequenceStep advances the selected robot's active sequence (spec
// §4.7 step 4, §8 boundary scenario D). A NAVIGATE step is routed to the
// Autopilot directly and never returned; any other step is returned for
// this tick's fusion voice command exactly once the robot is not waiting
// on a prior NAVIGATE's arrival.
func (l *Loop) readySequenceStep(now time.Time) *core.ParsedCommand {
	selected := l.manager.SelectedRobot()
	if selected == nil {
		return nil
	}
	seq := l.sequences[selected.ID]
	if seq == nil {
		return nil
	}
	if seq.idx >= len(seq.steps) {
		delete(l.sequences, selected.ID)
		return nil
	}

	step := seq.steps[seq.idx]
	if step.Action != core.CmdNavigate {
		seq.idx++
		if seq.idx >= len(seq.steps) {
			delete(l.sequences, selected.ID)
		}
		return &step
	}

	pr := l.robots[selected.ID]
	if pr == nil {
		delete(l.sequences, selected.ID)
		return nil
	}

	onTarget := pr.autopilot != nil && pr.autopilot.TargetName() == step.Target
	if onTarget && pr.autopilot.Arrived() {
		seq.idx++
		l.announceNavArrived(selected.ID, step.Target)
		l.logCommand(broadcast.LogSourceSystem, "NAV_ARRIVED", step.Target, now)
		return l.readySequenceStep(now)
	}
	if !onTarget || !pr.autopilot.Active() {
		if !l.startNav(selected.ID, step.Target, now, broadcast.LogSourceVoice) {
			delete(l.sequences, selected.ID)
		}
	}
	return nil
}

// startNav resolves targetName and constructs a fresh Autopilot for
// robotID (spec §4.2 construction). Returns false, with a command_log
// entry, if the name does not resolve (spec §7).
func (l *Loop) startNav(robotID core.RobotID, targetName string, now time.Time, src broadcast.CommandSource) bool {
	wp, ok := l.waypoints.Resolve(targetName)
	if !ok {
		l.announceNavFailure(robotID, targetName)
		l.logCommand(broadcast.LogSourceSystem, "NAV_UNRESOLVED", targetName, now)
		return false
	}
	r := l.manager.ByID(robotID)
	pr := l.robots[robotID]
	if r == nil || pr == nil {
		return false
	}
	pr.autopilot = autopilot.NewWithThresholds(
		l.planner, wp.CanonicalName,
		planner.Point{X: wp.X, Y: wp.Y},
		planner.Point{X: r.Pose.X, Y: r.Pose.Y},
		l.cfg.ArrivalDist, l.cfg.AlignThreshold,
	)
	l.logCommand(src, "NAVIGATE", wp.CanonicalName, now)
	return true
}

func (l *Loop) cancelAutopilot(robotID core.RobotID) {
	if pr := l.robots[robotID]; pr != nil && pr.autopilot != nil {
		pr.autopilot.Cancel()
	}
}

// dispatchOrchestration resolves a confirmed orchestration task into a
// dispatch Plan and either starts every target robot navigating at once
// or enqueues them for sequential dispatch (spec §4.8).
func (l *Loop) dispatchOrchestration(task core.OrchestrationTask, now time.Time) {
	plan := l.manager.DispatchPlan(task)
	if len(plan.Targets) == 0 {
		return
	}

	if task.Action == core.OrchBackflip {
		for _, id := range plan.Targets {
			go l.fireAndForgetBackflip(id)
		}
		l.logCommand(broadcast.LogSourceBrain, string(task.Action), task.Landmark.CanonicalName, now)
		return
	}

	if !plan.Sequential {
		for _, id := range plan.Targets {
			if r := l.manager.ByID(id); r != nil {
				r.Task = &task
			}
			l.startNav(id, task.Landmark.CanonicalName, now, broadcast.LogSourceBrain)
		}
		return
	}

	for _, id := range plan.Targets {
		l.sequential = append(l.sequential, queuedTask{robotID: id, task: task})
	}
	l.logCommand(broadcast.LogSourceBrain, string(task.Action), task.Landmark.CanonicalName, now)
}

// fireAndForgetBackflip actuates a one-shot BACKFLIP outside the tick's
// own robot loop, since BACKFLIP has no autopilot phase to ride along
// with. It takes its own short-lived context rather than the tick's,
// since the actuator call must not block the caller's lock.
func (l *Loop) fireAndForgetBackflip(id core.RobotID) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := l.actuator.Execute(ctx, core.ActionBackflip, id); err != nil {
		l.logger.Warnw("backflip actuation failed", "robot", id, "err", err)
	}
}

// handleCancelConfirm implements the double-clench cancel-confirm
// protocol (spec §4.7 step 6, §8 boundary scenario F): a first
// DOUBLE_CLENCH BothFists while any robot is actively navigating opens a
// confirmation window; a second one inside CancelConfirmTimeout cancels
// every active Autopilot and clears every robot's toggle; anything else
// lets the window lapse into an auto-dismiss.
func (l *Loop) handleCancelConfirm(fres fusion.Result, now time.Time) {
	isBothFistsDouble := fres.Gesture != nil && fres.Gesture.Type == core.GestureDoubleClench && fres.Gesture.BrainClass == core.ClassBothFists

	var selectedID core.RobotID
	if selected := l.manager.SelectedRobot(); selected != nil {
		selectedID = selected.ID
	}

	if !isBothFistsDouble {
		if l.cancelConfirmPending && now.After(l.cancelConfirmDeadline) {
			l.cancelConfirmPending = false
			l.broadcaster.Publish(broadcast.Message{Type: broadcast.TypeCancelConfirmDismiss, CancelDismiss: &broadcast.CancelConfirmDismiss{RobotID: selectedID, Timestamp: now}})
		}
		return
	}

	if l.cancelConfirmPending && now.Before(l.cancelConfirmDeadline) {
		l.cancelConfirmPending = false
		for _, pr := range l.robots {
			if pr.autopilot != nil {
				pr.autopilot.Cancel()
			}
		}
		for _, r := range l.manager.AllRobots() {
			r.SM.ClearToggle()
		}
		l.sequences = make(map[core.RobotID]*sequenceState)
		l.announceCancelConfirmed(selectedID)
		l.broadcaster.Publish(broadcast.Message{Type: broadcast.TypeCancelConfirmed, CancelConfirm: &broadcast.CancelConfirmed{RobotID: selectedID, Timestamp: now}})
		return
	}

	if l.anyAutopilotActive() {
		l.cancelConfirmPending = true
		l.cancelConfirmDeadline = now.Add(l.cfg.CancelConfirmTimeout)
		l.announceCancelPrompt(selectedID)
		l.broadcaster.Publish(broadcast.Message{Type: broadcast.TypeCancelConfirmPrompt, CancelPrompt: &broadcast.CancelConfirmPrompt{RobotID: selectedID, Timestamp: now}})
	}
}

func (l *Loop) anyAutopilotActive() bool {
	for _, pr := range l.robots {
		if pr.autopilot != nil && pr.autopilot.Active() {
			return true
		}
	}
	return false
}

// actuate drives a single Execute call and folds the authoritative
// readback back into the robot's in-memory pose (spec §4.9: SimBridge is
// the only authority on pose/holding).
func (l *Loop) actuate(ctx context.Context, r *core.Robot, action core.RobotAction) {
	st, err := l.actuator.Execute(ctx, action, r.ID)
	if err != nil {
		l.logger.Warnw("actuation failed", "robot", r.ID, "action", action.String(), "err", err)
		return
	}
	r.Pose = st.Pose
	r.Holding = st.Holding
	l.manager.UpdateRobotState(r.ID, st.Pose)
}

// processArrivals applies the terminal action of any orchestration task
// whose robot has just arrived (spec §4.8: CARRY_TO grabs, STACK_TO
// releases, MOVE_TO does nothing further). Clearing Task here makes the
// check self-idempotent against Autopilot.Arrived's monotonic latch.
func (l *Loop) processArrivals(ctx context.Context) {
	for id, pr := range l.robots {
		if pr.autopilot == nil || !pr.autopilot.Arrived() {
			continue
		}
		r := l.manager.ByID(id)
		if r == nil || r.Task == nil {
			continue
		}
		var term core.RobotAction
		switch r.Task.Action {
		case core.OrchCarryTo:
			term = core.ActionGrab
		case core.OrchStackTo:
			term = core.ActionRelease
		default:
			r.Task = nil
			continue
		}
		l.actuate(ctx, r, term)
		r.Task = nil
	}
}

// advanceOtherAutopilots drives every robot besides the selected one
// that has an active Autopilot, so simultaneously-dispatched orchestration
// fleets keep moving every tick even though only the selected robot's
// fusion is evaluated this tick (spec §4.8 simultaneous dispatch).
func (l *Loop) advanceOtherAutopilots(ctx context.Context, selectedID core.RobotID) {
	for id, pr := range l.robots {
		if id == selectedID || pr.autopilot == nil || !pr.autopilot.Active() {
			continue
		}
		r := l.manager.ByID(id)
		if r == nil {
			continue
		}
		action := pr.autopilot.Update(planner.Point{X: r.Pose.X, Y: r.Pose.Y}, r.Pose.Yaw)
		l.actuate(ctx, r, action)
		r.SM.CurrentAction = action
	}
}

// advanceSequentialQueue starts the next queued orchestration task once
// the current head robot's task has fully resolved (spec §4.7 step 10,
// §4.8 sequential dispatch).
func (l *Loop) advanceSequentialQueue(ctx context.Context, now time.Time) {
	for len(l.sequential) > 0 {
		head := l.sequential[0]

		if !head.started {
			if l.startNav(head.robotID, head.task.Landmark.CanonicalName, now, broadcast.LogSourceBrain) {
				if r := l.manager.ByID(head.robotID); r != nil {
					r.Task = &head.task
				}
			}
			l.sequential[0].started = true
			return
		}

		r := l.manager.ByID(head.robotID)
		pr := l.robots[head.robotID]
		stillWorking := r != nil && r.Task != nil
		stillNavigating := pr != nil && pr.autopilot != nil && pr.autopilot.Active()
		if stillWorking || stillNavigating {
			return
		}

		l.sequential = l.sequential[1:]
	}
}

func (l *Loop) recordLatency(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if len(l.latencyMS) < l.cfg.LatencyHistoryLen {
		l.latencyMS = append(l.latencyMS, ms)
		return
	}
	l.latencyMS[l.latencyCursor] = ms
	l.latencyCursor = (l.latencyCursor + 1) % l.cfg.LatencyHistoryLen
}

// AverageLatencyMS returns the mean tick duration over the retained
// history window.
func (l *Loop) AverageLatencyMS() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.averageLatencyLocked()
}

func (l *Loop) averageLatencyLocked() float64 {
	if len(l.latencyMS) == 0 {
		return 0
	}
	var sum float64
	for _, v := range l.latencyMS {
		sum += v
	}
	return sum / float64(len(l.latencyMS))
}

// LatencyStats returns the p50, p95, and max tick duration over the
// retained latency history window (spec §4.7 step 11 "keep a bounded
// history", SPEC_FULL §C.5).
func (l *Loop) LatencyStats() (p50, p95, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.latencyMS)
	if n == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, l.latencyMS)
	sort.Float64s(sorted)

	p50 = msToDuration(sorted[percentileIndex(n, 0.50)])
	p95 = msToDuration(sorted[percentileIndex(n, 0.95)])
	max = msToDuration(sorted[n-1])
	return p50, p95, max
}

func percentileIndex(n int, p float64) int {
	idx := int(p * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func (l *Loop) logCommand(src broadcast.CommandSource, action, text string, now time.Time) {
	l.broadcaster.Publish(broadcast.Message{
		Type: broadcast.TypeCommandLog,
		CommandLog: &broadcast.CommandLog{
			Source:    src,
			Action:    action,
			Text:      text,
			Timestamp: now,
		},
	})
}

func (l *Loop) broadcastState(now time.Time, selected *core.Robot, brainClass core.BrainClass, brainConf float64, brainGated bool, source core.ActionSource) {
	states := l.manager.GetAllStates()
	snapshots := make([]broadcast.RobotSnapshot, len(states))
	for i, s := range states {
		snapshots[i] = broadcast.RobotSnapshot{
			ID: s.ID, Pose: s.Pose, Holding: s.Holding, Color: s.Color,
			Selected: s.Selected, Active: s.Active,
		}
	}

	queueLen := 0
	if seq := l.sequences[selected.ID]; seq != nil {
		queueLen = len(seq.steps) - seq.idx
	}

	l.broadcaster.Publish(broadcast.Message{
		Type: broadcast.TypeStateUpdate,
		State: &broadcast.StateUpdate{
			RobotID:         selected.ID,
			Gear:            selected.SM.Gear,
			Action:          selected.SM.CurrentAction,
			ActionSource:    source,
			BrainClass:      brainClass,
			BrainConfidence: brainConf,
			BrainGated:      brainGated,
			HoldingItem:     selected.Holding,
			ToggledAction:   selected.SM.ToggledAction,
			SelectedRobot:   selected.ID,
			Robots:          snapshots,
			Orchestration:   &selected.SM.Orchestration,
			ActionQueue:     queueLen,
			LatencyMS:       l.averageLatencyLocked(),
			Timestamp:       now,
		},
	})
}

func (l *Loop) broadcastNavUpdates() {
	for id, pr := range l.robots {
		if pr.autopilot == nil {
			continue
		}
		r := l.manager.ByID(id)
		if r == nil {
			continue
		}
		robotXY := planner.Point{X: r.Pose.X, Y: r.Pose.Y}
		targetXY := pr.autopilot.TargetXY()
		l.broadcaster.Publish(broadcast.Message{
			Type: broadcast.TypeNavUpdate,
			Nav: &broadcast.NavUpdate{
				RobotID:            id,
				Active:             pr.autopilot.Active(),
				TargetName:         pr.autopilot.TargetName(),
				TargetX:            targetXY.X,
				TargetY:            targetXY.Y,
				Distance:           pr.autopilot.DistanceTo(robotXY),
				Arrived:            pr.autopilot.Arrived(),
				WaypointsTotal:     pr.autopilot.WaypointsTotal(),
				WaypointsRemaining: pr.autopilot.WaypointsRemaining(),
			},
		})
	}
}

func (l *Loop) broadcastEEG(ctx context.Context, robotID core.RobotID) {
	if l.eegSource == nil {
		return
	}
	channels, rate, ok := l.eegSource.Window(ctx)
	if !ok {
		return
	}
	decimated := broadcast.DecimateChannels(channels, l.cfg.EEGDecimationFactor)
	l.broadcaster.Publish(broadcast.Message{
		Type: broadcast.TypeEEGData,
		EEG:  &broadcast.EEGData{RobotID: robotID, Channels: decimated, SampleRate: rate},
	})
}

// EnqueueVoice appends a transcript to the single mutex-guarded voice
// queue (spec §5 "the voice queue is the only cross-actor data
// structure"). Safe to call from any goroutine.
func (l *Loop) EnqueueVoice(tr VoiceTranscript) {
	l.voiceMu.Lock()
	defer l.voiceMu.Unlock()
	l.voiceQueue = append(l.voiceQueue, tr)
}

// EnqueueManualCommand applies a direct-operator RobotAction or pseudo-
// action immediately (spec §6 "manual_command"). Canonical RobotAction
// names bypass fusion's priority arbitration entirely, matching a
// physical button rather than a spoken instruction. SHIFT_GEAR advances
// the gear directly; BOTH_FISTS, ORCH_CONFIRM and ORCH_CANCEL synthesize
// a GestureEvent so they drive the same toggle/orchestration/cancel-
// confirm machinery a real gesture would.
func (l *Loop) EnqueueManualCommand(action ManualAction, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	selected := l.manager.SelectedRobot()
	if selected == nil {
		return
	}
	pr := l.robots[selected.ID]
	if pr == nil {
		return
	}

	switch action {
	case ManualShiftGear:
		selected.SM.Gear = selected.SM.Gear.Next()
		selected.SM.Orchestration = core.OrchestrationState{}
		l.announceGearShift(selected.ID, selected.SM.Gear)
		l.logCommand(broadcast.LogSourceManual, string(action), "", now)
		return
	case ManualBothFists:
		res := pr.fusion.InjectGesture(core.GestureEvent{Type: core.GestureQuickClench, BrainClass: core.ClassBothFists})
		if res.OrchestrationTask != nil {
			l.dispatchOrchestration(*res.OrchestrationTask, now)
		}
	case ManualOrchConfirm:
		res := pr.fusion.InjectGesture(core.GestureEvent{Type: core.GestureHoldMedium, BrainClass: core.ClassBothFists})
		if res.OrchestrationTask != nil {
			l.dispatchOrchestration(*res.OrchestrationTask, now)
		}
	case ManualOrchCancel:
		res := pr.fusion.InjectGesture(core.GestureEvent{Type: core.GestureDoubleClench, BrainClass: core.ClassBothFists})
		l.handleCancelConfirm(res, now)
	default:
		if ra, ok := parseManualRobotAction(action); ok {
			l.actuate(context.Background(), selected, ra)
			selected.SM.CurrentAction = ra
		}
	}
	l.logCommand(broadcast.LogSourceManual, string(action), "", now)
}

func parseManualRobotAction(action ManualAction) (core.RobotAction, bool) {
	switch core.CommandAction(action) {
	case core.CmdGrab:
		return core.ActionGrab, true
	case core.CmdRelease:
		return core.ActionRelease, true
	case core.CmdStop:
		return core.ActionStop, true
	case core.CmdEmergency:
		return core.ActionEmergencyStop, true
	case core.CmdMoveForward:
		return core.ActionMoveForward, true
	case core.CmdMoveBack:
		return core.ActionMoveBackward, true
	case core.CmdTurnLeft, "ROTATE_LEFT":
		return core.ActionRotateLeft, true
	case core.CmdTurnRight, "ROTATE_RIGHT":
		return core.ActionRotateRight, true
	case "HOLD":
		return core.ActionHold, true
	case "IDLE":
		return core.ActionIdle, true
	case core.CmdBackflip:
		return core.ActionBackflip, true
	}
	return core.ActionIdle, false
}

// SetBrainEnabled toggles the brain channel (spec §6 "toggle_brain").
func (l *Loop) SetBrainEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.brainEnabled = enabled
}

// SetVoiceEnabled toggles the voice channel (spec §6 "toggle_voice").
func (l *Loop) SetVoiceEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.voiceEnabled = enabled
}

// SetTestMode toggles test mode (spec §6 "toggle_test_mode"), which only
// gates whether simulate_brain is honored.
func (l *Loop) SetTestMode(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.testMode = enabled
	if !enabled {
		l.simulatedBrain = nil
	}
}

// SimulateBrain pins the sampled brain class to a fixed value, or clears
// the pin when class is nil (spec §6 "simulate_brain {class_index |
// null}"). Ignored outside test mode.
func (l *Loop) SimulateBrain(class *core.BrainClass) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.testMode {
		return
	}
	l.simulatedBrain = class
}

// SetGear force-sets the selected robot's gear directly (spec §6
// "set_gear"), clearing any in-progress orchestration sub-state.
func (l *Loop) SetGear(g core.Gear, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	selected := l.manager.SelectedRobot()
	if selected == nil {
		return
	}
	selected.SM.Gear = g
	selected.SM.Orchestration = core.OrchestrationState{}
	l.announceGearShift(selected.ID, g)
	l.logCommand(broadcast.LogSourceManual, "SET_GEAR", g.String(), now)
}

// CancelNav cancels the selected robot's autopilot and any pending
// sequence directly (spec §6 "cancel_nav"), without going through
// fusion's voice-command path.
func (l *Loop) CancelNav() {
	l.mu.Lock()
	defer l.mu.Unlock()
	selected := l.manager.SelectedRobot()
	if selected == nil {
		return
	}
	l.cancelAutopilot(selected.ID)
	delete(l.sequences, selected.ID)
}

// Reset clears gesture/toggle/voice-hold state for every robot without
// repositioning the fleet or touching in-flight autopilots (spec §6
// "reset", the lighter sibling of full_reset).
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pr := range l.robots {
		pr.fusion.Reset()
	}
	l.cancelConfirmPending = false
}

// FullReset clears gesture state, voice hold, pending sequences, the
// sequential task queue, every autopilot, and latency history, and
// repositions every robot to its start pose (spec §5 "Full reset").
func (l *Loop) FullReset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, pr := range l.robots {
		pr.fusion.Reset()
		pr.autopilot = nil
	}
	l.sequences = make(map[core.RobotID]*sequenceState)
	l.sequential = nil
	l.latencyMS = l.latencyMS[:0]
	l.latencyCursor = 0
	l.cancelConfirmPending = false
	l.simulatedBrain = nil

	l.manager.Reset(l.startPoses)
	if err := l.actuator.Reset(l.startPoses); err != nil {
		l.logger.Warnw("actuator reset failed", "err", err)
	}

	l.voiceMu.Lock()
	l.voiceQueue = nil
	l.voiceMu.Unlock()
}
