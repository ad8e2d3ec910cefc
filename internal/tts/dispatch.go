// Package tts dispatches text-to-speech requests to a bounded worker pool
// so synthesis — the system's only permitted blocking I/O (spec §5) —
// never runs on the supervisory loop's goroutine.
//
// Synthesis itself is an opaque byte-producing callable (spec §1); this
// package only owns the queue, the worker goroutines, and the per-event
// cooldown table. Grounded on the teacher's worker-goroutine + channel
// task queue pattern
// (ScottDWilson-robot-challenge/b-librobot/librobot/librobot_robot.go:
// taskQueue chan *robotTask, stopWorker chan struct{}).
package tts

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"

	"github.com/elektrokombinacija/bci-robot-core/internal/core"
)

// Synthesizer is the opaque TTS backend: text in, encoded audio bytes
// out. A real backend blocks on a network call; Dispatcher is what keeps
// that off the control loop.
type Synthesizer func(ctx context.Context, text string) ([]byte, error)

// queueDepth bounds the pending-request channel. A full queue drops the
// newest request rather than blocking the publisher (spec §4.9/§9:
// "dropped messages are acceptable").
const queueDepth = 32

// request is one queued synthesis job.
type request struct {
	robotID   core.RobotID
	text      string
	eventType string
}

// Dispatcher is a fixed-size worker pool draining a bounded request
// queue, with a per-event-type cooldown that suppresses a repeat
// announcement before the previous one would plausibly have finished
// playing.
type Dispatcher struct {
	synth    Synthesizer
	onResult func(robotID core.RobotID, eventType, text string, audio []byte)
	logger   golog.Logger
	cooldown time.Duration

	queue chan request
	stop  chan struct{}
	wg    sync.WaitGroup

	mu       sync.Mutex
	lastSent map[string]time.Time // eventType -> last dispatch time
}

// New creates a Dispatcher with workerCount worker goroutines, a shared
// Synthesizer backend, a per-event cooldown, and an onResult callback
// invoked with each successful synthesis's audio bytes (e.g. to wrap into
// a broadcast.TTSRequest with AudioBase64 populated).
func New(synth Synthesizer, workerCount int, cooldown time.Duration, onResult func(robotID core.RobotID, eventType, text string, audio []byte), logger golog.Logger) *Dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	d := &Dispatcher{
		synth:    synth,
		onResult: onResult,
		logger:   logger,
		cooldown: cooldown,
		queue:    make(chan request, queueDepth),
		stop:     make(chan struct{}),
		lastSent: make(map[string]time.Time),
	}
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Request enqueues a fire-and-forget synthesis job for (robotID, text,
// eventType). Suppressed by the cooldown table if the same eventType
// fired too recently; dropped with a warning log if the queue is full
// (spec §5:
// "the loop never awaits synthesis results").
func (d *Dispatcher) Request(robotID core.RobotID, text, eventType string) {
	d.mu.Lock()
	last, seen := d.lastSent[eventType]
	if seen && time.Since(last) < d.cooldown {
		d.mu.Unlock()
		return
	}
	d.lastSent[eventType] = time.Now()
	d.mu.Unlock()

	select {
	case d.queue <- request{robotID: robotID, text: text, eventType: eventType}:
	default:
		d.logger.Warnw("tts queue full, dropping request", "event_type", eventType)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case req := <-d.queue:
			d.synthesize(req)
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) synthesize(req request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	audio, err := d.synth(ctx, req.text)
	if err != nil {
		d.logger.Errorw("tts synthesis failed", "event_type", req.eventType, "err", err)
		return
	}
	if d.onResult != nil {
		d.onResult(req.robotID, req.eventType, req.text, audio)
	}
}

// Stop signals every worker to exit and waits for them to return.
// Requests still queued at that point may never be synthesized.
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
}
