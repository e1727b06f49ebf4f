// Package glassesdetector provides real-time glasses detection on camera
// frames with a debounced, user-visible result.
//
// Frames flow from a camera.Source into a pipeline.Pipeline, which samples
// them at a target rate, runs the classifier through an inference.Engine and
// writes a raw boolean into a debounce.Signal. A debounce.Debouncer polls that
// signal and publishes a stable state only after two consecutive polls agree.
//
// Basic usage:
//
//	det := glassesdetector.New(glassesdetector.Options{
//		Permission: camera.NewDevicePermission(0),
//		OnChange: func(detected bool) {
//			fmt.Println(classify.Label(detected))
//		},
//	})
//	defer det.Close()
//
//	engine, err := ollama.NewClient("http://localhost:11434", "openbmb/minicpm-v4.5")
//	if err != nil {
//		log.Fatal(err)
//	}
//	det.SetEngine(engine)
//
//	src, err := camera.NewDirSource("frames", 30, true)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := det.Run(ctx, src); err != nil {
//		log.Fatal(err)
//	}
//
// The poll loop and the compute loop only exist while an engine is attached
// and the context given to Start is live. Attaching a different engine, or
// calling Start again, tears both down before starting new ones; the stable
// state itself survives.
package glassesdetector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/menta2k/glasses-detector/pkg/camera"
	"github.com/menta2k/glasses-detector/pkg/debounce"
	"github.com/menta2k/glasses-detector/pkg/inference"
	"github.com/menta2k/glasses-detector/pkg/pipeline"
	"github.com/menta2k/glasses-detector/pkg/types"
)

// Version of the glasses detector library
const Version = "1.0.0"

// ErrPermissionDenied is returned when camera access was not granted; no
// frame processing happens in that case.
var ErrPermissionDenied = errors.New("camera permission not granted")

// ErrClosed is returned by Start and Run once the detector was closed
var ErrClosed = errors.New("detector closed")

// SettleTimeout bounds how long Run waits for the last frame of a finished
// source to be evaluated and confirmed
const SettleTimeout = 30 * time.Second

// Options configures a Detector
type Options struct {
	PollInterval time.Duration
	TargetFPS    int
	InputSize    int
	Logger       *slog.Logger

	// Permission defaults to always granted
	Permission camera.Permission
	// OnChange runs on the poll goroutine. It must not call SetEngine or Close.
	OnChange func(detected bool)
	// OnResult runs on the compute goroutine after every evaluated frame
	OnResult func(types.Classification)
}

// Detector owns the signal, the debouncer and the per-engine loops
type Detector struct {
	opts      Options
	logger    *slog.Logger
	signal    *debounce.Signal
	debouncer *debounce.Debouncer

	// lifeMu serialises Start, SetEngine and Close
	lifeMu  sync.Mutex
	parent  context.Context
	closed  bool
	engine  inference.Engine
	loop    *debounce.Loop
	stopRun context.CancelFunc
	runDone chan struct{}

	// mu guards the current pipeline and the exit channels of both loops
	mu       sync.Mutex
	pipe     *pipeline.Pipeline
	pipeDone <-chan struct{}
	pollDone <-chan struct{}
}

// New creates a Detector. Nothing runs until Start or Run is called and an
// engine is attached.
func New(opts Options) *Detector {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Permission == nil {
		opts.Permission = camera.StaticPermission(camera.Granted)
	}

	signal := debounce.NewSignal()
	d := &Detector{
		opts:   opts,
		logger: opts.Logger,
		signal: signal,
	}
	d.debouncer = debounce.New(signal,
		debounce.WithInterval(opts.PollInterval),
		debounce.WithLogger(opts.Logger),
		debounce.WithOnChange(d.publish),
	)
	return d
}

func (d *Detector) publish(detected bool) {
	d.logger.Info("detection changed", "detected", detected)
	if d.opts.OnChange != nil {
		d.opts.OnChange(detected)
	}
}

// Start resolves the camera permission and arms the detector under ctx. If an
// engine is already attached its loops start immediately. Calling Start again
// replaces the previous loops with ones bound to the new ctx.
func (d *Detector) Start(ctx context.Context) error {
	granted, err := camera.Resolve(d.opts.Permission)
	if err != nil {
		return err
	}
	if !granted {
		return ErrPermissionDenied
	}

	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.stopLocked()
	d.parent = ctx
	d.startLocked()
	return nil
}

// SetEngine attaches a new engine, or detaches with nil. Running loops are
// stopped before the new ones start.
func (d *Detector) SetEngine(engine inference.Engine) {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	d.stopLocked()
	d.engine = engine
	if d.parent != nil && !d.closed {
		d.startLocked()
	}
}

func (d *Detector) startLocked() {
	if d.engine == nil || d.loop != nil {
		return
	}

	opts := []pipeline.Option{
		pipeline.WithTargetFPS(d.opts.TargetFPS),
		pipeline.WithInputSize(d.opts.InputSize),
		pipeline.WithLogger(d.logger),
	}
	if d.opts.OnResult != nil {
		opts = append(opts, pipeline.WithResultHook(d.opts.OnResult))
	}
	pipe := pipeline.New(d.engine, d.signal, opts...)

	ctx, cancel := context.WithCancel(d.parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := pipe.Run(ctx); err != nil {
			d.logger.Error("frame pipeline stopped", "err", err)
		}
	}()

	loop := debounce.Start(d.parent, d.debouncer)

	d.mu.Lock()
	d.pipe = pipe
	d.pipeDone = done
	d.pollDone = loop.Done()
	d.mu.Unlock()
	d.stopRun = cancel
	d.runDone = done
	d.loop = loop
	d.logger.Debug("detector loops started", "target_fps", pipe.TargetFPS(), "poll_interval", d.debouncer.Interval())
}

func (d *Detector) stopLocked() {
	if d.loop == nil {
		return
	}
	d.loop.Stop()
	d.stopRun()
	<-d.runDone

	d.mu.Lock()
	d.pipe = nil
	d.pipeDone = nil
	d.pollDone = nil
	d.mu.Unlock()
	d.loop = nil
	d.stopRun = nil
	d.runDone = nil
	d.logger.Debug("detector loops stopped")
}

func exited(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// live returns the current pipeline while both of its loops are running
func (d *Detector) live() *pipeline.Pipeline {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pipe == nil || exited(d.pipeDone) || exited(d.pollDone) {
		return nil
	}
	return d.pipe
}

// Ready reports whether an engine is attached and its loops are running
func (d *Detector) Ready() bool {
	return d.live() != nil
}

// Submit hands a frame from the capture context to the current pipeline.
// Frames are ignored while no engine is ready.
func (d *Detector) Submit(frame image.Image) {
	if pipe := d.live(); pipe != nil {
		pipe.Submit(frame)
	}
}

// Stable returns the debounced detection state
func (d *Detector) Stable() bool {
	return d.debouncer.Stable()
}

// Stats returns the counters of the current pipeline
func (d *Detector) Stats() pipeline.Stats {
	d.mu.Lock()
	pipe := d.pipe
	d.mu.Unlock()
	if pipe == nil {
		return pipeline.Stats{}
	}
	return pipe.Stats()
}

// settled reports whether the last submitted frame has been evaluated and the
// stable state agrees with its reading
func (d *Detector) settled() bool {
	pipe := d.live()
	if pipe == nil {
		return true
	}
	return pipe.Idle() && d.debouncer.Stable() == d.signal.Get()
}

// WaitSettled blocks until the pending frame has been evaluated and the stable
// state has confirmed it, or until ctx ends or SettleTimeout passes. It
// reports whether the detector settled.
func (d *Detector) WaitSettled(ctx context.Context) bool {
	timeout := time.NewTimer(SettleTimeout)
	defer timeout.Stop()

	every := d.debouncer.Interval() / 4
	if every < time.Millisecond {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for !d.settled() {
		select {
		case <-ctx.Done():
			return false
		case <-timeout.C:
			return false
		case <-ticker.C:
		}
	}
	return true
}

// Run starts the detector and pumps frames from src until ctx is cancelled
// or the source ends. Read errors are logged and skipped.
func (d *Detector) Run(ctx context.Context, src camera.Source) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	for {
		frame, err := src.Read(ctx)
		switch {
		case err == nil:
			d.Submit(frame)
		case errors.Is(err, camera.ErrEndOfStream):
			d.logger.Debug("frame source ended")
			if !d.WaitSettled(ctx) && ctx.Err() == nil {
				d.logger.Warn("last frame not confirmed before timeout", "timeout", SettleTimeout)
			}
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			d.logger.Error("frame read failed", "err", err)
		}
	}
}

// Close stops all loops and closes the attached engine
func (d *Detector) Close() error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.stopLocked()
	if d.engine != nil {
		if err := d.engine.Close(); err != nil {
			return fmt.Errorf("failed to close engine: %w", err)
		}
	}
	return nil
}
