// Package pipeline runs sampled camera frames through the classifier at a
// fixed target rate and writes the raw detection signal.
//
// Frames are handed over from the capture context with Submit, which never
// blocks: a single-slot mailbox keeps only the most recent frame. The
// pipeline shares the submitted image.Image until the compute context has
// converted it to a tensor (a private copy), so callers must not mutate a
// frame after submitting it. Frames replaced before a tick are dropped.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/glasses-detector/pkg/classify"
	"github.com/menta2k/glasses-detector/pkg/debounce"
	"github.com/menta2k/glasses-detector/pkg/inference"
	"github.com/menta2k/glasses-detector/pkg/processing"
	"github.com/menta2k/glasses-detector/pkg/types"
)

// DefaultTargetFPS is the evaluation rate used when none is configured
const DefaultTargetFPS = 10

// latencyWindow bounds the number of latency samples kept for Stats
const latencyWindow = 256

// Stats summarises pipeline activity since creation
type Stats struct {
	Submitted     uint64
	Processed     uint64
	Dropped       uint64
	Errors        uint64
	LatencyMean   time.Duration
	LatencyStdDev time.Duration
}

// Pipeline classifies frames and publishes the raw result into a Signal
type Pipeline struct {
	engine    inference.Engine
	signal    *debounce.Signal
	targetFPS int
	inputSize int
	logger    *slog.Logger
	onResult  func(types.Classification)

	mu        sync.Mutex
	pending   image.Image
	busy      bool
	stats     Stats
	latencies []float64
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithTargetFPS caps the evaluation rate
func WithTargetFPS(fps int) Option {
	return func(p *Pipeline) {
		if fps > 0 {
			p.targetFPS = fps
		}
	}
}

// WithInputSize overrides the square model input size
func WithInputSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.inputSize = size
		}
	}
}

// WithLogger sets the sink for frame-processing errors
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithResultHook registers a callback run on the compute context after each evaluation
func WithResultHook(fn func(types.Classification)) Option {
	return func(p *Pipeline) {
		p.onResult = fn
	}
}

// New creates a pipeline writing to signal
func New(engine inference.Engine, signal *debounce.Signal, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:    engine,
		signal:    signal,
		targetFPS: DefaultTargetFPS,
		inputSize: types.InputSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TargetFPS returns the configured evaluation rate
func (p *Pipeline) TargetFPS() int {
	return p.targetFPS
}

// Submit offers a frame from the capture context. It never blocks.
func (p *Pipeline) Submit(frame image.Image) {
	if frame == nil {
		return
	}
	p.mu.Lock()
	if p.pending != nil {
		p.stats.Dropped++
	}
	p.pending = frame
	p.stats.Submitted++
	p.mu.Unlock()
}

func (p *Pipeline) take() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	frame := p.pending
	p.pending = nil
	p.busy = frame != nil
	return frame
}

func (p *Pipeline) finish() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// Idle reports whether no frame is waiting or being evaluated
func (p *Pipeline) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending == nil && !p.busy
}

// Run evaluates the most recent frame once per tick until ctx is cancelled
func (p *Pipeline) Run(ctx context.Context) error {
	if p.engine == nil {
		return inference.ErrNoEngine
	}

	ticker := time.NewTicker(time.Second / time.Duration(p.targetFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if frame := p.take(); frame != nil {
				p.evaluate(ctx, frame)
			}
		}
	}
}

func (p *Pipeline) evaluate(ctx context.Context, frame image.Image) {
	defer p.finish()

	start := time.Now()
	tensor := processing.ToTensor(frame, p.inputSize, p.inputSize)

	scores, err := p.engine.Infer(ctx, tensor)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		p.logger.Error("frame classification failed", "err", err)
		return
	}

	result := types.Classification{
		Scores:      scores,
		Probability: classify.Probability(scores.Class0, scores.Class1),
		Detected:    classify.Raw(scores.Class0, scores.Class1),
		Latency:     elapsed,
	}
	p.signal.Set(result.Detected)

	p.mu.Lock()
	p.stats.Processed++
	p.latencies = append(p.latencies, float64(elapsed))
	if len(p.latencies) > latencyWindow {
		p.latencies = p.latencies[len(p.latencies)-latencyWindow:]
	}
	p.mu.Unlock()

	p.logger.Debug("frame classified",
		"probability", result.Probability,
		"detected", result.Detected,
		"latency", elapsed)

	if p.onResult != nil {
		p.onResult(result)
	}
}

// Stats returns a snapshot of pipeline counters and recent inference latency
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	switch len(p.latencies) {
	case 0:
	case 1:
		s.LatencyMean = time.Duration(p.latencies[0])
	default:
		mean, std := stat.MeanStdDev(p.latencies, nil)
		s.LatencyMean = time.Duration(mean)
		s.LatencyStdDev = time.Duration(std)
	}
	return s
}
