// Package resizer mirrors an input directory tree into an output tree,
// resizing every image it finds to a fixed JPEG resolution.
//
// Directories are walked depth-first in os.ReadDir order by a single
// goroutine, which also creates every mirrored directory before it descends
// into it. Image files are resized on a bounded worker pool, so a file is
// never written before its parent directory exists. Failures never abort the
// run; they are collected per path in the Report.
package resizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/glasses-detector/internal/utils"
	"github.com/menta2k/glasses-detector/pkg/processing"
	"github.com/menta2k/glasses-detector/pkg/types"
)

const (
	DefaultInputPath  = "input"
	DefaultOutputPath = "train-images"
	// DefaultQuality matches the JPEG quality of the original preprocessing tool
	DefaultQuality = 80
)

// Operations recorded in a Failure
const (
	OpReadDir   = "readdir"
	OpStat      = "stat"
	OpMkdir     = "mkdir"
	OpResize    = "resize"
	OpCollision = "collision"
)

// Config controls a resize run
type Config struct {
	InputPath  string
	OutputPath string
	Width      int
	Height     int
	Extensions []string
	Quality    int
	Fit        processing.Fit
	Naming     utils.Naming
	Workers    int
}

// DefaultConfig returns the settings of the original training-data tool
func DefaultConfig() Config {
	return Config{
		InputPath:  DefaultInputPath,
		OutputPath: DefaultOutputPath,
		Width:      types.InputSize,
		Height:     types.InputSize,
		Extensions: append([]string(nil), utils.DefaultImageExtensions...),
		Quality:    DefaultQuality,
		Fit:        processing.FitCover,
		Naming:     utils.NamingLastDot,
		Workers:    runtime.NumCPU(),
	}
}

// Validate checks that the configuration can be run
func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input path is required")
	}
	if c.OutputPath == "" {
		return errors.New("output path is required")
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("target size must be positive, got %dx%d", c.Width, c.Height)
	}
	if len(c.Extensions) == 0 {
		return errors.New("at least one image extension is required")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	if _, err := processing.ParseFit(string(c.Fit)); err != nil {
		return err
	}
	if _, err := utils.ParseNaming(string(c.Naming)); err != nil {
		return err
	}
	return nil
}

// Failure is one entry that could not be processed
type Failure struct {
	Path string
	Op   string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Path, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report summarises one traversal
type Report struct {
	RunID        string
	Dirs         int
	Resized      int
	Skipped      int
	BytesWritten int64
	Failures     []Failure
	Duration     time.Duration
}

// OK reports whether every entry was processed without failure
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err joins all failures into one error, or returns nil
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Resizer runs tree resizes with a fixed configuration
type Resizer struct {
	cfg       Config
	processor *processing.Processor
	logger    *slog.Logger
}

// Option configures a Resizer
type Option func(*Resizer)

// WithLogger sets the logger for progress and failures
func WithLogger(l *slog.Logger) Option {
	return func(r *Resizer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New validates cfg and creates a Resizer
func New(cfg Config, opts ...Option) (*Resizer, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resizer config: %w", err)
	}
	fit, _ := processing.ParseFit(string(cfg.Fit))
	cfg.Naming, _ = utils.ParseNaming(string(cfg.Naming))

	r := &Resizer{
		cfg:       cfg,
		processor: processing.NewProcessor(fit, cfg.Quality),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// run holds the mutable state of one traversal
type run struct {
	*Resizer
	ctx     context.Context
	group   *errgroup.Group
	targets map[string]string

	mu     sync.Mutex
	report Report
}

func (r *run) fail(path, op string, err error) {
	r.logger.Warn("entry failed", "path", path, "op", op, "err", err)
	r.mu.Lock()
	r.report.Failures = append(r.report.Failures, Failure{Path: path, Op: op, Err: err})
	r.mu.Unlock()
}

// Run walks the input tree and blocks until every dispatched resize has
// finished. The returned error is non-nil only when the run could not start
// or ctx was cancelled; per-entry problems are in Report.Failures.
func (r *Resizer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	info, err := os.Stat(r.cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input root %s is not a directory", r.cfg.InputPath)
	}
	if err := os.MkdirAll(r.cfg.OutputPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}

	logger.Info("resize started",
		"input", r.cfg.InputPath,
		"output", r.cfg.OutputPath,
		"size", fmt.Sprintf("%dx%d", r.cfg.Width, r.cfg.Height),
		"workers", r.cfg.Workers)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Workers)

	state := &run{
		Resizer: &Resizer{cfg: r.cfg, processor: r.processor, logger: logger},
		ctx:     gctx,
		group:   group,
		targets: make(map[string]string),
	}
	state.report.RunID = runID

	state.walk("")
	waitErr := group.Wait()

	report := state.report
	report.Duration = time.Since(start)

	logger.Info("resize finished",
		"dirs", report.Dirs,
		"resized", report.Resized,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
		"written", utils.FormatFileSize(report.BytesWritten),
		"duration", report.Duration.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return &report, err
	}
	if waitErr != nil {
		return &report, waitErr
	}
	return &report, nil
}

// walk processes the directory at rel, relative to the input root
func (r *run) walk(rel string) {
	dir := filepath.Join(r.cfg.InputPath, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.fail(dir, OpReadDir, err)
		return
	}

	for _, entry := range entries {
		if r.ctx.Err() != nil {
			return
		}

		childRel := filepath.Join(rel, entry.Name())
		src := filepath.Join(r.cfg.InputPath, childRel)

		info, err := os.Stat(src)
		if err != nil {
			r.fail(src, OpStat, err)
			continue
		}

		switch {
		case info.IsDir():
			// symlinked directories are not followed, so the walk cannot loop
			if entry.Type()&os.ModeSymlink != 0 {
				r.logger.Debug("skipping symlinked directory", "path", src)
				r.countSkipped()
				continue
			}
			dst := filepath.Join(r.cfg.OutputPath, childRel)
			if err := utils.EnsureDir(dst); err != nil {
				r.fail(dst, OpMkdir, err)
				continue
			}
			r.mu.Lock()
			r.report.Dirs++
			r.mu.Unlock()
			r.walk(childRel)

		case info.Mode().IsRegular() && utils.IsImageFile(entry.Name(), r.cfg.Extensions):
			r.dispatch(src, childRel)

		default:
			r.countSkipped()
		}
	}
}

func (r *run) countSkipped() {
	r.mu.Lock()
	r.report.Skipped++
	r.mu.Unlock()
}

// dispatch queues one resize, blocking while the worker pool is full
func (r *run) dispatch(src, rel string) {
	dst := utils.OutputPath(r.cfg.OutputPath, rel, "jpg", r.cfg.Naming)
	if prev, ok := r.targets[dst]; ok {
		r.fail(src, OpCollision, fmt.Errorf("output %s already produced from %s", dst, prev))
		return
	}
	r.targets[dst] = src

	r.group.Go(func() error {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if err := r.processor.ResizeFile(src, dst, r.cfg.Width, r.cfg.Height); err != nil {
			r.fail(src, OpResize, err)
			return nil
		}

		var size int64
		if info, err := os.Stat(dst); err == nil {
			size = info.Size()
		}
		r.mu.Lock()
		r.report.Resized++
		r.report.BytesWritten += size
		r.mu.Unlock()
		r.logger.Debug("resized", "src", src, "dst", dst)
		return nil
	})
}

// Job is a resize running in the background
type Job struct {
	done   chan struct{}
	report *Report
	err    error
}

// Start launches Run in a goroutine and returns its completion handle
func (r *Resizer) Start(ctx context.Context) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		j.report, j.err = r.Run(ctx)
	}()
	return j
}

// Done is closed when the run has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the run finishes and returns its result
func (j *Job) Wait() (*Report, error) {
	<-j.done
	return j.report, j.err
}
