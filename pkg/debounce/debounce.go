// Package debounce converts a rapidly updating raw boolean into a stable
// boolean that only changes after two consecutive polls agree.
package debounce

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the poll cadence used when none is configured
const DefaultInterval = 300 * time.Millisecond

// Debouncer publishes a stable state derived from a Signal.
// prevRaw and stable are only touched by Poll, which must not be called
// concurrently with itself.
type Debouncer struct {
	signal   *Signal
	interval time.Duration
	onChange func(bool)
	logger   *slog.Logger

	prevRaw bool
	mu      sync.RWMutex
	stable  bool
}

// Option configures a Debouncer
type Option func(*Debouncer)

// WithInterval sets the poll interval
func WithInterval(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.interval = d
		}
	}
}

// WithOnChange registers the callback invoked from the poll goroutine
// whenever the stable state is published.
func WithOnChange(fn func(bool)) Option {
	return func(db *Debouncer) {
		db.onChange = fn
	}
}

// WithLogger sets the logger used for state transitions
func WithLogger(l *slog.Logger) Option {
	return func(db *Debouncer) {
		if l != nil {
			db.logger = l
		}
	}
}

// New creates a Debouncer reading from signal. Both prevRaw and the stable
// state start false.
func New(signal *Signal, opts ...Option) *Debouncer {
	d := &Debouncer{
		signal:   signal,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Interval returns the configured poll interval
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

// Stable returns the currently published state
func (d *Debouncer) Stable() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stable
}

// Poll samples the signal once and publishes it if it matches the previous
// sample and differs from the stable state. It reports whether a publish
// happened.
func (d *Debouncer) Poll() bool {
	return d.observe(d.signal.Get())
}

func (d *Debouncer) observe(raw bool) bool {
	changed := false

	d.mu.Lock()
	if d.prevRaw == raw && raw != d.stable {
		d.stable = raw
		changed = true
	}
	d.mu.Unlock()

	d.prevRaw = raw

	if changed {
		d.logger.Debug("stable state changed", "detected", raw)
		if d.onChange != nil {
			d.onChange(raw)
		}
	}
	return changed
}

// Run polls on a fixed ticker until ctx is cancelled. The ticker is stopped
// before Run returns.
func (d *Debouncer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Poll()
		}
	}
}

// Loop is a running poll goroutine
type Loop struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs d in its own goroutine until the returned Loop is stopped or
// ctx is cancelled.
func Start(ctx context.Context, d *Debouncer) *Loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &Loop{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		d.Run(ctx)
	}()
	return l
}

// Stop cancels the loop and waits for the poll goroutine to exit. It is
// safe to call more than once.
func (l *Loop) Stop() {
	l.once.Do(l.cancel)
	<-l.done
}

// Done is closed once the poll goroutine has exited
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
