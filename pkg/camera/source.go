// Package camera provides frame sources and the camera permission boundary.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/menta2k/glasses-detector/internal/utils"
	"github.com/menta2k/glasses-detector/pkg/processing"
)

// ErrEndOfStream is returned by Read once a finite source is exhausted
var ErrEndOfStream = errors.New("end of frame stream")

// MaxFPS caps the capture rate regardless of what the device offers
const MaxFPS = 60

// Source delivers frames at a device-dependent rate
type Source interface {
	// Read blocks until the next frame is available
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// CaptureFPS returns the rate to request from a device able to deliver deviceFPS
func CaptureFPS(deviceFPS float64) float64 {
	if deviceFPS <= 0 {
		return 1
	}
	if deviceFPS > MaxFPS {
		return MaxFPS
	}
	return deviceFPS
}

// DirSource replays the image files of a directory in name order
type DirSource struct {
	files     []string
	interval  time.Duration
	loop      bool
	processor *processing.Processor

	next int
	last time.Time
}

// NewDirSource lists the image files in dir. Frames are paced at fps; loop
// restarts from the first file instead of returning ErrEndOfStream.
func NewDirSource(dir string, fps float64, loop bool) (*DirSource, error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("frames directory %s does not exist", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsImageFile(e.Name(), utils.DefaultImageExtensions) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(files)

	fps = CaptureFPS(fps)
	return &DirSource{
		files:     files,
		interval:  time.Duration(float64(time.Second) / fps),
		loop:      loop,
		processor: processing.NewProcessor(processing.FitStretch, 0),
	}, nil
}

// Len returns the number of frames in one pass
func (s *DirSource) Len() int {
	return len(s.files)
}

// Read returns the next frame, sleeping to keep the configured pace
func (s *DirSource) Read(ctx context.Context) (image.Image, error) {
	if s.next >= len(s.files) {
		if !s.loop {
			return nil, ErrEndOfStream
		}
		s.next = 0
	}

	if !s.last.IsZero() {
		if wait := s.interval - time.Since(s.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	path := s.files[s.next]
	s.next++
	s.last = time.Now()

	img, err := s.processor.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
	}
	return img, nil
}

// Close is a no-op for directory sources
func (s *DirSource) Close() error {
	return nil
}
