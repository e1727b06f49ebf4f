//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DeviceSource captures frames from a local camera through OpenCV
type DeviceSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenDevice opens camera index and caps its rate to CaptureFPS
func OpenDevice(index int) (*DeviceSource, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	fps := CaptureFPS(capture.Get(gocv.VideoCaptureFPS))
	capture.Set(gocv.VideoCaptureFPS, fps)

	return &DeviceSource{capture: capture, mat: gocv.NewMat()}, nil
}

// Read grabs the next frame. The returned image is a fresh copy.
func (s *DeviceSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.mat); !ok {
		return nil, ErrEndOfStream
	}
	if s.mat.Empty() {
		return nil, fmt.Errorf("camera returned an empty frame")
	}
	return s.mat.ToImage()
}

func (s *DeviceSource) Close() error {
	if err := s.mat.Close(); err != nil {
		return err
	}
	return s.capture.Close()
}
