//go:build !gocv

package camera

import (
	"context"
	"errors"
	"image"
)

// ErrNoDeviceSupport is returned when the binary was built without the gocv tag
var ErrNoDeviceSupport = errors.New("camera device capture requires building with -tags gocv")

// DeviceSource is unavailable without gocv
type DeviceSource struct{}

// OpenDevice always fails without gocv
func OpenDevice(index int) (*DeviceSource, error) {
	return nil, ErrNoDeviceSupport
}

func (s *DeviceSource) Read(ctx context.Context) (image.Image, error) {
	return nil, ErrNoDeviceSupport
}

func (s *DeviceSource) Close() error {
	return nil
}
