//go:build !linux

package camera

import "fmt"

// DevicePermission is granted unconditionally where device nodes cannot be probed
type DevicePermission struct {
	Path string
}

// NewDevicePermission returns a permission for camera <index>
func NewDevicePermission(index int) DevicePermission {
	return DevicePermission{Path: fmt.Sprintf("camera%d", index)}
}

func (p DevicePermission) Check() (Status, error)   { return Granted, nil }
func (p DevicePermission) Request() (Status, error) { return Granted, nil }
