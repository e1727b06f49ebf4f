package camera

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// DevicePermission grants camera access when the process may open the
// video device node for reading and writing.
type DevicePermission struct {
	Path string
}

// NewDevicePermission returns a permission for /dev/video<index>
func NewDevicePermission(index int) DevicePermission {
	return DevicePermission{Path: fmt.Sprintf("/dev/video%d", index)}
}

func (p DevicePermission) Check() (Status, error) {
	err := unix.Access(p.Path, unix.R_OK|unix.W_OK)
	switch {
	case err == nil:
		return Granted, nil
	case errors.Is(err, unix.ENOENT):
		return Undetermined, nil
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return Denied, nil
	default:
		return Undetermined, err
	}
}

// Request re-checks access; there is no interactive prompt on Linux
func (p DevicePermission) Request() (Status, error) {
	return p.Check()
}
