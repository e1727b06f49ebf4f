package camera

import "fmt"

// Status is the outcome of a permission query
type Status int

const (
	Undetermined Status = iota
	Denied
	Granted
)

func (s Status) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "undetermined"
	}
}

// Permission queries and requests access to the camera
type Permission interface {
	Check() (Status, error)
	Request() (Status, error)
}

// Resolve checks the permission and, when it is not already granted,
// requests it once. Access is granted only if either step reports Granted.
func Resolve(p Permission) (bool, error) {
	status, err := p.Check()
	if err != nil {
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	if status == Granted {
		return true, nil
	}

	status, err = p.Request()
	if err != nil {
		return false, fmt.Errorf("permission request failed: %w", err)
	}
	return status == Granted, nil
}

// StaticPermission always reports the same status
type StaticPermission Status

func (p StaticPermission) Check() (Status, error)   { return Status(p), nil }
func (p StaticPermission) Request() (Status, error) { return Status(p), nil }
