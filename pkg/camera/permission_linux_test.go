package camera

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDevicePermission(t *testing.T) {
	if got := NewDevicePermission(2).Path; got != "/dev/video2" {
		t.Errorf("Expected /dev/video2, got %s", got)
	}

	missing := DevicePermission{Path: filepath.Join(t.TempDir(), "video9")}
	status, err := missing.Check()
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status != Undetermined {
		t.Errorf("Expected undetermined for a missing device, got %s", status)
	}

	node := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(node, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	status, err = DevicePermission{Path: node}.Request()
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if status != Granted {
		t.Errorf("Expected granted for an accessible node, got %s", status)
	}
}
