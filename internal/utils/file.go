package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultImageExtensions are the file types picked up by the resizer
var DefaultImageExtensions = []string{"jpg", "jpeg", "png", "gif"}

// Naming selects how the original extension is removed from an output path
type Naming string

const (
	// NamingLastDot strips only the final extension: photo.v2.png -> photo.v2.jpg
	NamingLastDot Naming = "last-dot"
	// NamingFirstDot truncates the relative path at its first dot: photo.v2.png -> photo.jpg
	NamingFirstDot Naming = "first-dot"
)

// ParseNaming validates a naming mode
func ParseNaming(s string) (Naming, error) {
	switch Naming(strings.ToLower(s)) {
	case NamingLastDot, "":
		return NamingLastDot, nil
	case NamingFirstDot:
		return NamingFirstDot, nil
	default:
		return "", fmt.Errorf("unknown naming mode %q (use last-dot or first-dot)", s)
	}
}

// EnsureDir creates a single directory level. An existing directory is not
// an error; an existing non-directory is.
func EnsureDir(dir string) error {
	err := os.Mkdir(dir, 0755)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return err
	}
	info, statErr := os.Stat(dir)
	if statErr != nil {
		return statErr
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", dir)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile reports whether filename ends in one of exts, compared case-insensitively
func IsImageFile(filename string, exts []string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return false
	}
	for _, imgExt := range exts {
		if strings.EqualFold(ext, imgExt) {
			return true
		}
	}
	return false
}

// OutputPath maps rel, a slash- or OS-separated path relative to the input
// root, to its location under outputRoot with the original extension
// replaced by ext.
func OutputPath(outputRoot, rel, ext string, naming Naming) string {
	var stem string
	switch naming {
	case NamingFirstDot:
		stem = rel
		if i := strings.Index(rel, "."); i >= 0 {
			stem = rel[:i]
		}
	default:
		stem = strings.TrimSuffix(rel, filepath.Ext(rel))
	}
	return filepath.Join(outputRoot, stem+"."+ext)
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
