package capture

import (
	"errors"
	"strings"
)

var (
	ErrInvalidParams = errors.New("invalid capture parameters")
	// ErrSpawnFailed means the capture binary is missing or exited during startup.
	ErrSpawnFailed = errors.New("capture process failed to start")
	// ErrPermissionDenied means the OS refused screen capture to this terminal.
	ErrPermissionDenied = errors.New("screen capture permission denied")
	ErrCaptureFailed    = errors.New("capture process failed")
	ErrAlreadyWaited    = errors.New("capture process already waited on")
)

// permissionMarkers are lower-cased fragments ffmpeg prints when the OS has
// not authorized screen capture.
var permissionMarkers = []string{
	"not authorized",
	"not permitted",
	"permission denied",
	"screen recording permission",
}

// classify maps a failed capture's stderr onto the permission or fallback sentinel.
func classify(stderr string, fallback error) error {
	lower := strings.ToLower(stderr)
	for _, m := range permissionMarkers {
		if strings.Contains(lower, m) {
			return ErrPermissionDenied
		}
	}
	return fallback
}
