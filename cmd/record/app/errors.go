package app

import (
	"context"
	"errors"
	"strings"

	"github.com/tchung1970/record/lib/capture"
	"github.com/tchung1970/record/lib/deps"
	"github.com/tchung1970/record/lib/session"
)

// ErrInvalidSelection is recovered from by recording the first application.
var ErrInvalidSelection = errors.New("invalid selection")

// errQuit ends the flow without recording and without an error.
var errQuit = errors.New("quit")

// reportedError has already been printed to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already shown to the user by the app.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// ExitCode maps the result of Run onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		// interrupted by a signal before anything was recorded
		return 0
	default:
		return 1
	}
}

// Hint returns a corrective suggestion for err, or "".
func Hint(err error, goos string) string {
	switch {
	case errors.Is(err, deps.ErrMissingDependency):
		if mgr, ok := deps.ManagerFor(goos); ok {
			return "Install ffmpeg with `" + strings.Join(mgr.CommandFor("ffmpeg"), " ") + "` and run again."
		}
		return "Install ffmpeg and make sure it is on your PATH."
	case errors.Is(err, capture.ErrPermissionDenied):
		if goos == "darwin" {
			return "Allow your terminal under System Settings > Privacy & Security > Screen Recording, then restart the terminal."
		}
		return "Make sure the X display in RECORD_DISPLAY is reachable from this session (check $DISPLAY and xhost)."
	case errors.Is(err, capture.ErrSpawnFailed):
		return "Check that RECORD_FFMPEG_PATH points to a working ffmpeg and RECORD_DISPLAY names a valid capture device."
	case errors.Is(err, capture.ErrCaptureFailed):
		return "Run again with RECORD_LOG_LEVEL=debug to see the ffmpeg output."
	case errors.Is(err, session.ErrTerminalRestore), errors.Is(err, session.ErrInputFailed):
		return "Type `reset` and press Enter if your terminal behaves oddly."
	default:
		return ""
	}
}
