// Package appcatalog lists the desktop applications a user can record and
// looks up where their windows are on screen.
package appcatalog

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/tchung1970/record/lib/capture"
)

var (
	// ErrGeometryLookupFailed is not fatal: the caller records the full display instead.
	ErrGeometryLookupFailed = errors.New("window geometry lookup failed")
	ErrUnsupportedPlatform  = errors.New("application listing is not supported on this platform")
)

// Catalog enumerates candidate applications and their window geometry.
type Catalog interface {
	// ListCandidateApps returns app names sorted alphabetically, without
	// system and background processes.
	ListCandidateApps(ctx context.Context) ([]string, error)
	// GetWindowGeometry returns the frontmost window of app. A nil geometry
	// with a nil error means the app has no window.
	GetWindowGeometry(ctx context.Context, app string) (*capture.Geometry, error)
}

// systemProcesses never show up as recording candidates.
var systemProcesses = []string{
	"Terminal",
	"Finder",
	"Dock",
	"SystemUIServer",
	"Control Center",
	"WindowServer",
	"loginwindow",
	"Spotlight",
	"NotificationCenter",
	"StatusBarServer",
	"UserEventAgent",
	"TextInputMenuAgent",
}

// runCommand runs an external helper and returns its stdout. Swapped in tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// New returns the catalog for the running platform.
func New() Catalog {
	return newForOS(runtime.GOOS)
}

func newForOS(goos string) Catalog {
	switch goos {
	case "darwin":
		return &darwinCatalog{}
	case "linux":
		return &linuxCatalog{}
	default:
		return unsupportedCatalog{}
	}
}

// HelperBinary names the external program the platform catalog shells out to.
func HelperBinary(goos string) string {
	switch goos {
	case "darwin":
		return "osascript"
	case "linux":
		return "wmctrl"
	default:
		return ""
	}
}

// filterApps drops blanks, duplicates and system processes, then sorts.
func filterApps(names []string) []string {
	apps := lo.Uniq(lo.FilterMap(names, func(name string, _ int) (string, bool) {
		name = strings.TrimSpace(name)
		return name, name != "" && !lo.Contains(systemProcesses, name)
	}))
	sort.Strings(apps)
	return apps
}

type unsupportedCatalog struct{}

func (unsupportedCatalog) ListCandidateApps(context.Context) ([]string, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedCatalog) GetWindowGeometry(context.Context, string) (*capture.Geometry, error) {
	return nil, ErrUnsupportedPlatform
}
