package appcatalog

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tchung1970/record/lib/capture"
	"github.com/tchung1970/record/lib/logger"
)

// focusSettle is how long window focus changes are given to take effect.
var focusSettle = 500 * time.Millisecond

const listAppsScript = `
tell application "System Events"
	set appList to {}
	repeat with proc in (every process whose background only is false)
		try
			if (count of windows of proc) > 0 then
				set appList to appList & (name of proc)
			end if
		end try
	end repeat
	return appList
end tell`

const windowGeometryScript = `
tell application "System Events"
	tell process "%s"
		if exists window 1 then
			set pos to position of window 1
			set sz to size of window 1
			return (item 1 of pos as string) & "," & (item 2 of pos as string) & "," & (item 1 of sz as string) & "," & (item 2 of sz as string)
		end if
	end tell
end tell`

// darwinCatalog talks to System Events through osascript.
type darwinCatalog struct{}

func (c *darwinCatalog) ListCandidateApps(ctx context.Context) ([]string, error) {
	out, err := runCommand(ctx, "osascript", "-e", listAppsScript)
	if err != nil {
		return nil, fmt.Errorf("listing running applications: %w", err)
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return nil, nil
	}
	return filterApps(strings.Split(raw, ", ")), nil
}

// GetWindowGeometry brings app to the front long enough to read its first
// window's frame, then hands focus back to the terminal so the cancel key
// still reaches it.
func (c *darwinCatalog) GetWindowGeometry(ctx context.Context, app string) (*capture.Geometry, error) {
	log := logger.FromContext(ctx)

	if _, err := runCommand(ctx, "osascript", "-e", fmt.Sprintf(`tell application "%s" to activate`, appleScriptQuote(app))); err != nil {
		return nil, fmt.Errorf("%w: activating %s: %w", ErrGeometryLookupFailed, app, err)
	}
	sleep(ctx, focusSettle)

	out, lookupErr := runCommand(ctx, "osascript", "-e", fmt.Sprintf(windowGeometryScript, appleScriptQuote(app)))

	term := terminalApp()
	if _, err := runCommand(ctx, "osascript", "-e", fmt.Sprintf(`tell application "%s" to activate`, term)); err != nil {
		log.Warn("failed to refocus terminal", "app", term, "err", err)
	} else {
		sleep(ctx, focusSettle)
	}

	if lookupErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGeometryLookupFailed, app, lookupErr)
	}
	return parseGeometry(string(out))
}

// parseGeometry reads "x,y,width,height". Empty output means no window.
func parseGeometry(s string) (*capture.Geometry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: unexpected window frame %q", ErrGeometryLookupFailed, s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: unexpected window frame %q", ErrGeometryLookupFailed, s)
		}
		vals[i] = v
	}
	g := &capture.Geometry{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeometryLookupFailed, err)
	}
	return g, nil
}

// terminalApp is the application hosting this process, as far as TERM_PROGRAM tells.
func terminalApp() string {
	switch os.Getenv("TERM_PROGRAM") {
	case "iTerm.app":
		return "iTerm"
	case "WezTerm":
		return "WezTerm"
	case "ghostty":
		return "Ghostty"
	default:
		return "Terminal"
	}
}

func appleScriptQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
