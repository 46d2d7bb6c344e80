package appcatalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/tchung1970/record/lib/capture"
)

// linuxCatalog reads the X11 window list from wmctrl.
type linuxCatalog struct{}

type x11Window struct {
	desktop  int
	geometry capture.Geometry
	app      string
}

func (c *linuxCatalog) windows(ctx context.Context) ([]x11Window, error) {
	out, err := runCommand(ctx, "wmctrl", "-lGx")
	if err != nil {
		return nil, err
	}
	return parseWmctrl(string(out)), nil
}

func (c *linuxCatalog) ListCandidateApps(ctx context.Context) ([]string, error) {
	wins, err := c.windows(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing windows: %w", err)
	}
	return filterApps(lo.Map(wins, func(w x11Window, _ int) string { return w.app })), nil
}

func (c *linuxCatalog) GetWindowGeometry(ctx context.Context, app string) (*capture.Geometry, error) {
	wins, err := c.windows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGeometryLookupFailed, app, err)
	}
	w, ok := lo.Find(wins, func(w x11Window) bool { return w.app == app })
	if !ok {
		return nil, nil
	}
	g := w.geometry
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeometryLookupFailed, err)
	}
	return &g, nil
}

// parseWmctrl parses `wmctrl -lGx` lines:
//
//	0x03a00007  0 2560 0    1280 1400 firefox.Firefox  host Title
//
// Sticky windows (desktop -1) are panels and docks and are skipped.
func parseWmctrl(out string) []x11Window {
	var wins []x11Window
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) < 7 {
			continue
		}
		nums := make([]int, 5)
		ok := true
		for i := range nums {
			v, err := strconv.Atoi(f[i+1])
			if err != nil {
				ok = false
				break
			}
			nums[i] = v
		}
		if !ok || nums[0] < 0 {
			continue
		}
		class := f[6]
		if i := strings.LastIndexByte(class, '.'); i >= 0 {
			class = class[i+1:]
		}
		wins = append(wins, x11Window{
			desktop:  nums[0],
			geometry: capture.Geometry{X: nums[1], Y: nums[2], Width: nums[3], Height: nums[4]},
			app:      class,
		})
	}
	return wins
}
