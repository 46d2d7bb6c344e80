package capture

import (
	"context"
	"fmt"
	"time"
)

// Geometry is the on-screen rectangle of a window. A nil *Geometry means the
// whole display is captured.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("geometry must have a positive size, got %dx%d", g.Width, g.Height)
	}
	if g.X < 0 || g.Y < 0 {
		return fmt.Errorf("geometry origin must not be negative, got %d,%d", g.X, g.Y)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// Params describes a single capture.
type Params struct {
	// Duration is the capture length in whole seconds.
	Duration int
	// Geometry optionally restricts the capture to a region of the display.
	Geometry *Geometry
	// OutputPath is overwritten if it already exists.
	OutputPath string
}

func (p Params) Validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("duration must be greater than 0 seconds")
	}
	if p.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if p.Geometry != nil {
		if err := p.Geometry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Launcher spawns capture processes.
type Launcher interface {
	Start(ctx context.Context, params Params) (Process, error)
}

// Process is a running capture. Wait must be called exactly once per started
// process, including after Stop.
type Process interface {
	// Stop asks the process to finish writing and exit. It does not block.
	Stop(ctx context.Context)
	// Wait blocks until the process exits.
	Wait(ctx context.Context) (ExitStatus, error)
	// Done is closed once the process has exited, for whatever reason.
	Done() <-chan struct{}
}

type ExitStatus struct {
	Code     int
	Signaled bool
	// Stopped is true when the exit followed a Stop request.
	Stopped   bool
	StartTime time.Time
	EndTime   time.Time
}

func (s ExitStatus) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
