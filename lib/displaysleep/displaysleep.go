// Package displaysleep keeps the display awake while a capture process runs.
//
// A screen that blanks or locks mid-recording produces a useless capture, so
// the recorder disables display sleep when ffmpeg starts and re-enables it
// once ffmpeg exits.
package displaysleep

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"github.com/tchung1970/record/lib/logger"
)

type Controller interface {
	// Disable prevents the display from sleeping.
	Disable(ctx context.Context) error
	// Enable lets the display sleep again after a previous Disable.
	Enable(ctx context.Context) error
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// New returns the controller for the current platform. When the helper binary
// is not installed a NoopController is returned.
func New() Controller {
	switch runtime.GOOS {
	case "darwin":
		if bin, err := lookPath("caffeinate"); err == nil {
			return newHelperController(bin, "-d")
		}
	case "linux":
		if bin, err := lookPath("systemd-inhibit"); err == nil {
			return newHelperController(bin,
				"--what=idle",
				"--who=record",
				"--why=screen recording in progress",
				"sleep", "infinity",
			)
		}
	}
	return NewNoopController()
}

// helperController holds display sleep off for as long as a helper process
// (caffeinate, systemd-inhibit) is alive.
type helperController struct {
	mu   sync.Mutex
	bin  string
	args []string
	cmd  *exec.Cmd
}

func newHelperController(bin string, args ...string) *helperController {
	return &helperController{bin: bin, args: args}
}

func (c *helperController) Disable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return nil
	}

	cmd := exec.Command(c.bin, c.args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		logger.FromContext(ctx).Error("failed to start display sleep helper", "bin", c.bin, "err", err)
		return err
	}
	c.cmd = cmd
	logger.FromContext(ctx).Debug("display sleep disabled", "bin", c.bin, "pid", cmd.Process.Pid)
	return nil
}

func (c *helperController) Enable(ctx context.Context) error {
	c.mu.Lock()
	cmd := c.cmd
	c.cmd = nil
	c.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		logger.FromContext(ctx).Error("failed to stop display sleep helper", "bin", c.bin, "err", err)
		_ = cmd.Process.Kill()
	}
	// the helper exits by signal; that is the expected outcome
	_ = cmd.Wait()
	logger.FromContext(ctx).Debug("display sleep re-enabled", "bin", c.bin)
	return nil
}

type NoopController struct{}

func NewNoopController() *NoopController { return &NoopController{} }

func (NoopController) Disable(context.Context) error { return nil }
func (NoopController) Enable(context.Context) error  { return nil }

// Oncer wraps a Controller and ensures that Disable and Enable are called at most once.
type Oncer struct {
	ctrl        Controller
	disableOnce sync.Once
	enableOnce  sync.Once
	disableErr  error
	enableErr   error
}

func NewOncer(c Controller) *Oncer {
	if c == nil {
		c = NewNoopController()
	}
	return &Oncer{ctrl: c}
}

func (o *Oncer) Disable(ctx context.Context) error {
	o.disableOnce.Do(func() { o.disableErr = o.ctrl.Disable(ctx) })
	return o.disableErr
}

func (o *Oncer) Enable(ctx context.Context) error {
	o.enableOnce.Do(func() { o.enableErr = o.ctrl.Enable(ctx) })
	return o.enableErr
}
