package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tchung1970/record/lib/displaysleep"
	"github.com/tchung1970/record/lib/logger"
)

const (
	// arbitrary value to indicate we have not yet received an exit code from the process
	exitCodeInitValue = math.MinInt

	// the exit codes returned by the stdlib:
	// -1 if the process hasn't exited yet or was terminated by a signal
	// 0 if the process exited successfully
	// >0 if the process exited with a non-zero exit code
	exitCodeProcessDoneMinValue = -1

	// ffmpeg exits with 255 when it is interrupted by a signal.
	exitCodeFFmpegInterrupted = 255

	FrameRate = 30

	defaultStartupWindow = 250 * time.Millisecond
	defaultStopTimeout   = 5 * time.Second
)

// FFmpegLauncher starts ffmpeg screen captures.
type FFmpegLauncher struct {
	binaryPath  string // path to the ffmpeg binary to execute. Defaults to "ffmpeg".
	display     string
	goos        string
	stopTimeout time.Duration
	// startupWindow is how long Start watches for ffmpeg dying on bad input.
	startupWindow time.Duration
	sleepCtrl     displaysleep.Controller
}

// NewFFmpegLauncher returns a launcher for the given ffmpeg binary and capture
// input device. An empty display selects the platform default.
func NewFFmpegLauncher(pathToFFmpeg, display string, stopTimeout time.Duration, ctrl displaysleep.Controller) *FFmpegLauncher {
	if pathToFFmpeg == "" {
		pathToFFmpeg = "ffmpeg"
	}
	if display == "" {
		display = DefaultDisplay(runtime.GOOS)
	}
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &FFmpegLauncher{
		binaryPath:    pathToFFmpeg,
		display:       display,
		goos:          runtime.GOOS,
		stopTimeout:   stopTimeout,
		startupWindow: defaultStartupWindow,
		sleepCtrl:     ctrl,
	}
}

// DefaultDisplay is the capture input device used when none is configured.
func DefaultDisplay(goos string) string {
	if goos == "darwin" {
		// avfoundation device index of the main screen
		return "1"
	}
	return ":0.0"
}

// Start launches ffmpeg. The returned Process must be waited on exactly once.
func (l *FFmpegLauncher) Start(ctx context.Context, params Params) (Process, error) {
	log := logger.FromContext(ctx)

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	args, err := ffmpegArgs(l.goos, l.display, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	log.Info(fmt.Sprintf("%s %s", l.binaryPath, strings.Join(args, " ")))

	fp := &FFmpegProcess{
		binaryPath:  l.binaryPath,
		args:        args,
		outputPath:  params.OutputPath,
		stopTimeout: l.stopTimeout,
		stderr:      newTailBuffer(stderrTailSize),
		exitCode:    exitCodeInitValue,
		exited:      make(chan struct{}),
		stz:         displaysleep.NewOncer(l.sleepCtrl),
	}
	if err := fp.start(ctx, l.startupWindow); err != nil {
		return nil, err
	}
	return fp, nil
}

// FFmpegProcess is a single running ffmpeg capture.
type FFmpegProcess struct {
	mu sync.Mutex

	binaryPath    string
	args          []string
	outputPath    string
	stopTimeout   time.Duration
	cmd           *exec.Cmd
	stderr        *tailBuffer
	startTime     time.Time
	endTime       time.Time
	ffmpegErr     error
	exitCode      int
	signaled      bool
	stopRequested bool
	exited        chan struct{}
	stopOnce      sync.Once
	waited        atomic.Bool
	stz           *displaysleep.Oncer
}

func (fp *FFmpegProcess) start(ctx context.Context, startupWindow time.Duration) error {
	if err := fp.stz.Disable(ctx); err != nil {
		// not fatal: the capture still works, the display may just sleep
		logger.FromContext(ctx).Warn("failed to disable display sleep", "err", err)
	}

	cmd := exec.Command(fp.binaryPath, fp.args...)
	// create process group to ensure all processes are signaled together
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// stdin stays unattached so ffmpeg never consumes the cancel key
	cmd.Stderr = fp.stderr

	fp.mu.Lock()
	fp.cmd = cmd
	fp.startTime = time.Now()
	fp.mu.Unlock()

	if err := cmd.Start(); err != nil {
		_ = fp.stz.Enable(ctx)
		fp.mu.Lock()
		fp.ffmpegErr = err
		fp.cmd = nil
		close(fp.exited)
		fp.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	// Launch background waiter to capture process completion.
	go fp.waitForCommand(context.WithoutCancel(ctx))

	// Check for startup errors before returning
	if err := waitForChan(ctx, startupWindow, fp.exited); err == nil {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		if fp.exitCode != 0 {
			fp.waited.Store(true)
			return fmt.Errorf("%w: exit code %d: %s", classify(fp.stderr.String(), ErrSpawnFailed), fp.exitCode, lastLine(fp.stderr.String()))
		}
	}

	return nil
}

// waitForCommand should be run in the background to wait for the ffmpeg process to complete and
// update the internal state accordingly.
func (fp *FFmpegProcess) waitForCommand(ctx context.Context) {
	defer fp.stz.Enable(ctx)

	log := logger.FromContext(ctx)

	err := fp.cmd.Wait()

	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.ffmpegErr = err
	fp.exitCode = fp.cmd.ProcessState.ExitCode()
	if ws, ok := fp.cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
		fp.signaled = ws.Signaled()
	}
	fp.endTime = time.Now()
	close(fp.exited)

	if err != nil {
		log.Info("ffmpeg process completed with error", "err", err, "exitCode", fp.exitCode, "signaled", fp.signaled)
	} else {
		log.Info("ffmpeg process completed successfully", "exitCode", fp.exitCode)
	}
}

// Stop gracefully stops the capture. It returns immediately; if ffmpeg does
// not exit within the stop timeout it is terminated, then killed.
func (fp *FFmpegProcess) Stop(ctx context.Context) {
	fp.stopOnce.Do(func() {
		fp.mu.Lock()
		fp.stopRequested = true
		fp.mu.Unlock()

		go func() {
			if err := fp.shutdownInPhases(context.WithoutCancel(ctx), []shutdownPhase{
				{"wake_and_interrupt", []syscall.Signal{syscall.SIGCONT, syscall.SIGINT}, fp.stopTimeout, "graceful stop"},
				{"terminate", []syscall.Signal{syscall.SIGTERM}, 250 * time.Millisecond, "forceful termination"},
				{"kill", []syscall.Signal{syscall.SIGKILL}, 100 * time.Millisecond, "immediate kill"},
			}); err != nil {
				logger.FromContext(ctx).Error("failed to stop ffmpeg", "err", err)
			}
		}()
	})
}

// Done is closed when ffmpeg has exited.
func (fp *FFmpegProcess) Done() <-chan struct{} {
	return fp.exited
}

// Wait blocks until ffmpeg exits. Once it has returned the exit status, a
// second call returns ErrAlreadyWaited. A Wait cut short by ctx can be retried.
func (fp *FFmpegProcess) Wait(ctx context.Context) (ExitStatus, error) {
	if fp.waited.Load() {
		return ExitStatus{}, ErrAlreadyWaited
	}

	select {
	case <-fp.exited:
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}

	if !fp.waited.CompareAndSwap(false, true) {
		return ExitStatus{}, ErrAlreadyWaited
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	status := ExitStatus{
		Code:      fp.exitCode,
		Signaled:  fp.signaled,
		Stopped:   fp.stopRequested,
		StartTime: fp.startTime,
		EndTime:   fp.endTime,
	}

	if status.Code == 0 {
		return status, nil
	}
	if fp.stopRequested && (status.Signaled || status.Code == exitCodeFFmpegInterrupted) {
		return status, nil
	}
	stderr := fp.stderr.String()
	return status, fmt.Errorf("%w: exit code %d: %s", classify(stderr, ErrCaptureFailed), status.Code, lastLine(stderr))
}

// Stderr returns the tail of ffmpeg's diagnostic output.
func (fp *FFmpegProcess) Stderr() string {
	return fp.stderr.String()
}

// ffmpegArgs generates platform-specific ffmpeg command line arguments. Allegedly order matters.
func ffmpegArgs(goos, display string, params Params) ([]string, error) {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}

	// Input options first
	switch goos {
	case "darwin":
		args = append(args,
			"-f", "avfoundation",
			"-framerate", strconv.Itoa(FrameRate),
			"-capture_cursor", "1",
			"-i", display, // screen device only, no audio
		)
	case "linux":
		args = append(args,
			"-f", "x11grab",
			"-framerate", strconv.Itoa(FrameRate),
			"-i", display,
		)
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}

	// Output options next
	args = append(args,
		"-t", strconv.Itoa(params.Duration),
		"-r", strconv.Itoa(FrameRate),
		"-vcodec", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
	)

	if g := params.Geometry; g != nil {
		// yuv420p needs even dimensions
		args = append(args, "-vf", fmt.Sprintf("crop=%d:%d:%d:%d", evenFloor(g.Width), evenFloor(g.Height), g.X, g.Y))
	}

	args = append(args,
		"-y", // Overwrite output file if it exists
		params.OutputPath,
	)
	return args, nil
}

func evenFloor(n int) int {
	if n > 1 {
		return n &^ 1
	}
	return n
}

type shutdownPhase struct {
	name    string
	signals []syscall.Signal
	timeout time.Duration
	desc    string
}

func (fp *FFmpegProcess) shutdownInPhases(ctx context.Context, phases []shutdownPhase) error {
	log := logger.FromContext(ctx)

	// capture immutable references under lock
	fp.mu.Lock()
	exitCode := fp.exitCode
	cmd := fp.cmd
	done := fp.exited
	fp.mu.Unlock()

	if exitCode >= exitCodeProcessDoneMinValue {
		log.Info("ffmpeg process has already exited")
		return nil
	}
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("no capture to stop")
	}

	pgid := -cmd.Process.Pid // negative PGID targets the whole group
	for _, phase := range phases {
		phaseStartTime := time.Now()
		// short circuit: the process exited before this phase started.
		select {
		case <-done:
			return nil
		default:
		}

		log.Info("ffmpeg shutdown phase", "phase", phase.name, "desc", phase.desc)

		for idx, sig := range phase.signals {
			_ = syscall.Kill(pgid, sig) // ignore error; process may have gone away
			// arbitrary delay between signals, but not after the last signal
			if idx < len(phase.signals)-1 {
				time.Sleep(100 * time.Millisecond)
			}
		}

		if err := waitForChan(ctx, phase.timeout-time.Since(phaseStartTime), done); err == nil {
			log.Info("ffmpeg shutdown successful", "phase", phase.name)
			return nil
		}
	}

	return errors.New("failed to shutdown ffmpeg")
}

// waitForChan returns nil if and only if the channel is closed
func waitForChan(ctx context.Context, timeout time.Duration, c <-chan struct{}) error {
	select {
	case <-c:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("process did not exit within %v timeout", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
