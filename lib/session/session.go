// Package session runs one interactive screen recording: a pre-roll
// countdown, the capture process, and a polling loop that ends on timeout or
// when the user presses the cancel key.
//
// The session owns the terminal's raw mode for its whole lifetime. Raw mode is
// entered right before the capture starts and the previous settings are
// restored on every way out of Run, including errors and panics.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/tchung1970/record/lib/artifact"
	"github.com/tchung1970/record/lib/capture"
	"github.com/tchung1970/record/lib/keywatch"
	"github.com/tchung1970/record/lib/logger"
	"github.com/tchung1970/record/lib/sessionclock"
)

const (
	DefaultPreRoll      = 3
	DefaultPollInterval = 100 * time.Millisecond
	DefaultStopGrace    = 5 * time.Second
)

// Request describes what to record.
type Request struct {
	// Duration in whole seconds.
	Duration int
	// Geometry is nil to record the full display.
	Geometry   *capture.Geometry
	OutputPath string
}

func (r Request) params() capture.Params {
	return capture.Params{
		Duration:   r.Duration,
		Geometry:   r.Geometry,
		OutputPath: r.OutputPath,
	}
}

// Result is the outcome of a Run.
type Result struct {
	State State
	// Cancelled is true when the user (or a signal) ended the recording early.
	Cancelled bool
	// Artifact is nil unless the session completed and bytes were written.
	Artifact *artifact.Artifact
	Exit     capture.ExitStatus
	Elapsed  time.Duration
}

type Session struct {
	Launcher capture.Launcher
	// Input is polled for the cancel key. It is normally os.Stdin.
	Input *os.File
	Out   io.Writer

	// PreRoll is the number of one-second countdown steps before capture.
	PreRoll      int
	PollInterval time.Duration
	// StopGrace is how long past the duration the capture may keep running
	// before it is asked to stop.
	StopGrace      time.Duration
	WatcherOptions []keywatch.Option
	// OnState, if set, observes every state transition in order.
	OnState func(State)

	state   State
	outMu   sync.Mutex
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration)
	rawMode rawModeFunc
}

func New(launcher capture.Launcher, input *os.File, out io.Writer) *Session {
	return &Session{
		Launcher:     launcher,
		Input:        input,
		Out:          out,
		PreRoll:      DefaultPreRoll,
		PollInterval: DefaultPollInterval,
		StopGrace:    DefaultStopGrace,
		now:          time.Now,
		sleep:        sleepContext,
		rawMode:      enterRawMode,
	}
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.state
}

// Run records until the duration elapses or the cancel key is pressed.
func (s *Session) Run(ctx context.Context, req Request) (res *Result, err error) {
	res = &Result{State: s.state}
	if s.state != Idle {
		return res, fmt.Errorf("%w: session already ran", ErrInvalidRequest)
	}
	if err := req.params().Validate(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ctx = logger.With(ctx, "session_id", uuid.NewString())
	log := logger.FromContext(ctx)
	log.Info("recording session starting", "duration", req.Duration, "output", req.OutputPath, "geometry", req.Geometry)

	defer func() {
		res.State = s.state
		log.Info("recording session finished", "state", s.state, "cancelled", res.Cancelled, "err", err)
	}()

	s.transition(ctx, CountingDown)
	if err := s.preRoll(ctx, req.Duration); err != nil {
		s.transition(ctx, Failed)
		res.Cancelled = true
		return res, err
	}

	restore := s.enterRaw(ctx)
	restored := false
	restoreTerminal := func() error {
		if restored {
			return nil
		}
		restored = true
		if rerr := restore(); rerr != nil {
			log.Error("failed to restore terminal", "err", rerr)
			return fmt.Errorf("%w: %w", ErrTerminalRestore, rerr)
		}
		return nil
	}
	defer func() {
		if rerr := restoreTerminal(); rerr != nil {
			s.transition(ctx, Failed)
			err = errors.Join(err, rerr)
		}
	}()

	s.transition(ctx, Recording)
	proc, err := s.Launcher.Start(ctx, req.params())
	if err != nil {
		s.transition(ctx, Failed)
		return res, err
	}

	tracker := artifact.NewTracker(ctx, req.OutputPath)
	defer tracker.Close()

	start := s.now()
	cancelled, pollErr := s.loop(ctx, proc, tracker, sessionclock.New(req.Duration), start)
	res.Cancelled = cancelled

	s.transition(ctx, Stopping)
	res.Exit, err = s.wait(ctx, proc, cancelled || pollErr != nil)
	res.Elapsed = s.now().Sub(start)
	s.printf("\r\n")
	if err != nil {
		s.transition(ctx, Failed)
		return res, err
	}
	if pollErr != nil {
		s.transition(ctx, Failed)
		return res, fmt.Errorf("%w: %w", ErrInputFailed, pollErr)
	}

	res.Artifact, err = artifact.Stat(req.OutputPath)
	if err != nil {
		// the capture finished; a stat failure only loses the size report
		log.Warn("failed to stat recording", "err", err)
	}
	if err := restoreTerminal(); err != nil {
		s.transition(ctx, Failed)
		return res, err
	}
	s.transition(ctx, Completed)
	return res, nil
}

// loop polls for cancellation until the duration elapses. It returns whether
// the recording was cancelled and any input error, which stops the capture.
func (s *Session) loop(ctx context.Context, proc capture.Process, tracker *artifact.Tracker, clock *sessionclock.Clock, start time.Time) (bool, error) {
	log := logger.FromContext(ctx)

	var watcher *keywatch.Watcher
	if s.Input != nil {
		watcher = keywatch.New(s.Input, s.WatcherOptions...)
	}

	for {
		elapsed := s.now().Sub(start)
		if clock.Done(elapsed) {
			return false, nil
		}
		select {
		case <-proc.Done():
			// Wait reports how it ended
			log.Warn("capture exited before the session ended", "elapsed", elapsed)
			s.printf("\r\n\r\nRecording process exited early.\r\n")
			return false, nil
		default:
		}
		if ctx.Err() != nil {
			log.Info("recording interrupted", "err", ctx.Err())
			s.printf("\r\n\r\nStopping recording...\r\n")
			proc.Stop(ctx)
			return true, nil
		}

		res := keywatch.NoInput
		if watcher != nil {
			var err error
			res, err = watcher.Poll(s.PollInterval)
			if err != nil {
				log.Error("failed to poll keyboard", "err", err)
				proc.Stop(ctx)
				return false, err
			}
		} else {
			s.sleep(ctx, s.PollInterval)
		}

		if res == keywatch.CancelRequested {
			log.Info("cancel key pressed", "elapsed", elapsed)
			s.printf("\r\n\r\nStopping recording...\r\n")
			proc.Stop(ctx)
			return true, nil
		}

		if p, ok := clock.Observe(elapsed); ok {
			s.printf("\rRecording... %ds remaining, %s written (Press ESC to stop)\x1b[K",
				p.Remaining, humanize.Bytes(uint64(tracker.Size())))
		}
	}
}

// wait collects the capture's exit. On the timeout path the capture ends on
// its own; if it is still running after StopGrace it is asked to stop.
func (s *Session) wait(ctx context.Context, proc capture.Process, stopped bool) (capture.ExitStatus, error) {
	waitCtx := context.WithoutCancel(ctx)
	if !stopped {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-done:
			case <-time.After(s.StopGrace):
				logger.FromContext(ctx).Debug("capture still running past its duration, stopping it")
				s.printf("\r\nCapture still running past its duration, stopping it...\r\n")
				proc.Stop(waitCtx)
			}
		}()
	}
	return proc.Wait(waitCtx)
}

func (s *Session) preRoll(ctx context.Context, duration int) error {
	s.printf("Starting screen recording for %d seconds...\n", duration)
	for i := s.PreRoll; i > 0; i-- {
		s.printf("%d...\n", i)
		s.sleep(ctx, time.Second)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	s.printf("Recording!\n")
	return nil
}

// enterRaw switches the input terminal to raw mode. Failing to do so is not
// fatal: the cancel key then needs Enter to be delivered.
func (s *Session) enterRaw(ctx context.Context) func() error {
	noop := func() error { return nil }
	if s.Input == nil {
		return noop
	}
	restore, err := s.rawMode(int(s.Input.Fd()))
	if err != nil {
		logger.FromContext(ctx).Warn("failed to enter raw terminal mode", "err", err)
		return noop
	}
	return restore
}

func (s *Session) transition(ctx context.Context, to State) {
	if s.state == to {
		return
	}
	if !canTransition(s.state, to) {
		logger.FromContext(ctx).Error("illegal session transition", "from", s.state, "to", to)
		return
	}
	logger.FromContext(ctx).Debug("session state", "from", s.state, "to", to)
	s.state = to
	if s.OnState != nil {
		s.OnState(to)
	}
}

func (s *Session) printf(format string, args ...any) {
	if s.Out == nil {
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.Out, format, args...)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
