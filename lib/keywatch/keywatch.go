// Package keywatch detects a cancel key press on a terminal without blocking.
//
// The terminal is expected to be in raw mode already so single key presses
// are delivered without Enter and without echo. Entering and leaving raw mode
// is the caller's job.
package keywatch

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrInvalidInput means the watched file descriptor is not open.
var ErrInvalidInput = errors.New("input file descriptor is not open")

type Result int

const (
	NoInput Result = iota
	CancelRequested
)

func (r Result) String() string {
	if r == CancelRequested {
		return "cancel_requested"
	}
	return "no_input"
}

const (
	KeyEscape byte = 0x1b
	// KeyCtrlC arrives as a plain byte because raw mode turns off signal generation.
	KeyCtrlC byte = 0x03

	DefaultSubPolls = 10

	// maxDrainReads bounds draining so a stream that never goes quiet cannot
	// hold the caller.
	maxDrainReads = 64
)

// Watcher polls a file descriptor for the cancel key. It reports
// CancelRequested at most once.
type Watcher struct {
	f          *os.File
	fd         int
	cancelKeys []byte
	subPolls   int
	fired      bool
	eof        bool
}

type Option func(*Watcher)

// WithCancelKeys replaces the default cancel keys (ESC and Ctrl-C).
func WithCancelKeys(keys ...byte) Option {
	return func(w *Watcher) {
		w.cancelKeys = append([]byte(nil), keys...)
	}
}

// WithSubPolls sets how many short polls make up one Poll call.
func WithSubPolls(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.subPolls = n
		}
	}
}

func New(f *os.File, opts ...Option) *Watcher {
	w := &Watcher{
		f:          f,
		fd:         int(f.Fd()),
		cancelKeys: []byte{KeyEscape, KeyCtrlC},
		subPolls:   DefaultSubPolls,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Poll waits up to timeout for a cancel key, split into short sub-polls so a
// key press is picked up as soon as it arrives. Other keys are discarded.
func (w *Watcher) Poll(timeout time.Duration) (Result, error) {
	if w.fired {
		return NoInput, nil
	}
	if w.eof {
		// nothing will ever arrive; keep the caller's pacing
		time.Sleep(timeout)
		return NoInput, nil
	}

	sub := timeout / time.Duration(w.subPolls)
	if sub < time.Millisecond {
		sub = time.Millisecond
	}

	for i := 0; i < w.subPolls; i++ {
		ready, err := w.readable(sub)
		if err != nil {
			return NoInput, err
		}
		if !ready {
			continue
		}

		b, err := w.readByte()
		if errors.Is(err, io.EOF) {
			w.eof = true
			return NoInput, nil
		}
		if err != nil {
			return NoInput, err
		}
		if w.isCancelKey(b) {
			w.drain()
			w.fired = true
			return CancelRequested, nil
		}
	}
	return NoInput, nil
}

func (w *Watcher) isCancelKey(b byte) bool {
	for _, k := range w.cancelKeys {
		if b == k {
			return true
		}
	}
	return false
}

// readable reports whether the fd has input (or a hangup) within d.
func (w *Watcher) readable(d time.Duration) (bool, error) {
	pfds := []unix.PollFd{
		{Fd: int32(w.fd), Events: unix.POLLIN},
	}
	_, err := unix.Poll(pfds, int(d/time.Millisecond))
	if err != nil {
		if errors.Is(err, syscall.EINTR) {
			return false, nil
		}
		return false, err
	}
	if pfds[0].Revents&unix.POLLNVAL != 0 {
		return false, ErrInvalidInput
	}
	return pfds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0, nil
}

func (w *Watcher) readByte() (byte, error) {
	var buf [1]byte
	for {
		n, err := w.f.Read(buf[:])
		if n == 1 {
			return buf[0], nil
		}
		if err == nil {
			return 0, io.EOF
		}
		// EIO is observed on a terminal whose other side closed; treat as EOF.
		if errors.Is(err, syscall.EIO) {
			return 0, io.EOF
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		return 0, err
	}
}

// drain discards input that is already buffered, such as the rest of an
// escape sequence or a burst of key presses.
func (w *Watcher) drain() {
	buf := make([]byte, 256)
	for i := 0; i < maxDrainReads; i++ {
		ready, err := w.readable(0)
		if err != nil || !ready {
			return
		}
		n, err := w.f.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}
