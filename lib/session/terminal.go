package session

import (
	"golang.org/x/term"
)

// rawModeFunc switches fd to raw mode and returns a func that puts the prior
// settings back.
type rawModeFunc func(fd int) (restore func() error, err error)

func enterRawMode(fd int) (func() error, error) {
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	// Keys typed during the pre-roll or left over from the prompts must not
	// reach the cancel watcher.
	if err := flushInput(fd); err != nil {
		_ = term.Restore(fd, oldState)
		return nil, err
	}
	return func() error {
		return term.Restore(fd, oldState)
	}, nil
}
