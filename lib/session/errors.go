package session

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid recording request")
	// ErrTerminalRestore means the terminal could not be put back into its
	// previous mode. The user's shell may need `reset`.
	ErrTerminalRestore = errors.New("failed to restore terminal settings")
	ErrInputFailed     = errors.New("failed to read keyboard input")
)
