//go:build !linux && !darwin

package session

func flushInput(int) error { return nil }
