package session

import "golang.org/x/sys/unix"

// fread selects the input queue for TIOCFLUSH (FREAD in <sys/fcntl.h>).
const fread = 0x1

// flushInput discards input the terminal has received but nobody has read.
func flushInput(fd int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCFLUSH, fread)
}
