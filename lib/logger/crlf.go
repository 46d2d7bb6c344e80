package logger

import (
	"bytes"
	"io"
)

// crlfWriter ends every line with "\r\n" so log lines stay aligned while the
// terminal is in raw mode, where "\n" no longer returns the carriage.
type crlfWriter struct {
	w io.Writer
}

// NewCRLFWriter wraps w for handlers that write to a terminal.
func NewCRLFWriter(w io.Writer) io.Writer {
	return &crlfWriter{w: w}
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	out := bytes.ReplaceAll(bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n")), []byte("\n"), []byte("\r\n"))
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
