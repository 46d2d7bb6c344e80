// Package sessionclock tracks remaining recording time against a fixed duration.
package sessionclock

import "time"

type Clock struct {
	duration   int
	lastSecond int
}

// Progress is emitted once per whole elapsed second.
type Progress struct {
	Elapsed   int
	Remaining int
}

// New returns a clock for a duration of whole seconds.
func New(durationSeconds int) *Clock {
	return &Clock{duration: durationSeconds, lastSecond: -1}
}

func (c *Clock) Duration() int { return c.duration }

// Tick returns the seconds remaining after elapsed seconds, never below zero.
func (c *Clock) Tick(elapsed int) int {
	return max(0, c.duration-elapsed)
}

// Done reports whether the full duration has elapsed.
func (c *Clock) Done(elapsed time.Duration) bool {
	return elapsed >= time.Duration(c.duration)*time.Second
}

// Observe returns a progress value when elapsed has crossed into a whole
// second that has not been reported yet.
func (c *Clock) Observe(elapsed time.Duration) (Progress, bool) {
	sec := int(elapsed / time.Second)
	if sec == c.lastSecond {
		return Progress{}, false
	}
	c.lastSecond = sec
	return Progress{Elapsed: sec, Remaining: c.Tick(sec)}, true
}
