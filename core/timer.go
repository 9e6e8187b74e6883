package core

// Clock is the millisecond time base of the link loop. Wraps after ~49 days;
// all comparisons go through Elapsed.
type Clock interface {
	Millis() uint32
}

// Elapsed returns now-since, correct across wrap-around
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Reached reports whether now is at or past deadline
func Reached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}

// SystemClock reads the platform tick counter
type SystemClock struct{}

func (SystemClock) Millis() uint32 {
	return getSystemMillis()
}

// ManualClock is advanced explicitly (simulation and tests)
type ManualClock struct {
	now uint32
}

func NewManualClock(start uint32) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Millis() uint32 {
	return c.now
}

// Advance moves the clock forward by ms
func (c *ManualClock) Advance(ms uint32) {
	c.now += ms
}

// Set jumps the clock to an absolute time
func (c *ManualClock) Set(ms uint32) {
	c.now = ms
}
