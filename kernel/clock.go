package kernel

import "time"

// Clock provides milliseconds since boot. MILLIS and DELAYUNTIL work
// in the 16-bit domain the bytecode's INT can hold, so the interpreter
// truncates what Millis returns.
type Clock interface {
	Millis() int64
}

type bootClock struct {
	t0 time.Time
}

// NewBootClock returns a Clock counting from now.
func NewBootClock() Clock {
	return &bootClock{t0: time.Now()}
}

func (c *bootClock) Millis() int64 {
	return time.Since(c.t0).Milliseconds()
}
