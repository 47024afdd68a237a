package trace

import "time"

// Clock is the time source events are stamped with.
type Clock interface {
	// NowMillis returns the milliseconds elapsed since an arbitrary, fixed origin.
	NowMillis() uint64
}

type monotonicClock struct {
	origin time.Time
}

// NewMonotonicClock returns a Clock whose origin is the moment it is created.
func NewMonotonicClock() Clock {
	return monotonicClock{origin: time.Now()}
}

func (c monotonicClock) NowMillis() uint64 {
	return uint64(time.Since(c.origin).Milliseconds())
}
