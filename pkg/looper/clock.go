package looper

import "time"

// Clock provides the monotonic time and the CPU time of the calling thread.
type Clock interface {
	Nanotime() int64
	ThreadTimeMs() int64
}

type systemClock struct {
	origin time.Time
}

func NewSystemClock() Clock {
	return systemClock{origin: time.Now()}
}

func (c systemClock) Nanotime() int64 {
	return time.Since(c.origin).Nanoseconds()
}

func (c systemClock) ThreadTimeMs() int64 {
	return threadTimeMs()
}
