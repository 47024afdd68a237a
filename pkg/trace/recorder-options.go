package trace

import (
	"time"

	log "github.com/rs/zerolog"
)

const (
	DefaultBufferSize      = 100_000
	DefaultTimeUpdateCycle = 5 * time.Millisecond
	DefaultReleaseDelay    = 15 * time.Second
	DefaultStartExpiry     = 15 * time.Second
)

type RecorderOptions struct {
	size            int
	clock           Clock
	timeUpdateCycle time.Duration
	releaseDelay    time.Duration
	startExpiry     time.Duration
	enterListener   func(id uint32)

	logger log.Logger
}

type RecorderOpt func(*Recorder)

// WithBufferSize sets the number of event slots of the ring buffer.
func WithBufferSize(size int) RecorderOpt {
	return func(r *Recorder) {
		r.size = size
	}
}

func WithClock(clock Clock) RecorderOpt {
	return func(r *Recorder) {
		r.clock = clock
	}
}

func WithTimeUpdateCycle(cycle time.Duration) RecorderOpt {
	return func(r *Recorder) {
		r.timeUpdateCycle = cycle
	}
}

// WithReleaseDelay sets how long an unused recorder keeps its buffer.
func WithReleaseDelay(delay time.Duration) RecorderOpt {
	return func(r *Recorder) {
		r.releaseDelay = delay
	}
}

// WithStartExpiry sets how long after the first event Start is expected.
func WithStartExpiry(expiry time.Duration) RecorderOpt {
	return func(r *Recorder) {
		r.startExpiry = expiry
	}
}

// WithEnterListener sets a hook called on every recorded enter event.
func WithEnterListener(listener func(id uint32)) RecorderOpt {
	return func(r *Recorder) {
		r.enterListener = listener
	}
}

func WithLogger(logger log.Logger) RecorderOpt {
	return func(r *Recorder) {
		r.logger = logger
	}
}
