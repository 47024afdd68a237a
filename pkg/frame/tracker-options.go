package frame

import (
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/looptrace/pkg/looper"
)

const (
	DefaultTimeSlice = 10 * time.Second
	DefaultQueueSize = 256

	DefaultFrozenThreshold = 42
	DefaultHighThreshold   = 24
	DefaultMiddleThreshold = 9
	DefaultNormalThreshold = 3
)

type TrackerOptions struct {
	reporter        Reporter
	frameIntervalNs int64
	timeSlice       time.Duration
	queueSize       int

	frozen int
	high   int
	middle int
	normal int

	logger log.Logger
}

type TrackerOpt func(*Tracker)

func WithReporter(reporter Reporter) TrackerOpt {
	return func(t *Tracker) {
		t.reporter = reporter
	}
}

func WithFrameInterval(ns int64) TrackerOpt {
	return func(t *Tracker) {
		t.frameIntervalNs = ns
	}
}

// WithTimeSlice sets the frame time a scene accumulates before a summary.
func WithTimeSlice(slice time.Duration) TrackerOpt {
	return func(t *Tracker) {
		t.timeSlice = slice
	}
}

func WithQueueSize(size int) TrackerOpt {
	return func(t *Tracker) {
		t.queueSize = size
	}
}

// WithDropThresholds sets the dropped frames from which a frame is frozen,
// high, middle and normal. Below normal it is best.
func WithDropThresholds(frozen, high, middle, normal int) TrackerOpt {
	return func(t *Tracker) {
		t.frozen = frozen
		t.high = high
		t.middle = middle
		t.normal = normal
	}
}

func WithLogger(logger log.Logger) TrackerOpt {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func defaultOptions() *TrackerOptions {
	return &TrackerOptions{
		frameIntervalNs: looper.DefaultFrameInterval,
		timeSlice:       DefaultTimeSlice,
		queueSize:       DefaultQueueSize,
		frozen:          DefaultFrozenThreshold,
		high:            DefaultHighThreshold,
		middle:          DefaultMiddleThreshold,
		normal:          DefaultNormalThreshold,
		logger:          log.Nop(),
	}
}
