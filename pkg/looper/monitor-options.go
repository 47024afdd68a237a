package looper

import (
	log "github.com/rs/zerolog"
)

// DefaultFrameInterval is the frame interval of a 60Hz display.
const DefaultFrameInterval int64 = 16_666_666

type MonitorOptions struct {
	sink            Sink
	clock           Clock
	vsync           func() int64
	frameIntervalNs int64
	devEnv          bool

	logger log.Logger
}

type MonitorOpt func(*Monitor)

// WithSink sets where the dispatch boundary events are recorded.
func WithSink(sink Sink) MonitorOpt {
	return func(m *Monitor) {
		m.sink = sink
	}
}

func WithClock(clock Clock) MonitorOpt {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// WithVsyncSource sets the source of the intended frame time. By default
// the intended frame time is the dispatch begin time.
func WithVsyncSource(vsync func() int64) MonitorOpt {
	return func(m *Monitor) {
		m.vsync = vsync
	}
}

// WithFrameInterval sets the expected frame interval. Non positive values
// keep the default.
func WithFrameInterval(ns int64) MonitorOpt {
	return func(m *Monitor) {
		if ns > 0 {
			m.frameIntervalNs = ns
		}
	}
}

// WithDevEnv makes instrumentation misuse panic instead of being logged.
func WithDevEnv(dev bool) MonitorOpt {
	return func(m *Monitor) {
		m.devEnv = dev
	}
}

func WithLogger(logger log.Logger) MonitorOpt {
	return func(m *Monitor) {
		m.logger = logger
	}
}
