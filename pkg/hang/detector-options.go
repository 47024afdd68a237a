package hang

import (
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/stack"
	"github.com/maxgio92/looptrace/pkg/trace"
)

const (
	DefaultThreshold        = 5 * time.Second
	DefaultInvalidThreshold = 6 * time.Second
)

// Buffer is the part of the trace recorder the detector reads from.
type Buffer interface {
	Mark(source string) *trace.Cursor
	Release(c *trace.Cursor)
	CopyData(start *trace.Cursor) []trace.Event
	Now() uint64
}

// PhaseCoster is the part of the loop monitor the detector reads from.
type PhaseCoster interface {
	QueueCost(phase looper.Phase, token looper.Token) int64
	Scene() string
}

type DetectorOptions struct {
	buffer        Buffer
	monitor       PhaseCoster
	reporter      Reporter
	reconstructor *stack.Reconstructor
	namer         stack.Namer

	threshold        time.Duration
	invalidThreshold time.Duration
	targetStack      int
	filterMaxPass    int
	keyPercent       float64

	logger log.Logger
}

type DetectorOpt func(*Detector)

func WithRecorder(buffer Buffer) DetectorOpt {
	return func(d *Detector) {
		d.buffer = buffer
	}
}

func WithMonitor(monitor PhaseCoster) DetectorOpt {
	return func(d *Detector) {
		d.monitor = monitor
	}
}

func WithReporter(reporter Reporter) DetectorOpt {
	return func(d *Detector) {
		d.reporter = reporter
	}
}

func WithReconstructor(r *stack.Reconstructor) DetectorOpt {
	return func(d *Detector) {
		d.reconstructor = r
	}
}

// WithNamer sets how the stack key is resolved to a function name.
func WithNamer(namer stack.Namer) DetectorOpt {
	return func(d *Detector) {
		d.namer = namer
	}
}

// WithThreshold sets how long a dispatch runs before it is considered hung.
func WithThreshold(threshold time.Duration) DetectorOpt {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

// WithInvalidThreshold sets the cost above which a report is considered
// late, because the check itself was delayed, and dropped.
func WithInvalidThreshold(threshold time.Duration) DetectorOpt {
	return func(d *Detector) {
		d.invalidThreshold = threshold
	}
}

func WithTargetStack(size int) DetectorOpt {
	return func(d *Detector) {
		d.targetStack = size
	}
}

func WithFilterMaxPass(passes int) DetectorOpt {
	return func(d *Detector) {
		d.filterMaxPass = passes
	}
}

func WithKeyPercent(percent float64) DetectorOpt {
	return func(d *Detector) {
		d.keyPercent = percent
	}
}

func WithLogger(logger log.Logger) DetectorOpt {
	return func(d *Detector) {
		d.logger = logger
	}
}
