package frame

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/maxgio92/looptrace/internal/utils"
	"github.com/maxgio92/looptrace/pkg/looper"
)

type sample struct {
	scene   string
	dropped int
	render  bool
}

// Tracker computes the dropped frames of every dispatch and summarizes the
// frame rate per scene. DoFrame never blocks: samples are handed to the
// worker started by Run, and dropped when its queue is full.
type Tracker struct {
	queue chan sample

	// Scenes being collected, owned by the worker.
	scenes sync.Map

	droppedSum    atomic.Int64
	durationSumNs atomic.Int64
	lost          atomic.Uint64

	*TrackerOptions
}

func NewTracker(opts ...TrackerOpt) *Tracker {
	t := &Tracker{TrackerOptions: defaultOptions()}
	for _, opt := range opts {
		opt(t)
	}
	if t.frameIntervalNs <= 0 {
		t.frameIntervalNs = looper.DefaultFrameInterval
	}
	t.logger = t.logger.With().Str("component", "frame").Logger()
	t.queue = make(chan sample, t.queueSize)

	return t
}

func (t *Tracker) DispatchBegin(_, _ int64, _ looper.Token) {}

func (t *Tracker) DispatchEnd(looper.Dispatch) {}

func (t *Tracker) DoFrame(frame looper.Frame) {
	jitter := frame.EndNs - frame.IntendedFrameTimeNs
	dropped := max(int(jitter/t.frameIntervalNs), 0)
	t.droppedSum.Add(int64(dropped))
	t.durationSumNs.Add(max(jitter, t.frameIntervalNs))

	select {
	case t.queue <- sample{scene: frame.Scene, dropped: dropped, render: frame.RenderFrame}:
	default:
		t.lost.Add(1)
	}
}

// Run collects the samples until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		select {
		case s := <-t.queue:
			t.collect(s)
		case <-ctx.Done():
			return nil
		}
	}
}

func (t *Tracker) collect(s sample) {
	if s.scene == "" || !s.render {
		return
	}
	v, _ := t.scenes.LoadOrStore(s.scene, &collector{scene: s.scene})
	c := v.(*collector)
	c.collect(s.dropped, float64(t.frameIntervalNs)/1e6, t.level(s.dropped))

	if c.frameCostMs < float64(t.timeSlice.Milliseconds()) {
		return
	}
	t.scenes.Delete(s.scene)
	summary := c.summary(1e9 / float64(t.frameIntervalNs))
	t.logger.Info().
		Str("scene", summary.Scene).
		Float64("fps", summary.FPS).
		Int("frames", summary.Frames).
		Int("dropped", summary.DroppedFrames).
		Msg("frame rate")
	if t.reporter != nil {
		t.reporter.Report(summary)
	}
}

func (t *Tracker) level(dropped int) DropLevel {
	switch {
	case dropped >= t.frozen:
		return DropFrozen
	case dropped >= t.high:
		return DropHigh
	case dropped >= t.middle:
		return DropMiddle
	case dropped >= t.normal:
		return DropNormal
	default:
		return DropBest
	}
}

// DroppedSum returns the frames dropped since the creation.
func (t *Tracker) DroppedSum() int64 {
	return t.droppedSum.Load()
}

// DurationSumNs returns the frame time since the creation, each frame
// counting at least one frame interval.
func (t *Tracker) DurationSumNs() int64 {
	return t.durationSumNs.Load()
}

// Lost returns the samples dropped because the worker was late.
func (t *Tracker) Lost() uint64 {
	return t.lost.Load()
}

// Scenes returns the number of scenes being collected.
func (t *Tracker) Scenes() int {
	return utils.LenSyncMap(&t.scenes)
}

var _ looper.Observer = (*Tracker)(nil)
