package hang

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/looptrace/internal/utils"
	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/stack"
	"github.com/maxgio92/looptrace/pkg/trace"
)

// Detector reports the dispatches that run longer than a threshold.
// Each dispatch arms a check that the end of the dispatch cancels.
type Detector struct {
	mu   sync.Mutex
	task *task

	reported atomic.Uint64
	dropped  atomic.Uint64

	*DetectorOptions
}

type task struct {
	cursor *trace.Cursor
	token  looper.Token
	timer  *time.Timer
}

func NewDetector(opts ...DetectorOpt) *Detector {
	d := &Detector{
		DetectorOptions: &DetectorOptions{
			threshold:        DefaultThreshold,
			invalidThreshold: DefaultInvalidThreshold,
			targetStack:      stack.DefaultTargetSize,
			filterMaxPass:    stack.DefaultFilterMaxPass,
			keyPercent:       stack.DefaultKeyPercent,
			logger:           log.Nop(),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "hang").Logger()
	if d.reconstructor == nil {
		d.reconstructor = stack.NewReconstructor(stack.WithLogger(d.logger))
	}

	return d
}

func (d *Detector) Init() error {
	if d.buffer == nil {
		return ErrRecorderMissing
	}
	if d.monitor == nil {
		return ErrMonitorMissing
	}
	if d.reporter == nil {
		return ErrReporterMissing
	}

	return nil
}

func (d *Detector) DispatchBegin(_, _ int64, token looper.Token) {
	t := &task{
		cursor: d.buffer.Mark("hang#dispatchBegin"),
		token:  token,
	}
	t.timer = time.AfterFunc(d.threshold, func() {
		d.check(t)
	})

	d.mu.Lock()
	prev := d.task
	d.task = t
	d.mu.Unlock()

	if prev != nil {
		d.cancel(prev)
	}
}

func (d *Detector) DoFrame(looper.Frame) {}

func (d *Detector) DispatchEnd(dispatch looper.Dispatch) {
	d.mu.Lock()
	t := d.task
	d.task = nil
	d.mu.Unlock()

	if t != nil {
		d.cancel(t)
	}
	cost := time.Duration(dispatch.EndNs - dispatch.BeginNs)
	cpu := dispatch.CPUEndMs - dispatch.CPUBeginMs
	d.logger.Debug().
		Int64("token", int64(dispatch.Token)).
		Dur("cost", cost).
		Int64("cpu_ms", cpu).
		Float64("cpu_usage", utils.CPUUsage(cpu, cost.Milliseconds())).
		Msg("dispatch ended")
}

// Close cancels the pending check.
func (d *Detector) Close() {
	d.mu.Lock()
	t := d.task
	d.task = nil
	d.mu.Unlock()

	if t != nil {
		d.cancel(t)
	}
}

// Reported returns the number of delivered reports.
func (d *Detector) Reported() uint64 {
	return d.reported.Load()
}

// Dropped returns the number of reports dropped because the check was late.
func (d *Detector) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Detector) cancel(t *task) {
	t.timer.Stop()
	d.buffer.Release(t.cursor)
}

// check runs on the timer goroutine. When it loses the race against the end
// of the dispatch, the cursor is already released and the copy is empty.
func (d *Detector) check(t *task) {
	data := d.buffer.CopyData(t.cursor)
	d.buffer.Release(t.cursor)
	if len(data) == 0 {
		d.logger.Debug().Int64("token", int64(t.token)).Msg("no trace data for the check")
		return
	}

	items, err := d.reconstructor.Reconstruct(data, true, d.buffer.Now())
	if err != nil {
		d.logger.Warn().Err(err).Int64("token", int64(t.token)).Msg("cannot reconstruct the stack")
		return
	}
	items, stats := d.reconstructor.Trim(items, d.targetStack, stack.DefaultFilterBaseUnit, d.filterMaxPass)

	cost := max(d.threshold.Milliseconds(), stack.StackCost(items))
	if cost >= d.invalidThreshold.Milliseconds() {
		d.dropped.Add(1)
		d.logger.Warn().
			Int64("token", int64(t.token)).
			Int64("cost_ms", cost).
			Msg("hang check not executed on time, dropping the report")
		return
	}
	key, _ := d.reconstructor.DominantKey(items, cost, d.keyPercent)

	var name string
	if d.namer != nil {
		name = d.namer.Name(key)
	}
	report := NewReport(
		WithReportToken(t.token),
		WithReportTime(time.Now()),
		WithReportScene(d.monitor.Scene()),
		WithReportStack(items, stats),
		WithReportCost(cost),
		WithReportKey(key, name),
		WithReportPhaseCosts(
			d.monitor.QueueCost(looper.PhaseInput, t.token),
			d.monitor.QueueCost(looper.PhaseAnimation, t.token),
			d.monitor.QueueCost(looper.PhaseTraversal, t.token),
		),
	)
	d.logger.Warn().
		Int64("token", int64(t.token)).
		Int64("cost_ms", cost).
		Uint32("key", key).
		Int("stack", len(items)).
		Msg("main loop hang")

	d.reported.Add(1)
	d.reporter.Report(report)
}

var _ looper.Observer = (*Detector)(nil)
