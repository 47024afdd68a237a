package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/symtable"
	"github.com/maxgio92/looptrace/pkg/trace"
)

var scenes = []string{"home", "feed", "detail", "settings"}

// dispatchesPerScene is how many dispatches run before the scene changes.
const dispatchesPerScene = 120

// workload is a synthetic main loop. Every dispatch runs one instrumented
// call tree per phase. Function ids are laid out by level: the k-th
// function of a level has id 1+level*fanout+k.
type workload struct {
	recorder *trace.Recorder
	monitor  *looper.Monitor
	methods  *symtable.MethodTable
	rnd      *rand.Rand

	interval  time.Duration
	work      time.Duration
	hang      time.Duration
	depth     int
	fanout    int
	hangEvery int
	jankEvery int

	dispatches int
}

func newWorkload(o *Options, recorder *trace.Recorder, monitor *looper.Monitor) *workload {
	w := &workload{
		recorder:  recorder,
		monitor:   monitor,
		methods:   symtable.NewMethodTable(),
		rnd:       rand.New(rand.NewPCG(o.seed, o.seed)),
		interval:  time.Duration(monitor.FrameIntervalNs()),
		work:      o.work,
		hang:      o.hangThreshold + o.hangThreshold/5,
		depth:     max(o.depth, 1),
		fanout:    max(o.fanout, 1),
		hangEvery: o.hangEvery,
		jankEvery: o.jankEvery,
	}
	for level := 0; level < w.depth; level++ {
		for k := 0; k < w.fanout; k++ {
			w.methods.Add(symtable.Method{
				ID:     w.funcID(level, k),
				Access: 1,
				Name:   fmt.Sprintf("simulate.level%d.fn%d", level, k),
			})
		}
	}

	return w
}

func (w *workload) funcID(level, k int) uint32 {
	return uint32(1 + level*w.fanout + k)
}

// run drives the loop from a goroutine locked to its OS thread, so that the
// thread CPU time sampled by the monitor belongs to the loop only.
func (w *workload) run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		w.dispatch()
		if w.dispatches == 1 {
			w.recorder.Start()
		}
	}
}

func (w *workload) dispatch() {
	n := w.dispatches
	w.dispatches++

	w.monitor.SetScene(scenes[(n/dispatchesPerScene)%len(scenes)])
	w.monitor.DispatchBegin()

	stall := time.Duration(0)
	switch {
	case w.hangEvery > 0 && n > 0 && n%w.hangEvery == 0:
		stall = w.hang
	case w.jankEvery > 0 && n > 0 && n%w.jankEvery == 0:
		stall = time.Duration(2+w.rnd.IntN(30)) * w.interval
	}

	w.phase(looper.PhaseInput, 0)
	w.phase(looper.PhaseAnimation, 0)
	w.phase(looper.PhaseTraversal, stall)

	w.monitor.DispatchEnd()
}

func (w *workload) phase(phase looper.Phase, stall time.Duration) {
	w.monitor.PhaseBegin(phase)
	w.call(0, w.rnd.IntN(w.fanout), stall)
	w.monitor.PhaseEnd(phase)
}

// call runs the k-th function of a level. The stall, if any, is spent in
// the first leaf reached.
func (w *workload) call(level, k int, stall time.Duration) time.Duration {
	id := w.funcID(level, k)
	w.recorder.Record(trace.Enter, id)
	defer w.recorder.Record(trace.Exit, id)

	if level == w.depth-1 {
		spin(time.Duration(w.rnd.Int64N(int64(w.work) + 1)))
		if stall > 0 {
			time.Sleep(stall)
		}
		return 0
	}
	for i := 0; i < 1+w.rnd.IntN(2); i++ {
		stall = w.call(level+1, w.rnd.IntN(w.fanout), stall)
	}

	return stall
}

// spin keeps the thread busy, so that the work shows up as CPU time.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}
