package hang_test

import (
	"bytes"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/looptrace/pkg/hang"
	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/trace"
)

type traceClock struct {
	ms atomic.Uint64
}

func (c *traceClock) NowMillis() uint64 {
	return c.ms.Load()
}

type loopClock struct{}

func (loopClock) Nanotime() int64     { return 1000 }
func (loopClock) ThreadTimeMs() int64 { return 0 }

type names map[uint32]string

func (n names) Name(id uint32) string {
	return n[id]
}

type fixture struct {
	clock    *traceClock
	recorder *trace.Recorder
	monitor  *looper.Monitor
	detector *hang.Detector
	reports  chan *hang.Report
}

func newFixture(t *testing.T, opts ...hang.DetectorOpt) *fixture {
	logger := log.New(log.NewTestWriter(t))
	f := &fixture{
		clock:   new(traceClock),
		reports: make(chan *hang.Report, 4),
	}
	f.clock.ms.Store(100)
	f.recorder = trace.NewRecorder(
		trace.WithClock(f.clock),
		trace.WithBufferSize(64),
		trace.WithLogger(logger),
	)
	f.monitor = looper.NewMonitor(
		looper.WithSink(f.recorder),
		looper.WithClock(loopClock{}),
		looper.WithLogger(logger),
	)
	f.monitor.SetScene("home")

	f.detector = hang.NewDetector(append([]hang.DetectorOpt{
		hang.WithRecorder(f.recorder),
		hang.WithMonitor(f.monitor),
		hang.WithReporter(hang.ReporterFunc(func(r *hang.Report) { f.reports <- r })),
		hang.WithThreshold(20 * time.Millisecond),
		hang.WithLogger(logger),
	}, opts...)...)
	require.NoError(t, f.detector.Init())
	f.monitor.AddObserver(f.detector)

	t.Cleanup(func() {
		f.detector.Close()
		f.recorder.Close()
	})

	return f
}

func TestDetectorInit(t *testing.T) {
	require.ErrorIs(t, hang.NewDetector().Init(), hang.ErrRecorderMissing)

	recorder := trace.NewRecorder()
	defer recorder.Close()
	require.ErrorIs(t, hang.NewDetector(hang.WithRecorder(recorder)).Init(), hang.ErrMonitorMissing)
	require.ErrorIs(t, hang.NewDetector(
		hang.WithRecorder(recorder),
		hang.WithMonitor(looper.NewMonitor()),
	).Init(), hang.ErrReporterMissing)
}

func TestDetectorReportsHang(t *testing.T) {
	f := newFixture(t, hang.WithNamer(names{1: "main.render"}))

	f.monitor.DispatchBegin()
	f.recorder.Record(trace.Enter, 1)
	f.recorder.Record(trace.Enter, 2)
	f.recorder.Record(trace.Exit, 2)
	f.clock.ms.Store(5200)

	var report *hang.Report
	select {
	case report = <-f.reports:
	case <-time.After(5 * time.Second):
		t.Fatal("no hang report")
	}

	require.Equal(t, looper.Token(1000), report.Token)
	require.Equal(t, "home", report.Scene)
	require.Equal(t, int64(5100), report.CostMs)
	require.Equal(t, uint32(1), report.StackKey)
	require.Equal(t, "main.render", report.StackKeyName)
	require.Len(t, report.Stack, 3)
	require.Equal(t, trace.FuncIDDispatch, report.Stack[0].FuncID)
	require.Equal(t, uint32(1), report.Stack[1].FuncID)
	require.Equal(t, uint32(2), report.Stack[2].FuncID)
	require.Equal(t, uint64(1), f.detector.Reported())

	// The check released its cursor.
	require.Empty(t, f.recorder.Cursors())

	var buf bytes.Buffer
	require.NoError(t, report.WriteReport(&buf))
	var parsed hang.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Equal(t, report.StackKey, parsed.StackKey)
	require.Equal(t, report.Stack, parsed.Stack)

	f.monitor.DispatchEnd()
}

func TestDetectorCancelledByDispatchEnd(t *testing.T) {
	f := newFixture(t)

	f.monitor.DispatchBegin()
	f.recorder.Record(trace.Enter, 1)
	f.recorder.Record(trace.Exit, 1)
	require.Len(t, f.recorder.Cursors(), 1)
	f.monitor.DispatchEnd()
	require.Empty(t, f.recorder.Cursors())

	require.Never(t, func() bool {
		return len(f.reports) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, uint64(0), f.detector.Reported())
}

func TestDetectorDropsLateCheck(t *testing.T) {
	f := newFixture(t)

	f.monitor.DispatchBegin()
	f.recorder.Record(trace.Enter, 1)
	f.clock.ms.Store(7000)

	require.Eventually(t, func() bool {
		return f.detector.Dropped() == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Empty(t, f.reports)

	f.monitor.DispatchEnd()
}
