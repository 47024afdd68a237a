package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/looptrace/internal/output"
	"github.com/maxgio92/looptrace/internal/settings"
	"github.com/maxgio92/looptrace/pkg/frame"
	"github.com/maxgio92/looptrace/pkg/hang"
	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/trace"
)

const CmdName = "simulate"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Trace a synthetic main loop",
		Long: fmt.Sprintf(`
%s runs an instrumented synthetic event loop on a dedicated OS thread and traces it.
Hang reports and frame rate summaries are printed to the standard output as JSON lines.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}
	cmd.Flags().DurationVar(&o.duration, "duration", 30*time.Second, "How long to run the loop, 0 to run until interrupted")
	cmd.Flags().IntVar(&o.bufferSize, "buffer-size", trace.DefaultBufferSize, "Number of event slots of the ring buffer")
	cmd.Flags().DurationVar(&o.hangThreshold, "hang-threshold", hang.DefaultThreshold, "Dispatch duration after which a hang is reported")
	cmd.Flags().DurationVar(&o.frameInterval, "frame-interval", time.Duration(looper.DefaultFrameInterval), "Expected frame interval")
	cmd.Flags().DurationVar(&o.timeSlice, "fps-time-slice", frame.DefaultTimeSlice, "Frame time after which a scene frame rate is summarized")
	cmd.Flags().DurationVar(&o.work, "work", 2*time.Millisecond, "Upper bound of the work done by each leaf function")
	cmd.Flags().IntVar(&o.depth, "depth", 4, "Depth of the call tree run by each phase")
	cmd.Flags().IntVar(&o.fanout, "fanout", 4, "Number of functions per call tree level")
	cmd.Flags().IntVar(&o.hangEvery, "hang-every", 500, "Make one dispatch every N hang, 0 to disable")
	cmd.Flags().IntVar(&o.jankEvery, "jank-every", 40, "Make one dispatch every N drop frames, 0 to disable")
	cmd.Flags().Uint64Var(&o.seed, "seed", 1, "Seed of the synthetic workload")

	cmd.Flags().StringVar(&o.dump, "dump", "", fmt.Sprintf("Write the buffered events to this path on exit (e.g. %s)", settings.DumpFile))
	cmd.Flags().StringVar(&o.mapping, "mapping", "", "Write the method mapping of the synthetic functions to this path")
	cmd.Flags().BoolVar(&o.status, "status", true, "Periodically print a status of the trace")
	cmd.Flags().BoolVar(&o.devEnv, "dev", false, "Panic on main loop hook misuse")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	ctx := o.Ctx
	if ctx == nil {
		ctx = cmd.Context()
	}
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	recorder := trace.NewRecorder(
		trace.WithBufferSize(o.bufferSize),
		trace.WithLogger(o.Logger),
	)
	defer recorder.Close()

	monitor := looper.NewMonitor(
		looper.WithSink(recorder),
		looper.WithFrameInterval(o.frameInterval.Nanoseconds()),
		looper.WithDevEnv(o.devEnv),
		looper.WithLogger(o.Logger),
	)
	w := newWorkload(o, recorder, monitor)

	if o.mapping != "" {
		if err := writeFile(o.mapping, w.methods.Write); err != nil {
			return errors.Wrap(err, "failed to write method mapping")
		}
	}

	out := &reportWriter{w: cmd.OutOrStdout()}
	detector := hang.NewDetector(
		hang.WithRecorder(recorder),
		hang.WithMonitor(monitor),
		hang.WithReporter(hang.ReporterFunc(func(r *hang.Report) {
			out.write(r)
		})),
		hang.WithNamer(w.methods),
		hang.WithThreshold(o.hangThreshold),
		hang.WithInvalidThreshold(o.hangThreshold*6/5),
		hang.WithLogger(o.Logger),
	)
	if err := detector.Init(); err != nil {
		return errors.Wrap(err, "failed to init hang detector")
	}
	defer detector.Close()

	tracker := frame.NewTracker(
		frame.WithReporter(frame.ReporterFunc(func(s *frame.Summary) {
			out.write(s)
		})),
		frame.WithFrameInterval(monitor.FrameIntervalNs()),
		frame.WithTimeSlice(o.timeSlice),
		frame.WithLogger(o.Logger),
	)

	monitor.AddObserver(detector)
	monitor.AddObserver(tracker)
	o.Logger.Info().
		Int("observers", monitor.ObserverCount()).
		Dur("frame_interval", time.Duration(monitor.FrameIntervalNs())).
		Int("buffer_size", recorder.Len()).
		Msg("loop starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tracker.Run(ctx)
	})
	g.Go(func() error {
		return w.run(ctx)
	})
	if o.status {
		g.Go(func() error {
			o.printStatusBar(ctx, recorder, monitor, detector, tracker)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "failed to run the loop")
	}
	recorder.Stop()

	o.Logger.Info().
		Int("dispatches", w.dispatches).
		Uint64("events", recorder.Written()).
		Uint64("hangs", detector.Reported()).
		Uint64("late_checks", detector.Dropped()).
		Int64("dropped_frames", tracker.DroppedSum()).
		Msg("loop stopped")

	if o.dump != "" {
		events := recorder.Snapshot()
		if err := writeFile(o.dump, func(f io.Writer) error {
			return trace.WriteEvents(f, events)
		}); err != nil {
			return errors.Wrap(err, "failed to dump events")
		}
		o.Logger.Info().Str("path", o.dump).Int("events", len(events)).Msg("events dumped")
	}

	return nil
}

func (o *Options) printStatusBar(ctx context.Context, recorder *trace.Recorder, monitor *looper.Monitor, detector *hang.Detector, tracker *frame.Tracker) {
	var last atomic.Uint64
	interval := monitor.FrameIntervalNs()

	output.StatusBar(ctx,
		settings.StatusRefresh,
		func() {
			written := recorder.Written()
			util := 0
			if size := recorder.Len(); size > 0 {
				util = int(min(written, uint64(size)) * 100 / uint64(size))
			}
			frames := max(tracker.DurationSumNs()/interval, 1)
			output.PrintRight(os.Stderr, output.PrettyLoopStatus(output.LoopStatus{
				EventRate:   written - last.Swap(written), // rate reset at each bar refresh.
				BufferUtil:  util,
				Cursors:     len(recorder.Cursors()),
				Hangs:       detector.Reported(),
				DroppedRate: float64(tracker.DroppedSum()) / float64(frames),
			}))
		},
	)
}

// reportWriter serializes the reports of the hang and frame workers.
type reportWriter struct {
	mu sync.Mutex
	w  io.Writer
}

type report interface {
	WriteReport(w io.Writer) error
}

func (r *reportWriter) write(rep report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep.WriteReport(r.w)
}

func writeFile(pathname string, write func(io.Writer) error) error {
	f, err := os.Create(pathname)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
