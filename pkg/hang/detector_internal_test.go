package hang

import (
	"testing"
	"time"

	log "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/trace"
)

func TestCheckAfterDispatchEnd(t *testing.T) {
	tests := []struct {
		name string
		end  func(*Detector, *task)
	}{
		{
			name: "cursor released by the end of the dispatch",
			end: func(d *Detector, tk *task) {
				d.cancel(tk)
			},
		},
		{
			name: "cursor released twice",
			end: func(d *Detector, tk *task) {
				d.cancel(tk)
				d.cancel(tk)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := log.New(log.NewTestWriter(t))
			recorder := trace.NewRecorder(trace.WithBufferSize(16), trace.WithLogger(logger))
			t.Cleanup(recorder.Close)

			var reports int
			d := NewDetector(
				WithRecorder(recorder),
				WithMonitor(looper.NewMonitor()),
				WithReporter(ReporterFunc(func(*Report) { reports++ })),
				WithThreshold(0),
				WithLogger(logger),
			)
			require.NoError(t, d.Init())

			recorder.Record(trace.Enter, trace.FuncIDDispatch)
			tk := &task{
				cursor: recorder.Mark("hang#dispatchBegin"),
				token:  1,
				timer:  time.NewTimer(time.Hour),
			}
			recorder.Record(trace.Enter, 1)
			recorder.Record(trace.Exit, 1)
			recorder.Record(trace.Exit, trace.FuncIDDispatch)

			tt.end(d, tk)
			require.False(t, tk.cursor.Valid())

			// The check lost the race: it finds no data and reports nothing.
			require.NotPanics(t, func() { d.check(tk) })
			require.Zero(t, reports)
			require.Zero(t, d.Reported())
			require.Zero(t, d.Dropped())
			require.Empty(t, recorder.Cursors())
		})
	}
}
