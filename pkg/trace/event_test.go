package trace_test

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/looptrace/pkg/trace"
)

func TestEventRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		dir  trace.Direction
		id   uint32
		ms   uint64
	}{
		{name: "zero exit", dir: trace.Exit, id: 0, ms: 0},
		{name: "zero enter", dir: trace.Enter, id: 0, ms: 0},
		{name: "dispatch enter", dir: trace.Enter, id: trace.FuncIDDispatch, ms: 16},
		{name: "largest id", dir: trace.Exit, id: trace.FuncIDMax - 1, ms: 1},
		{name: "largest time", dir: trace.Enter, id: 1234, ms: trace.TimeMax},
		{name: "all bits", dir: trace.Enter, id: trace.FuncIDMax, ms: trace.TimeMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := trace.NewEvent(tt.dir, tt.id, tt.ms)
			require.Equal(t, tt.dir, e.Direction())
			require.Equal(t, tt.dir == trace.Enter, e.IsEnter())
			require.Equal(t, tt.id, e.FuncID())
			require.Equal(t, tt.ms, e.Time())
		})
	}
}

func TestEventLayout(t *testing.T) {
	e := trace.NewEvent(trace.Enter, 1, 2)
	require.Equal(t, uint64(1)<<63|uint64(1)<<43|2, uint64(e))
	require.Equal(t, "enter(1,2)", e.String())

	e = trace.NewEvent(trace.Exit, 3, 4)
	require.Equal(t, uint64(3)<<43|4, uint64(e))
	require.Equal(t, "exit(3,4)", e.String())
}

func TestDumpRoundTrip(t *testing.T) {
	events := []trace.Event{
		trace.NewEvent(trace.Enter, trace.FuncIDDispatch, 0),
		trace.NewEvent(trace.Enter, 1, 2),
		trace.NewEvent(trace.Exit, 1, 7),
		trace.NewEvent(trace.Exit, trace.FuncIDDispatch, 9),
	}

	var buf bytes.Buffer
	require.NoError(t, trace.WriteEvents(&buf, events))
	require.Equal(t, 8*len(events), buf.Len())

	got, err := trace.ReadEvents(&buf)
	require.NoError(t, err)
	require.Equal(t, events, got)
}

func TestReadEventsTruncated(t *testing.T) {
	_, err := trace.ReadEvents(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
	require.True(t, errors.Is(err, trace.ErrDumpTruncated))
}
