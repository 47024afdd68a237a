package stack_test

import (
	"testing"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/looptrace/pkg/stack"
	"github.com/maxgio92/looptrace/pkg/trace"
)

const dispatch = trace.FuncIDDispatch

func enter(id uint32, ms uint64) trace.Event {
	return trace.NewEvent(trace.Enter, id, ms)
}

func exit(id uint32, ms uint64) trace.Event {
	return trace.NewEvent(trace.Exit, id, ms)
}

func newTestReconstructor(t *testing.T, opts ...stack.ReconstructorOpt) *stack.Reconstructor {
	return stack.NewReconstructor(append([]stack.ReconstructorOpt{
		stack.WithLogger(log.New(log.NewTestWriter(t))),
	}, opts...)...)
}

func item(id uint32, depth int, duration int64, count int) stack.MethodItem {
	return stack.MethodItem{FuncID: id, Depth: depth, Duration: duration, Count: count}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name      string
		events    []trace.Event
		strict    bool
		windowEnd uint64
		validate  func(*testing.T, []stack.MethodItem, error)
	}{
		{
			name:   "balanced",
			events: []trace.Event{enter(1, 0), enter(2, 5), exit(2, 50), exit(1, 60)},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(1, 0, 60, 1),
					item(2, 1, 45, 1),
				}, items)
			},
		},
		{
			name: "siblings keep the call order",
			events: []trace.Event{
				enter(1, 0),
				enter(2, 1), enter(3, 2), exit(3, 4), exit(2, 5),
				enter(4, 6), exit(4, 9),
				exit(1, 10),
			},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(1, 0, 10, 1),
					item(2, 1, 4, 1),
					item(3, 2, 2, 1),
					item(4, 1, 3, 1),
				}, items)
			},
		},
		{
			name: "repeated calls are merged",
			events: []trace.Event{
				enter(1, 0),
				enter(2, 1), exit(2, 3),
				enter(2, 3), exit(2, 6),
				enter(2, 6), exit(2, 7),
				exit(1, 10),
			},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(1, 0, 10, 1),
					item(2, 1, 6, 3),
				}, items)
			},
		},
		{
			name:   "top level calls are not merged",
			events: []trace.Event{enter(1, 0), exit(1, 2), enter(1, 2), exit(1, 5)},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(1, 0, 2, 1),
					item(1, 0, 3, 1),
				}, items)
			},
		},
		{
			name:   "missing exit is tolerated",
			events: []trace.Event{enter(1, 0), enter(2, 5), exit(1, 60)},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{item(1, 0, 60, 1)}, items)
			},
		},
		{
			name:      "strict mode closes open calls at the window end",
			events:    []trace.Event{enter(dispatch, 0), enter(1, 0), enter(2, 5), exit(1, 60)},
			strict:    true,
			windowEnd: 100,
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(dispatch, 0, 100, 1),
					item(1, 1, 60, 1),
				}, items)
				for _, it := range items {
					require.GreaterOrEqual(t, it.Duration, int64(0))
				}
			},
		},
		{
			name: "strict mode skips events before the first dispatch",
			events: []trace.Event{
				exit(7, 1), enter(8, 2), exit(8, 3),
				enter(dispatch, 10), enter(1, 11), exit(1, 15), exit(dispatch, 20),
			},
			strict:    true,
			windowEnd: 30,
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(dispatch, 0, 10, 1),
					item(1, 1, 4, 1),
				}, items)
			},
		},
		{
			name: "strict mode without dispatch yields nothing",
			events: []trace.Event{
				enter(1, 0), exit(1, 1),
			},
			strict: true,
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Empty(t, items)
			},
		},
		{
			name:      "unfinished call after the window end lasts zero",
			events:    []trace.Event{enter(dispatch, 0), enter(1, 50)},
			strict:    true,
			windowEnd: 40,
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(dispatch, 0, 40, 1),
					item(1, 1, 0, 1),
				}, items)
			},
		},
		{
			name: "exit crossing a dispatch is dropped",
			events: []trace.Event{
				enter(dispatch, 0), enter(1, 1), exit(9, 2), exit(1, 5), exit(dispatch, 8),
			},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(dispatch, 0, 8, 1),
					item(1, 1, 4, 1),
				}, items)
			},
		},
		{
			name: "dispatch resets the depth",
			events: []trace.Event{
				enter(dispatch, 0), enter(1, 1), exit(1, 2), exit(dispatch, 3),
				enter(dispatch, 4), enter(2, 5), exit(2, 7), exit(dispatch, 9),
			},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{
					item(dispatch, 0, 3, 1),
					item(1, 1, 1, 1),
					item(dispatch, 0, 5, 1),
					item(2, 1, 2, 1),
				}, items)
			},
		},
		{
			name:   "empty slots are skipped",
			events: []trace.Event{0, enter(1, 0), 0, exit(1, 3), 0},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.NoError(t, err)
				require.Equal(t, []stack.MethodItem{item(1, 0, 3, 1)}, items)
			},
		},
		{
			name:   "negative duration aborts",
			events: []trace.Event{enter(1, 0), enter(2, 10), exit(2, 5), exit(1, 20)},
			validate: func(t *testing.T, items []stack.MethodItem, err error) {
				require.Error(t, err)
				require.True(t, errors.Is(err, stack.ErrNegativeDuration))
				require.Empty(t, items)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReconstructor(t)
			items, err := r.Reconstruct(tt.events, tt.strict, tt.windowEnd)
			tt.validate(t, items, err)
		})
	}
}

func TestTreeLen(t *testing.T) {
	// Exit order: 3, 2, 4, 1.
	tree := stack.NewTree([]stack.MethodItem{
		item(3, 2, 2, 1),
		item(2, 1, 4, 1),
		item(4, 1, 3, 1),
		item(1, 0, 10, 1),
	})
	require.Equal(t, 4, tree.Len())
	require.Equal(t, []uint32{1, 2, 3, 4}, ids(tree.Flatten()))
}

func TestTreeOrphans(t *testing.T) {
	// The first call is not at depth 0: it hangs from the root.
	tree := stack.NewTree([]stack.MethodItem{
		item(2, 3, 1, 1),
		item(1, 2, 5, 1),
	})
	require.Equal(t, []uint32{1, 2}, ids(tree.Flatten()))
}

func ids(items []stack.MethodItem) []uint32 {
	out := make([]uint32, 0, len(items))
	for _, it := range items {
		out = append(out, it.FuncID)
	}
	return out
}
