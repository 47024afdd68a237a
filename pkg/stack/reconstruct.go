package stack

import (
	"github.com/pkg/errors"

	"github.com/maxgio92/looptrace/pkg/trace"
)

// Reconstructor turns copied trace events into call trees.
// It holds no state between calls and is safe for concurrent use.
type Reconstructor struct {
	*ReconstructorOptions
}

func NewReconstructor(opts ...ReconstructorOpt) *Reconstructor {
	r := &Reconstructor{defaultOptions()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "reconstructor").Logger()

	return r
}

// Reconstruct decodes events into a pre-order list of calls.
//
// In strict mode the events before the first dispatch enter are skipped and
// the enters still open at the end are closed at windowEnd.
// A negative duration aborts the whole batch with ErrNegativeDuration.
func (r *Reconstructor) Reconstruct(events []trace.Event, strict bool, windowEnd uint64) ([]MethodItem, error) {
	var (
		frames = make([]trace.Event, 0, 64)
		items  = make([]MethodItem, 0, len(events)/2)
		depth  int
		begun  = !strict
	)

	for _, e := range events {
		if e == 0 {
			continue
		}
		if !begun {
			if !e.IsEnter() || e.FuncID() != r.sentinel {
				continue
			}
			begun = true
		}

		if e.IsEnter() {
			if e.FuncID() == r.sentinel {
				depth = 0
			}
			depth++
			frames = append(frames, e)
			continue
		}

		id := e.FuncID()
		if len(frames) == 0 {
			r.logger.Debug().Uint32("id", id).Msg("exit without enter")
			continue
		}

		// Pop until the matching enter: enters may have been overwritten.
		i := len(frames) - 1
		depth--
		for frames[i].FuncID() != id && i > 0 {
			i--
			depth--
		}
		in := frames[i]
		if in.FuncID() != id && in.FuncID() == r.sentinel {
			r.logger.Warn().
				Uint32("id", id).
				Int("popped", len(frames)-i).
				Msg("exit crosses a dispatch boundary, dropping it")
			depth += len(frames) - i
			continue
		}
		if in.FuncID() != id {
			r.logger.Debug().Uint32("id", id).Uint32("outermost", in.FuncID()).Msg("no matching enter")
		}
		frames = frames[:i]

		duration := int64(e.Time()) - int64(in.Time())
		if duration < 0 {
			r.logger.Error().Uint32("id", id).Int64("duration", duration).Msg("invalid trace duration")
			return []MethodItem{}, errors.Wrapf(ErrNegativeDuration, "function %d lasted %d ms", id, duration)
		}
		items = r.appendItem(items, newMethodItem(id, duration, max(depth, 0)))
	}

	if strict {
		for len(frames) > 0 {
			in := frames[len(frames)-1]
			frames = frames[:len(frames)-1]

			duration := int64(windowEnd) - int64(in.Time())
			if duration < 0 {
				r.logger.Warn().
					Uint32("id", in.FuncID()).
					Uint64("enter", in.Time()).
					Uint64("window_end", windowEnd).
					Msg("enter after the window end")
				duration = 0
			}
			r.logger.Debug().Uint32("id", in.FuncID()).Int64("duration", duration).Msg("closing unfinished call")
			items = r.appendItem(items, newMethodItem(in.FuncID(), duration, len(frames)))
		}
	}

	return NewTree(items).Flatten(), nil
}

// appendItem merges item into the last one when they are the same nested call.
func (r *Reconstructor) appendItem(items []MethodItem, item MethodItem) []MethodItem {
	if n := len(items); n > 0 {
		last := &items[n-1]
		if last.FuncID == item.FuncID && last.Depth == item.Depth && item.Depth != 0 {
			last.merge(item.Duration)
			return items
		}
	}
	return append(items, item)
}
