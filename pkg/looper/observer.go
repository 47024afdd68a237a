package looper

import "github.com/maxgio92/looptrace/pkg/trace"

// Phase is a sub-phase of a main loop dispatch.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseAnimation
	PhaseTraversal

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseAnimation:
		return "animation"
	case PhaseTraversal:
		return "traversal"
	default:
		return "unknown"
	}
}

// PhaseCostUnfinished is the cost reported for a phase begun and never ended.
const PhaseCostUnfinished int64 = -100

// Token identifies one dispatch. It is the dispatch begin time in nanoseconds.
type Token int64

// Frame is the cost breakdown of one dispatch.
type Frame struct {
	Scene               string `json:"scene"`
	StartNs             int64  `json:"start_ns"`
	EndNs               int64  `json:"end_ns"`
	RenderFrame         bool   `json:"render_frame"`
	IntendedFrameTimeNs int64  `json:"intended_frame_time_ns"`
	InputCostNs         int64  `json:"input_cost_ns"`
	AnimationCostNs     int64  `json:"animation_cost_ns"`
	TraversalCostNs     int64  `json:"traversal_cost_ns"`
}

// Dispatch describes a dispatch that just ended.
type Dispatch struct {
	Token       Token `json:"token"`
	BeginNs     int64 `json:"begin_ns"`
	EndNs       int64 `json:"end_ns"`
	CPUBeginMs  int64 `json:"cpu_begin_ms"`
	CPUEndMs    int64 `json:"cpu_end_ms"`
	RenderFrame bool  `json:"render_frame"`
}

// Observer is notified of every dispatch of the monitored loop, on the loop
// goroutine. Implementations must return quickly.
type Observer interface {
	DispatchBegin(beginNs, cpuBeginMs int64, token Token)
	DoFrame(frame Frame)
	DispatchEnd(dispatch Dispatch)
}

// LoopHook is what the loop integration calls at the loop boundaries.
type LoopHook interface {
	DispatchBegin()
	DispatchEnd()
	PhaseBegin(phase Phase)
	PhaseEnd(phase Phase)
}

// Sink receives the dispatch boundary events.
type Sink interface {
	Record(dir trace.Direction, id uint32)
}

// Pacer is implemented by sinks that want to know when the loop is busy.
type Pacer interface {
	DispatchBegin()
	DispatchEnd()
}

var (
	_ LoopHook = (*Monitor)(nil)
	_ Sink     = (*trace.Recorder)(nil)
	_ Pacer    = (*trace.Recorder)(nil)
)
