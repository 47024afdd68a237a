package trace

// State is the lifecycle state of a Recorder.
type State int32

const (
	// StateUnstarted means the buffer is allocated but nothing was recorded yet.
	StateUnstarted State = iota
	// StateReady means the first event was recorded but Start was not called.
	StateReady
	// StateRunning means Start was called.
	StateRunning
	// StateStopped means Stop was called; further events are ignored.
	StateStopped
	// StateExpired means Start was not called in time. Recording goes on.
	StateExpired
	// StateReleased means the recorder was never used and its buffer was freed.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateExpired:
		return "expired"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// recording reports whether events are accepted in this state.
func (s State) recording() bool {
	return s != StateStopped && s != StateReleased
}
