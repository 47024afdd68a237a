package frame

import (
	"encoding/json"
	"io"
)

// DropLevel classifies a frame by the number of frames it dropped.
type DropLevel int

const (
	DropBest DropLevel = iota
	DropNormal
	DropMiddle
	DropHigh
	DropFrozen

	dropLevelCount
)

func (l DropLevel) String() string {
	switch l {
	case DropBest:
		return "DROPPED_BEST"
	case DropNormal:
		return "DROPPED_NORMAL"
	case DropMiddle:
		return "DROPPED_MIDDLE"
	case DropHigh:
		return "DROPPED_HIGH"
	case DropFrozen:
		return "DROPPED_FROZEN"
	default:
		return "DROPPED_UNKNOWN"
	}
}

// Summary is the frame rate of a scene over a time slice.
type Summary struct {
	Scene         string         `json:"scene"`
	FPS           float64        `json:"fps"`
	Frames        int            `json:"frames"`
	DroppedFrames int            `json:"dropped_frames"`
	FrameCostMs   float64        `json:"frame_cost_ms"`
	DropLevel     map[string]int `json:"drop_level"`
	DropSum       map[string]int `json:"drop_sum"`
}

func (s *Summary) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(s)
}

// Reporter receives the summaries, from the tracker worker goroutine.
type Reporter interface {
	Report(summary *Summary)
}

type ReporterFunc func(summary *Summary)

func (f ReporterFunc) Report(summary *Summary) {
	f(summary)
}

// collector accumulates the frames of one scene.
type collector struct {
	scene         string
	frameCostMs   float64
	frames        int
	droppedFrames int
	dropLevel     [dropLevelCount]int
	dropSum       [dropLevelCount]int
}

func (c *collector) collect(dropped int, intervalMs float64, level DropLevel) {
	c.frameCostMs += float64(dropped+1) * intervalMs
	c.droppedFrames += dropped
	c.frames++
	c.dropLevel[level]++
	c.dropSum[level] += dropped
}

// summary caps the frame rate at maxFPS, one frame per interval.
func (c *collector) summary(maxFPS float64) *Summary {
	s := &Summary{
		Scene:         c.scene,
		FPS:           min(maxFPS, 1000*float64(c.frames)/c.frameCostMs),
		Frames:        c.frames,
		DroppedFrames: c.droppedFrames,
		FrameCostMs:   c.frameCostMs,
		DropLevel:     make(map[string]int, dropLevelCount),
		DropSum:       make(map[string]int, dropLevelCount),
	}
	for l := DropLevel(0); l < dropLevelCount; l++ {
		s.DropLevel[l.String()] = c.dropLevel[l]
		s.DropSum[l.String()] = c.dropSum[l]
	}

	return s
}
