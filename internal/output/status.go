package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

// LoopStatus is a snapshot of a traced main loop.
type LoopStatus struct {
	EventRate   uint64
	BufferUtil  int
	Cursors     int
	Hangs       uint64
	DroppedRate float64
}

func PrettyLoopStatus(s LoopStatus) string {
	return fmt.Sprintf("\r%-20s %-30s %-12s %-10s %-20s",
		fmt.Sprintf("Events/s: %6d", s.EventRate),
		fmt.Sprintf("Buffer: [%s] %3d%%", ProgressBar(s.BufferUtil, 10), s.BufferUtil),
		fmt.Sprintf("Cursors: %d", s.Cursors),
		fmt.Sprintf("Hangs: %d", s.Hangs),
		fmt.Sprintf("Dropped/frame: %.2f", s.DroppedRate),
	)
}
