package trace

import (
	"sync"
	"sync/atomic"
	"time"
)

// timeUpdater refreshes the recorder's current time on a low frequency tick,
// so that the write path never reads a clock. It parks while the main loop is idle.
type timeUpdater struct {
	cycle  time.Duration
	update func()

	paused atomic.Bool
	wake   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func newTimeUpdater(cycle time.Duration, update func()) *timeUpdater {
	return &timeUpdater{
		cycle:  cycle,
		update: update,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (u *timeUpdater) start() {
	u.startOnce.Do(func() {
		go u.run()
	})
}

func (u *timeUpdater) run() {
	ticker := time.NewTicker(u.cycle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-u.done:
			return
		}
		if u.paused.Load() {
			select {
			case <-u.wake:
			case <-u.done:
				return
			}
		}
		u.update()
	}
}

func (u *timeUpdater) pause() {
	u.paused.Store(true)
}

func (u *timeUpdater) resume() {
	u.paused.Store(false)
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

func (u *timeUpdater) stop() {
	u.stopOnce.Do(func() {
		close(u.done)
	})
}
