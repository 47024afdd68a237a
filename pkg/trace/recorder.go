package trace

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/rs/zerolog"
)

// ring is the recorder backing storage. pins counts the active cursors
// captured at each slot, so the producer knows without locking when a write
// piles up on a cursor.
type ring struct {
	slots []atomic.Uint64
	pins  []atomic.Int32
}

func newRing(size int) *ring {
	return &ring{
		slots: make([]atomic.Uint64, size),
		pins:  make([]atomic.Int32, size),
	}
}

func (rb *ring) len() int {
	return len(rb.slots)
}

// Recorder is a fixed capacity ring buffer of trace events fed by a single
// producer, the monitored main loop goroutine.
type Recorder struct {
	ring    atomic.Pointer[ring]
	written atomic.Uint64
	now     atomic.Uint64
	state   atomic.Int32

	// inFlight guards against nested writes, per direction.
	// Only the producer touches it.
	inFlight [2]bool

	stateMu      sync.Mutex
	releaseTimer *time.Timer
	expiryTimer  *time.Timer

	updater *timeUpdater
	reg     *registry

	*RecorderOptions
}

func NewRecorder(opts ...RecorderOpt) *Recorder {
	r := &Recorder{
		RecorderOptions: &RecorderOptions{
			size:            DefaultBufferSize,
			timeUpdateCycle: DefaultTimeUpdateCycle,
			releaseDelay:    DefaultReleaseDelay,
			startExpiry:     DefaultStartExpiry,
			logger:          log.Nop(),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.size <= 0 {
		r.size = DefaultBufferSize
	}
	if r.clock == nil {
		r.clock = NewMonotonicClock()
	}
	r.logger = r.logger.With().Str("component", "recorder").Logger()

	r.ring.Store(newRing(r.size))
	r.reg = newRegistry(r.logger)
	r.updater = newTimeUpdater(r.timeUpdateCycle, r.refreshTime)
	r.now.Store(r.clock.NowMillis())
	r.releaseTimer = time.AfterFunc(r.releaseDelay, r.release)

	return r
}

// Record appends an enter or exit event for the function id.
// It never blocks and never fails: events that cannot be recorded are dropped.
func (r *Recorder) Record(dir Direction, id uint32) {
	if id >= FuncIDMax {
		return
	}
	state := State(r.state.Load())
	if !state.recording() {
		return
	}
	if state == StateUnstarted {
		r.realExecute()
	}
	rb := r.ring.Load()
	if rb == nil {
		return
	}

	if r.inFlight[dir&1] {
		r.logger.Error().Uint32("id", id).Stringer("direction", dir).Msg("recursive record call, dropping event")
		return
	}
	r.inFlight[dir&1] = true
	if dir == Enter && r.enterListener != nil {
		r.enterListener(id)
	}
	r.write(rb, dir, id)
	r.inFlight[dir&1] = false
}

func (r *Recorder) write(rb *ring, dir Direction, id uint32) {
	if id == FuncIDDispatch {
		r.refreshTime()
	}
	n := r.written.Load()
	i := int(n % uint64(rb.len()))

	rb.slots[i].Store(uint64(NewEvent(dir, id, r.now.Load())))
	if rb.pins[i].Load() != 0 {
		r.reg.pileup(rb, i)
	}
	r.written.Store(n + 1)
}

// realExecute runs once, on the first recorded event.
func (r *Recorder) realExecute() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if State(r.state.Load()) != StateUnstarted {
		return
	}
	r.logger.Info().Msg("first event recorded")

	r.releaseTimer.Stop()
	r.refreshTime()
	r.updater.start()
	r.expiryTimer = time.AfterFunc(r.startExpiry, r.checkStartExpired)
	r.state.Store(int32(StateReady))
}

func (r *Recorder) checkStartExpired() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	state := State(r.state.Load())
	r.logger.Info().Stringer("state", state).Msg("checking start expiry")
	if state == StateUnstarted || state == StateReady {
		r.state.Store(int32(StateExpired))
	}
}

// release frees the buffer of a recorder that was never used.
func (r *Recorder) release() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if State(r.state.Load()) != StateUnstarted {
		return
	}
	r.logger.Info().Int("size", r.size).Msg("recorder never used, releasing buffer")

	r.ring.Store(nil)
	r.reg.invalidateAll()
	r.updater.stop()
	r.state.Store(int32(StateReleased))
}

// Start marks the recorder as running. It is expected after the first event.
func (r *Recorder) Start() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	state := State(r.state.Load())
	switch state {
	case StateReady, StateExpired:
		if r.expiryTimer != nil {
			r.expiryTimer.Stop()
		}
		r.logger.Info().Stringer("previous", state).Msg("recorder started")
		r.state.Store(int32(StateRunning))
	default:
		r.logger.Warn().Stringer("state", state).Msg("cannot start recorder")
	}
}

// Stop stops a running recorder. Events recorded afterwards are ignored.
func (r *Recorder) Stop() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	state := State(r.state.Load())
	if state != StateRunning {
		r.logger.Warn().Stringer("state", state).Msg("cannot stop recorder")
		return
	}
	r.logger.Info().Msg("recorder stopped")
	r.updater.stop()
	r.state.Store(int32(StateStopped))
}

// Close releases the timers and the background time updater.
// The recorder state is left untouched.
func (r *Recorder) Close() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	r.releaseTimer.Stop()
	if r.expiryTimer != nil {
		r.expiryTimer.Stop()
	}
	r.updater.stop()
}

// DispatchBegin refreshes the current time and resumes the time updater.
func (r *Recorder) DispatchBegin() {
	r.refreshTime()
	r.updater.resume()
}

// DispatchEnd parks the time updater until the next dispatch.
func (r *Recorder) DispatchEnd() {
	r.updater.pause()
}

func (r *Recorder) refreshTime() {
	r.now.Store(r.clock.NowMillis())
}

func (r *Recorder) State() State {
	return State(r.state.Load())
}

// Now returns the clock time, on the same base as the recorded events.
func (r *Recorder) Now() uint64 {
	return r.clock.NowMillis()
}

// Len returns the capacity of the ring buffer, 0 once released.
func (r *Recorder) Len() int {
	rb := r.ring.Load()
	if rb == nil {
		return 0
	}
	return rb.len()
}

// Written returns the number of events recorded since the creation.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}
