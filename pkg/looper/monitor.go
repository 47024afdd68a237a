package looper

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/looptrace/pkg/trace"
)

type phaseStatus int32

const (
	phaseIdle phaseStatus = iota
	phaseBegun
	phaseDone
	phaseUnfinished
)

type phaseState struct {
	status  atomic.Int32
	cost    atomic.Int64
	beginNs int64
}

func (p *phaseState) reset() {
	p.status.Store(int32(phaseIdle))
	p.cost.Store(0)
	p.beginNs = 0
}

// Monitor tracks the dispatches of a single main loop and their sub-phases.
// The LoopHook methods must be called from the loop goroutine only; observers
// can be added and removed from any goroutine.
type Monitor struct {
	mu        sync.Mutex
	observers atomic.Pointer[[]Observer]
	scene     atomic.Pointer[string]

	// Loop goroutine state.
	dispatching bool
	beginNs     int64
	cpuBeginMs  int64
	notified    []Observer

	token  atomic.Int64
	phases [phaseCount]phaseState

	*MonitorOptions
}

func NewMonitor(opts ...MonitorOpt) *Monitor {
	m := &Monitor{
		MonitorOptions: &MonitorOptions{
			frameIntervalNs: DefaultFrameInterval,
			logger:          log.Nop(),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewSystemClock()
	}
	m.logger = m.logger.With().Str("component", "monitor").Logger()
	m.observers.Store(&[]Observer{})
	m.token.Store(-1)

	return m
}

// AddObserver registers o. It takes effect from the next dispatch.
func (m *Monitor) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := *m.observers.Load()
	for _, obs := range cur {
		if obs == o {
			return
		}
	}
	next := make([]Observer, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, o)
	m.observers.Store(&next)
}

func (m *Monitor) RemoveObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := *m.observers.Load()
	next := make([]Observer, 0, len(cur))
	for _, obs := range cur {
		if obs != o {
			next = append(next, obs)
		}
	}
	m.observers.Store(&next)
}

func (m *Monitor) ObserverCount() int {
	return len(*m.observers.Load())
}

// SetScene sets the label reported with the following frames.
func (m *Monitor) SetScene(scene string) {
	m.scene.Store(&scene)
}

func (m *Monitor) Scene() string {
	if s := m.scene.Load(); s != nil {
		return *s
	}
	return ""
}

func (m *Monitor) FrameIntervalNs() int64 {
	return m.frameIntervalNs
}

// Dispatching reports whether a dispatch is running. Loop goroutine only.
func (m *Monitor) Dispatching() bool {
	return m.dispatching
}

func (m *Monitor) DispatchBegin() {
	if m.dispatching {
		m.misuse(ErrOverlappingDispatch, m.logger.Error().Int64("token", m.token.Load()))
		return
	}
	m.dispatching = true
	m.beginNs = m.clock.Nanotime()
	m.cpuBeginMs = m.clock.ThreadTimeMs()
	m.token.Store(-1)
	for i := range m.phases {
		m.phases[i].reset()
	}
	m.token.Store(m.beginNs)

	m.record(trace.Enter)
	if p, ok := m.sink.(Pacer); ok {
		p.DispatchBegin()
	}

	m.notified = *m.observers.Load()
	for _, o := range m.notified {
		o.DispatchBegin(m.beginNs, m.cpuBeginMs, Token(m.beginNs))
	}
}

func (m *Monitor) PhaseBegin(phase Phase) {
	if phase < 0 || phase >= phaseCount {
		m.logger.Warn().Err(ErrUnknownPhase).Int("phase", int(phase)).Msg("ignoring phase begin")
		return
	}
	if !m.dispatching {
		m.logger.Warn().Err(ErrNotDispatching).Stringer("phase", phase).Msg("ignoring phase begin")
		return
	}
	p := &m.phases[phase]
	if phaseStatus(p.status.Load()) == phaseBegun {
		m.logger.Warn().Stringer("phase", phase).Msg("phase already begun")
		return
	}
	p.beginNs = m.clock.Nanotime()
	p.status.Store(int32(phaseBegun))
}

func (m *Monitor) PhaseEnd(phase Phase) {
	if phase < 0 || phase >= phaseCount {
		m.logger.Warn().Err(ErrUnknownPhase).Int("phase", int(phase)).Msg("ignoring phase end")
		return
	}
	p := &m.phases[phase]
	if !m.dispatching || phaseStatus(p.status.Load()) != phaseBegun {
		m.logger.Warn().Stringer("phase", phase).Msg("ignoring end of a phase never begun")
		return
	}
	m.endPhase(p, m.clock.Nanotime())
}

func (m *Monitor) endPhase(p *phaseState, now int64) {
	p.cost.Add(now - p.beginNs)
	p.status.Store(int32(phaseDone))
}

func (m *Monitor) DispatchEnd() {
	if !m.dispatching {
		m.logger.Warn().Err(ErrNotDispatching).Msg("ignoring dispatch end")
		return
	}
	endNs := m.clock.Nanotime()

	// The traversal ends with the frame.
	traversal := &m.phases[PhaseTraversal]
	if phaseStatus(traversal.status.Load()) == phaseBegun {
		m.endPhase(traversal, endNs)
	}
	for _, phase := range []Phase{PhaseInput, PhaseAnimation} {
		p := &m.phases[phase]
		if phaseStatus(p.status.Load()) != phaseBegun {
			continue
		}
		p.cost.Store(PhaseCostUnfinished)
		p.status.Store(int32(phaseUnfinished))
		m.misuse(ErrPhaseUnfinished, m.logger.Error().Stringer("phase", phase))
	}

	render := phaseStatus(traversal.status.Load()) == phaseDone
	intended := m.beginNs
	if m.vsync != nil {
		intended = m.vsync()
	}
	frame := Frame{
		Scene:               m.Scene(),
		StartNs:             m.beginNs,
		EndNs:               endNs,
		RenderFrame:         render,
		IntendedFrameTimeNs: intended,
		InputCostNs:         m.phases[PhaseInput].cost.Load(),
		AnimationCostNs:     m.phases[PhaseAnimation].cost.Load(),
		TraversalCostNs:     traversal.cost.Load(),
	}
	for _, o := range m.notified {
		o.DoFrame(frame)
	}

	m.record(trace.Exit)

	dispatch := Dispatch{
		Token:       Token(m.beginNs),
		BeginNs:     m.beginNs,
		EndNs:       endNs,
		CPUBeginMs:  m.cpuBeginMs,
		CPUEndMs:    m.clock.ThreadTimeMs(),
		RenderFrame: render,
	}
	for _, o := range m.notified {
		o.DispatchEnd(dispatch)
	}

	if p, ok := m.sink.(Pacer); ok {
		p.DispatchEnd()
	}
	m.notified = nil
	m.dispatching = false
}

// QueueCost returns the cost in nanoseconds of a phase of the dispatch
// identified by token: -1 when token is not the last dispatch, 0 while the
// phase is not finished. It is safe to call from any goroutine.
func (m *Monitor) QueueCost(phase Phase, token Token) int64 {
	if phase < 0 || phase >= phaseCount {
		return -1
	}
	if m.token.Load() != int64(token) {
		return -1
	}
	p := &m.phases[phase]
	switch phaseStatus(p.status.Load()) {
	case phaseDone, phaseUnfinished:
		return p.cost.Load()
	default:
		return 0
	}
}

func (m *Monitor) record(dir trace.Direction) {
	if m.sink != nil {
		m.sink.Record(dir, trace.FuncIDDispatch)
	}
}

// misuse reports an instrumentation bug. It panics in development.
func (m *Monitor) misuse(err error, event *log.Event) {
	event.Err(err).Msg("loop instrumentation misuse")
	if m.devEnv {
		panic(errors.Wrap(err, "loop instrumentation misuse"))
	}
}
