package trace

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/rs/zerolog"
)

// Cursor is a weak marker into the ring buffer. It stays valid until the
// producer writes its slot again, or until it is released.
type Cursor struct {
	index  int
	pos    uint64
	source string
	valid  atomic.Bool
}

// Index returns the buffer slot the cursor was captured at.
func (c *Cursor) Index() int {
	return c.index
}

func (c *Cursor) Source() string {
	return c.source
}

func (c *Cursor) Valid() bool {
	return c != nil && c.valid.Load()
}

func (c *Cursor) String() string {
	if c == nil {
		return "nil"
	}
	return fmt.Sprintf("index:%d valid:%t source:%s", c.index, c.Valid(), c.source)
}

// registry keeps the active cursors ordered by captured index.
type registry struct {
	mu      sync.Mutex
	cursors []*Cursor
	logger  log.Logger
}

func newRegistry(logger log.Logger) *registry {
	return &registry{
		cursors: make([]*Cursor, 0),
		logger:  logger,
	}
}

// insert places c before the first cursor with an index greater or equal.
func (g *registry) insert(c *Cursor) {
	i := sort.Search(len(g.cursors), func(j int) bool {
		return g.cursors[j].index >= c.index
	})
	g.cursors = append(g.cursors, nil)
	copy(g.cursors[i+1:], g.cursors[i:])
	g.cursors[i] = c
}

func (g *registry) remove(c *Cursor) bool {
	for i, cur := range g.cursors {
		if cur == c {
			g.cursors = append(g.cursors[:i], g.cursors[i+1:]...)
			return true
		}
	}
	return false
}

// pileup invalidates and unlinks every cursor captured at the slot being written.
func (g *registry) pileup(rb *ring, index int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := sort.Search(len(g.cursors), func(j int) bool {
		return g.cursors[j].index >= index
	})
	j := i
	for j < len(g.cursors) && g.cursors[j].index == index {
		c := g.cursors[j]
		c.valid.Store(false)
		rb.pins[index].Add(-1)
		g.logger.Warn().Str("cursor", c.String()).Msg("cursor piled up")
		j++
	}
	g.cursors = append(g.cursors[:i], g.cursors[j:]...)
}

func (g *registry) invalidateAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, c := range g.cursors {
		c.valid.Store(false)
	}
	g.cursors = g.cursors[:0]
}

// Mark captures the position of the last written event.
// The returned cursor is invalid when the buffer is not available.
func (r *Recorder) Mark(source string) *Cursor {
	c := &Cursor{index: -1, source: source}
	rb := r.ring.Load()
	if rb == nil {
		r.logger.Warn().Str("source", source).Msg("buffer not available, cursor is invalid")
		return c
	}

	r.reg.mu.Lock()
	defer r.reg.mu.Unlock()

	size := uint64(rb.len())
	c.pos = r.written.Load()
	c.index = int((c.pos + size - 1) % size)
	c.valid.Store(true)
	r.reg.insert(c)
	rb.pins[c.index].Add(1)

	return c
}

// Release drops a cursor. Releasing twice, or after a pileup, is a no-op.
func (r *Recorder) Release(c *Cursor) {
	if c == nil {
		return
	}
	r.reg.mu.Lock()
	defer r.reg.mu.Unlock()

	if !r.reg.remove(c) {
		c.valid.Store(false)
		return
	}
	c.valid.Store(false)
	if rb := r.ring.Load(); rb != nil {
		rb.pins[c.index].Add(-1)
	}
}

// Cursors returns a snapshot of the active cursors, ordered by index.
func (r *Recorder) Cursors() []*Cursor {
	r.reg.mu.Lock()
	defer r.reg.mu.Unlock()

	cursors := make([]*Cursor, len(r.reg.cursors))
	copy(cursors, r.reg.cursors)

	return cursors
}

// CopyData returns the events from the start cursor up to the last written one.
func (r *Recorder) CopyData(start *Cursor) []Event {
	end := &Cursor{index: -1, source: "end"}
	if rb := r.ring.Load(); rb != nil {
		size := uint64(rb.len())
		end.pos = r.written.Load()
		end.index = int((end.pos + size - 1) % size)
		end.valid.Store(true)
	}

	return r.CopyDataRange(start, end)
}

// Snapshot returns the buffered events, oldest first. It does not pin any
// slot: call it once the producer is quiescent, e.g. to dump a stopped
// recorder.
func (r *Recorder) Snapshot() []Event {
	rb := r.ring.Load()
	if rb == nil {
		return nil
	}
	size := uint64(rb.len())
	written := r.written.Load()
	n := min(written, size)

	data := make([]Event, n)
	for i := uint64(0); i < n; i++ {
		data[i] = Event(rb.slots[(written-n+i)%size].Load())
	}

	return data
}

// CopyDataRange returns the events between two cursors, both included.
// The result is empty when a cursor is invalid or the window is inverted.
func (r *Recorder) CopyDataRange(start, end *Cursor) []Event {
	begin := time.Now()

	if !start.Valid() || !end.Valid() {
		r.logger.Warn().Err(ErrCursorInvalid).Stringer("start", start).Stringer("end", end).Msg("cannot copy data")
		return nil
	}
	if end.pos < start.pos {
		r.logger.Warn().Err(ErrWindowInverted).Stringer("start", start).Stringer("end", end).Msg("cannot copy data")
		return nil
	}
	rb := r.ring.Load()
	if rb == nil {
		return nil
	}
	if end.pos-start.pos >= uint64(rb.len()) {
		r.logger.Warn().Err(ErrCursorInvalid).Stringer("start", start).Msg("window larger than the buffer")
		return nil
	}

	var data []Event
	s, e, size := start.index, end.index, rb.len()
	switch {
	case e > s:
		data = make([]Event, e-s+1)
		loadSlots(data, rb.slots[s:e+1])
	case e < s:
		data = make([]Event, 1+e+size-s)
		loadSlots(data[:size-s], rb.slots[s:])
		loadSlots(data[size-s:], rb.slots[:e+1])
	}

	// The producer may have overwritten the window while copying.
	if !start.Valid() {
		r.logger.Warn().Err(ErrCursorInvalid).Stringer("start", start).Msg("window overwritten while copying")
		return nil
	}
	r.logger.Debug().
		Int("start", s).
		Int("end", e).
		Int("length", len(data)).
		Dur("cost", time.Since(begin)).
		Msg("data copied")

	return data
}

func loadSlots(dst []Event, src []atomic.Uint64) {
	for i := range dst {
		dst[i] = Event(src[i].Load())
	}
}
