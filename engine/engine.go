package engine

import (
	"context"
	"sync/atomic"
	"time"

	"pitch-velocity/debug"
	"pitch-velocity/midi"
	"pitch-velocity/velocity"
)

// Manager is the live host: it owns the parameter snapshot, collects incoming
// events into blocks, routes them and sends the result.
//
// Parameters are written by the UI and read by the routing goroutine through
// an atomic pointer, so a block always sees one consistent snapshot and the
// routing path never waits on the UI.
type Manager struct {
	params atomic.Pointer[velocity.Params]
	output atomic.Pointer[outputSlot]

	inbox    chan midi.Event
	maxBlock int

	stats counters

	// routing goroutine only; published through recent
	ring      []Record
	recentMax int
	recent    atomic.Pointer[[]Record]

	// Notify TUI of updates
	UpdateChan chan struct{}
}

type outputSlot struct {
	out midi.Output
}

// Record is one routed (or dropped) event for the monitor view
type Record struct {
	At      time.Time
	In      midi.Event
	Out     midi.Event
	Dropped bool
}

// Stats is a snapshot of the routing counters
type Stats struct {
	Blocks     uint64
	In         uint64
	Out        uint64
	Remapped   uint64
	Dropped    uint64 // removed by the router
	Overflow   uint64 // lost because the inbox was full
	Unsent     uint64 // routed while no output was attached
	SendErrors uint64
}

type counters struct {
	blocks, in, out, remapped, dropped, overflow, unsent, sendErrors atomic.Uint64
}

const (
	inboxSize       = 512
	defaultMaxBlock = 128

	blockLogInterval = 100
)

// NewManager creates an engine with an initial parameter snapshot
func NewManager(p velocity.Params, recentMax int) (*Manager, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if recentMax < 0 {
		recentMax = 0
	}
	m := &Manager{
		inbox:      make(chan midi.Event, inboxSize),
		maxBlock:   defaultMaxBlock,
		recentMax:  recentMax,
		UpdateChan: make(chan struct{}, 1),
	}
	m.params.Store(&p)
	empty := []Record{}
	m.recent.Store(&empty)
	return m, nil
}

// Params returns the current snapshot
func (m *Manager) Params() velocity.Params {
	return *m.params.Load()
}

// SetParams validates and publishes a new snapshot. It takes effect from the next block.
func (m *Manager) SetParams(p velocity.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.params.Store(&p)
	debug.Log("params", "%s", p)
	m.notifyUpdate()
	return nil
}

// Update applies fn to a copy of the current snapshot and publishes the result
func (m *Manager) Update(fn func(p *velocity.Params)) error {
	for {
		old := m.params.Load()
		next := *old
		fn(&next)
		if err := next.Validate(); err != nil {
			return err
		}
		if m.params.CompareAndSwap(old, &next) {
			debug.Log("params", "%s", next)
			m.notifyUpdate()
			return nil
		}
	}
}

// SetOutput attaches the output port; nil detaches it
func (m *Manager) SetOutput(out midi.Output) {
	m.output.Store(&outputSlot{out: out})
	m.notifyUpdate()
}

// Output returns the attached output (may be nil)
func (m *Manager) Output() midi.Output {
	if slot := m.output.Load(); slot != nil {
		return slot.out
	}
	return nil
}

// Feed queues one incoming event. It never blocks; false means the event was lost.
func (m *Manager) Feed(e midi.Event) bool {
	select {
	case m.inbox <- e:
		return true
	default:
		m.stats.overflow.Add(1)
		return false
	}
}

// Attach forwards everything from an input until it closes
func (m *Manager) Attach(in midi.Input) {
	go func() {
		for e := range in.Events() {
			m.Feed(e)
		}
		debug.Log("engine", "input %s closed", in.ID())
	}()
}

// Run routes blocks until ctx is cancelled. Whatever is already queued when the
// first event of a block arrives joins that block.
func (m *Manager) Run(ctx context.Context) error {
	block := make([]midi.Event, 0, m.maxBlock)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-m.inbox:
			block = append(block[:0], e)
		drain:
			for len(block) < m.maxBlock {
				select {
				case e := <-m.inbox:
					block = append(block, e)
				default:
					break drain
				}
			}
			m.ProcessBlock(block)
		}
	}
}

// ProcessBlock routes one block with the current snapshot and sends the result in order
func (m *Manager) ProcessBlock(block []midi.Event) []midi.Event {
	p := m.Params()
	out := velocity.Process(block, p)

	m.stats.blocks.Add(1)
	m.stats.in.Add(uint64(len(block)))
	m.stats.out.Add(uint64(len(out)))
	m.stats.dropped.Add(uint64(len(block) - len(out)))

	if !p.Bypass {
		for _, e := range out {
			if e.Kind == midi.NoteOn {
				m.stats.remapped.Add(1)
			}
		}
	}

	var sink midi.Output
	if slot := m.output.Load(); slot != nil {
		sink = slot.out
	}
	for _, e := range out {
		if sink == nil {
			m.stats.unsent.Add(1)
			continue
		}
		if err := sink.Send(e); err != nil {
			m.stats.sendErrors.Add(1)
			debug.Log("send", "%s: %v", e, err)
		}
	}

	m.record(block, out)
	if debug.Enabled() {
		s := m.Stats()
		debug.LogEvery(blockLogInterval, "block", "size=%d in=%d out=%d remapped=%d dropped=%d", len(block), s.In, s.Out, s.Remapped, s.Dropped)
	}
	m.notifyUpdate()
	return out
}

// record pairs inputs with outputs. Routing keeps order and never invents
// events, so an input either lines up with the next output of the same kind
// and offset or it was dropped.
func (m *Manager) record(in, out []midi.Event) {
	if m.recentMax == 0 {
		return
	}
	now := time.Now()
	j := 0
	for _, e := range in {
		r := Record{At: now, In: e}
		if j < len(out) && out[j].Kind == e.Kind && out[j].Offset == e.Offset && out[j].Channel == e.Channel {
			r.Out = out[j]
			j++
			if e.Kind == midi.NoteOn {
				debug.Log("remap", "ch=%d note=%s vel %d -> %d", e.Channel, midi.NoteName(e.Note), e.Velocity, r.Out.Velocity)
			}
		} else {
			r.Dropped = true
		}
		m.ring = append(m.ring, r)
	}
	if over := len(m.ring) - m.recentMax; over > 0 {
		m.ring = append(m.ring[:0], m.ring[over:]...)
	}
	snapshot := append([]Record(nil), m.ring...)
	m.recent.Store(&snapshot)
}

// Recent returns the latest records, oldest first
func (m *Manager) Recent() []Record {
	return *m.recent.Load()
}

// Stats returns the current counters
func (m *Manager) Stats() Stats {
	return Stats{
		Blocks:     m.stats.blocks.Load(),
		In:         m.stats.in.Load(),
		Out:        m.stats.out.Load(),
		Remapped:   m.stats.remapped.Load(),
		Dropped:    m.stats.dropped.Load(),
		Overflow:   m.stats.overflow.Load(),
		Unsent:     m.stats.unsent.Load(),
		SendErrors: m.stats.sendErrors.Load(),
	}
}

// notifyUpdate wakes the TUI without blocking
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
