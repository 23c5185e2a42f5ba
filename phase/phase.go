// Package phase tracks what the session is currently doing. It is the
// single source of truth for "is the session busy" and drives the
// periodic elapsed-time re-emission the status line refreshes from.
package phase

import (
	"sync"
	"time"
)

type Kind int

const (
	Idle Kind = iota
	Sending
	Thinking
	Prompting
	Asking
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Thinking:
		return "thinking"
	case Prompting:
		return "prompting"
	case Asking:
		return "asking"
	}
	return "unknown"
}

// Phase is a snapshot of the current state. Remaining is meaningful
// only while Prompting; Started only outside Idle and Prompting.
type Phase struct {
	Kind      Kind
	Label     string
	Remaining int
	Started   time.Time
}

// Elapsed returns the whole seconds since the phase started.
func (p Phase) Elapsed() int {
	if p.Started.IsZero() {
		return 0
	}
	return int(time.Since(p.Started) / time.Second)
}

// DefaultTickInterval is how often a ticking phase re-emits itself.
const DefaultTickInterval = 500 * time.Millisecond

// Machine is the phase state machine. Transitions are synchronous;
// every transition stops the previous phase's ticker before starting
// its own, so at most one ticker is ever alive.
type Machine struct {
	mu       sync.Mutex
	current  Phase
	interval time.Duration
	stop     chan struct{}
	updates  chan Phase
}

func NewMachine(interval time.Duration) *Machine {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Machine{
		current:  Phase{Kind: Idle},
		interval: interval,
		updates:  make(chan Phase, 8),
	}
}

// Updates delivers a Phase snapshot on every transition and on every
// elapsed tick. Slow consumers drop ticks rather than block.
func (m *Machine) Updates() <-chan Phase {
	return m.updates
}

// Current returns the current phase snapshot.
func (m *Machine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Busy reports whether the session is doing anything at all.
func (m *Machine) Busy() bool {
	return m.Current().Kind != Idle
}

// ToSending enters the sending phase and starts the elapsed clock.
func (m *Machine) ToSending() {
	m.transition(Phase{Kind: Sending, Started: time.Now()}, true)
}

// ToThinking enters the thinking phase, restarting the elapsed clock.
func (m *Machine) ToThinking() {
	m.transition(Phase{Kind: Thinking, Started: time.Now()}, true)
}

// ToPrompting enters the prompting phase. The countdown is owned by the
// approval subsystem and pushed in through SetRemaining; no elapsed
// ticker runs.
func (m *Machine) ToPrompting(label string, remaining int) {
	m.transition(Phase{Kind: Prompting, Label: label, Remaining: remaining}, false)
}

// ToAsking enters the asking phase, a prompting variant with its own
// elapsed clock instead of a countdown.
func (m *Machine) ToAsking(label string) {
	m.transition(Phase{Kind: Asking, Label: label, Started: time.Now()}, true)
}

// ToIdle enters the idle phase and stops all clocks.
func (m *Machine) ToIdle() {
	m.transition(Phase{Kind: Idle}, false)
}

// SetRemaining updates the prompting countdown display. No-op in any
// other phase.
func (m *Machine) SetRemaining(label string, remaining int) {
	m.mu.Lock()
	if m.current.Kind != Prompting {
		m.mu.Unlock()
		return
	}
	m.current.Label = label
	m.current.Remaining = remaining
	snap := m.current
	m.mu.Unlock()
	m.emit(snap)
}

// Stop halts any running ticker. The machine remains usable.
func (m *Machine) Stop() {
	m.mu.Lock()
	m.stopTickerLocked()
	m.mu.Unlock()
}

func (m *Machine) transition(next Phase, tick bool) {
	m.mu.Lock()
	m.stopTickerLocked()
	m.current = next
	if tick {
		stop := make(chan struct{})
		m.stop = stop
		go m.run(stop)
	}
	m.mu.Unlock()
	m.emit(next)
}

func (m *Machine) run(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			snap := m.current
			m.mu.Unlock()
			m.emit(snap)
		}
	}
}

func (m *Machine) stopTickerLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *Machine) emit(p Phase) {
	select {
	case m.updates <- p:
	default:
	}
}
