// Package approval queues concurrent tool-approval requests and
// multi-step question prompts, each with timeout and cancellation
// semantics. It owns the race between the user deciding and the
// backend asking: both sides meet in a single map of tagged entries,
// so a decision is produced exactly once no matter which side arrives
// first.
package approval

import (
	"context"
	"sync"
	"time"
)

// Outcome is the terminal result of one approval request.
type Outcome int

const (
	OutcomeAllowed Outcome = iota
	OutcomeDenied
	OutcomeTimedOut // denied because the countdown reached zero
	OutcomeCancelled
)

// Allowed reports whether the tool may execute.
func (o Outcome) Allowed() bool { return o == OutcomeAllowed }

func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeDenied:
		return "denied"
	case OutcomeTimedOut:
		return "denied (timed out)"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Request is one pending approval as shown to the user.
type Request struct {
	ID        string
	Tool      string
	Input     map[string]interface{}
	Remaining int // seconds until automatic denial
}

// Update describes what the display should show after a queue change:
// the current request (nil when the queue is empty), its 1-based
// position, and the total number of pending requests.
type Update struct {
	Current  *Request
	Position int
	Pending  int
}

// entry tracks the resolution state for one id. Exactly one of three
// shapes at any time: undecided with no waiter, undecided with a
// blocked Resolve (waiter non-nil), or decided (outcome cached until
// Resolve consumes it).
type entry struct {
	decided bool
	outcome Outcome
	waiter  chan Outcome
}

// Manager is the approval queue. All methods are safe for concurrent
// use; Resolve blocks and is meant to be called from the backend turn
// goroutine while the event loop keeps handling keystrokes.
type Manager struct {
	mu      sync.Mutex
	queue   []*Request
	current int
	entries map[string]*entry

	defaultTimeout     int
	interactiveTimeout int

	tickStop chan struct{}
	updates  chan Update
}

// NewManager creates a Manager with the given risk-class timeouts in
// seconds.
func NewManager(defaultTimeout, interactiveTimeout int) *Manager {
	if defaultTimeout <= 0 {
		defaultTimeout = 30
	}
	if interactiveTimeout <= 0 {
		interactiveTimeout = defaultTimeout
	}
	return &Manager{
		entries:            make(map[string]*entry),
		defaultTimeout:     defaultTimeout,
		interactiveTimeout: interactiveTimeout,
		updates:            make(chan Update, 16),
	}
}

// Updates delivers a display snapshot after every queue mutation and
// every countdown tick.
func (m *Manager) Updates() <-chan Update {
	return m.updates
}

// Enqueue appends a pending approval. The first item in an empty queue
// becomes current and starts the countdown clock.
func (m *Manager) Enqueue(id, tool string, input map[string]interface{}, interactive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	timeout := m.defaultTimeout
	if interactive {
		timeout = m.interactiveTimeout
	}
	m.queue = append(m.queue, &Request{ID: id, Tool: tool, Input: input, Remaining: timeout})
	if len(m.queue) == 1 {
		m.current = 0
		m.startClockLocked()
	}
	m.notifyLocked()
}

// Resolve blocks until the approval identified by id has an outcome:
// a prior or future user decision, a timeout, or cancellation via ctx.
// A decision cached before this call is consumed and returned
// immediately.
func (m *Manager) Resolve(ctx context.Context, id string) Outcome {
	m.mu.Lock()
	if e := m.entries[id]; e != nil && e.decided {
		out := e.outcome
		delete(m.entries, id)
		m.mu.Unlock()
		return out
	}
	e := m.entries[id]
	if e == nil {
		e = &entry{}
		m.entries[id] = e
	}
	e.waiter = make(chan Outcome, 1)
	ch := e.waiter
	m.mu.Unlock()

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case out := <-ch:
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return out
	case <-done:
		return m.abandon(id)
	}
}

// Decide resolves the currently displayed request.
func (m *Manager) Decide(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return
	}
	m.resolveLocked(m.queue[m.current].ID, decision(allow))
}

// DecideID records a decision for a specific id, queued or not. This is
// the entry point for auto-approval policy, which may decide before the
// backend has asked.
func (m *Manager) DecideID(id string, allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveLocked(id, decision(allow))
}

// Next moves the display to the next pending request without resolving
// anything.
func (m *Manager) Next() {
	m.navigate(1)
}

// Prev moves the display to the previous pending request.
func (m *Manager) Prev() {
	m.navigate(-1)
}

// Cancel resolves a specific id as cancelled. Unknown ids are a no-op.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[id] == nil && m.indexLocked(id) < 0 {
		return
	}
	m.resolveLocked(id, OutcomeCancelled)
}

// CancelAll resolves every queued and waiting request as cancelled and
// stops all countdowns.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.queue)+len(m.entries))
	for _, req := range m.queue {
		ids = append(ids, req.ID)
	}
	for id, e := range m.entries {
		if !e.decided {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		m.resolveLocked(id, OutcomeCancelled)
	}
}

// Pending returns the number of queued requests.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Snapshot returns the current display state without mutating anything.
func (m *Manager) Snapshot() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func decision(allow bool) Outcome {
	if allow {
		return OutcomeAllowed
	}
	return OutcomeDenied
}

func (m *Manager) navigate(step int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) < 2 {
		return
	}
	m.current = (m.current + step + len(m.queue)) % len(m.queue)
	m.notifyLocked()
}

// resolveLocked delivers an outcome for id exactly once: it hands the
// outcome to a blocked Resolve if one is waiting, caches it otherwise,
// and removes the request from the queue. Safe to call again for an
// already-decided id.
func (m *Manager) resolveLocked(id string, out Outcome) {
	e := m.entries[id]
	if e == nil {
		e = &entry{}
		m.entries[id] = e
	}
	if e.decided {
		return
	}
	e.decided = true
	e.outcome = out
	if e.waiter != nil {
		e.waiter <- out
	}
	m.removeLocked(id)
	m.notifyLocked()
}

// abandon finishes a Resolve whose context was cancelled. If a decision
// won the race it is honored; otherwise the request resolves as
// cancelled.
func (m *Manager) abandon(id string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	if e == nil {
		return OutcomeCancelled
	}
	if e.decided {
		out := e.outcome
		delete(m.entries, id)
		return out
	}
	e.decided = true
	e.outcome = OutcomeCancelled
	delete(m.entries, id)
	m.removeLocked(id)
	m.notifyLocked()
	return OutcomeCancelled
}

func (m *Manager) indexLocked(id string) int {
	for i, req := range m.queue {
		if req.ID == id {
			return i
		}
	}
	return -1
}

// removeLocked drops id from the queue. Resolving the displayed item
// returns the display to the front of the queue; removing an item
// before the current one shifts the index so the display stays on the
// same request.
func (m *Manager) removeLocked(id string) {
	idx := m.indexLocked(id)
	if idx < 0 {
		return
	}
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	switch {
	case idx == m.current:
		m.current = 0
	case idx < m.current:
		m.current--
	}
	if m.current >= len(m.queue) {
		m.current = 0
	}
	if len(m.queue) == 0 {
		m.stopClockLocked()
	}
}

// tick decrements every queued countdown by one second; any that reach
// zero resolve as timed out.
func (m *Manager) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []string
	for _, req := range m.queue {
		req.Remaining--
		if req.Remaining <= 0 {
			expired = append(expired, req.ID)
		}
	}
	for _, id := range expired {
		m.resolveLocked(id, OutcomeTimedOut)
	}
	m.notifyLocked()
}

func (m *Manager) startClockLocked() {
	if m.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	m.tickStop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

func (m *Manager) stopClockLocked() {
	if m.tickStop != nil {
		close(m.tickStop)
		m.tickStop = nil
	}
}

func (m *Manager) snapshotLocked() Update {
	if len(m.queue) == 0 {
		return Update{}
	}
	req := *m.queue[m.current]
	return Update{Current: &req, Position: m.current + 1, Pending: len(m.queue)}
}

func (m *Manager) notifyLocked() {
	select {
	case m.updates <- m.snapshotLocked():
	default:
	}
}
