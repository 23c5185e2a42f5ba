package approval

import (
	"context"
	"sync"

	"github.com/shellicar/claude-cli/errors"
)

// ErrPromptCancelled is returned by Ask when the question flow is
// cancelled before every question has an answer.
var ErrPromptCancelled = errors.Sentinel("question prompt cancelled")

// ErrPromptActive is returned by Ask when another question flow is
// already in progress.
var ErrPromptActive = errors.Sentinel("another question prompt is active")

// Question is one step of a multi-question prompt. Options are the
// numbered choices; the free-text "other" branch is always available in
// addition.
type Question struct {
	Text    string
	Options []string
}

// Answers maps question text to the chosen or typed answer.
type Answers map[string]string

// PromptView is what the display needs to render the current question.
type PromptView struct {
	Question Question
	Index    int // 1-based
	Total    int
	Other    bool // free-text sub-mode active
}

// PromptUpdate announces that the prompt display changed. Active is
// false once the flow completes or is cancelled.
type PromptUpdate struct {
	Active bool
	View   PromptView
}

type promptResult struct {
	answers Answers
	err     error
}

type promptState struct {
	questions []Question
	idx       int
	answers   Answers
	other     bool
	waiter    chan promptResult
}

// Prompter runs one multi-question flow at a time on the same
// resolve/cancel contract as the approval queue.
type Prompter struct {
	mu      sync.Mutex
	active  *promptState
	updates chan PromptUpdate
}

func NewPrompter() *Prompter {
	return &Prompter{updates: make(chan PromptUpdate, 16)}
}

// Updates delivers a display snapshot whenever the prompt advances,
// enters or leaves the free-text sub-mode, completes, or is cancelled.
func (p *Prompter) Updates() <-chan PromptUpdate {
	return p.updates
}

// Ask blocks until every question is answered or the flow is cancelled
// (by Cancel or ctx). On success the accumulated answers are returned
// as one structured result.
func (p *Prompter) Ask(ctx context.Context, questions []Question) (Answers, error) {
	if len(questions) == 0 {
		return Answers{}, nil
	}
	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return nil, ErrPromptActive
	}
	st := &promptState{
		questions: questions,
		answers:   make(Answers, len(questions)),
		waiter:    make(chan promptResult, 1),
	}
	p.active = st
	p.notifyLocked()
	p.mu.Unlock()

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	select {
	case res := <-st.waiter:
		return res.answers, res.err
	case <-done:
		return nil, p.abandon(st)
	}
}

// Active reports whether a question flow is in progress.
func (p *Prompter) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// View returns the current display state; ok is false when no flow is
// active.
func (p *Prompter) View() (PromptView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return PromptView{}, false
	}
	return p.viewLocked(), true
}

// OtherMode reports whether the free-text sub-mode is active.
func (p *Prompter) OtherMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil && p.active.other
}

// Choose answers the current question with the n-th numbered option
// (1-based) and advances. Out-of-range choices are ignored.
func (p *Prompter) Choose(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.active
	if st == nil || st.other {
		return
	}
	q := st.questions[st.idx]
	if n < 1 || n > len(q.Options) {
		return
	}
	st.answers[q.Text] = q.Options[n-1]
	p.advanceLocked()
}

// EnterOther switches the current question to the free-text sub-mode.
func (p *Prompter) EnterOther() {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.active
	if st == nil || st.other {
		return
	}
	st.other = true
	p.notifyLocked()
}

// SubmitOther answers the current question with typed text and leaves
// the sub-mode.
func (p *Prompter) SubmitOther(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.active
	if st == nil || !st.other {
		return
	}
	st.answers[st.questions[st.idx].Text] = text
	st.other = false
	p.advanceLocked()
}

// CancelOther leaves the free-text sub-mode without answering.
func (p *Prompter) CancelOther() {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.active
	if st == nil || !st.other {
		return
	}
	st.other = false
	p.notifyLocked()
}

// Cancel aborts the whole flow; the blocked Ask returns
// ErrPromptCancelled.
func (p *Prompter) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.active
	if st == nil {
		return
	}
	st.waiter <- promptResult{err: ErrPromptCancelled}
	p.active = nil
	p.notifyLocked()
}

// abandon finishes an Ask whose context was cancelled. A completed
// result that won the race is honored.
func (p *Prompter) abandon(st *promptState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case res := <-st.waiter:
		if res.err == nil {
			// The flow finished just before the cancellation landed;
			// there is nobody left to deliver the answers to.
			return ErrPromptCancelled
		}
		return res.err
	default:
	}
	if p.active == st {
		p.active = nil
		p.notifyLocked()
	}
	return ErrPromptCancelled
}

func (p *Prompter) advanceLocked() {
	st := p.active
	st.idx++
	if st.idx < len(st.questions) {
		p.notifyLocked()
		return
	}
	st.waiter <- promptResult{answers: st.answers}
	p.active = nil
	p.notifyLocked()
}

func (p *Prompter) viewLocked() PromptView {
	st := p.active
	return PromptView{
		Question: st.questions[st.idx],
		Index:    st.idx + 1,
		Total:    len(st.questions),
		Other:    st.other,
	}
}

func (p *Prompter) notifyLocked() {
	if p.active == nil {
		select {
		case p.updates <- PromptUpdate{}:
		default:
		}
		return
	}
	select {
	case p.updates <- PromptUpdate{Active: true, View: p.viewLocked()}:
	default:
	}
}
