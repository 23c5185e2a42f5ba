package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/shellicar/claude-cli/approval"
	"github.com/shellicar/claude-cli/config"
	"github.com/shellicar/claude-cli/editor"
	"github.com/shellicar/claude-cli/errors"
	"github.com/shellicar/claude-cli/input"
	"github.com/shellicar/claude-cli/llm"
	"github.com/shellicar/claude-cli/logging"
	"github.com/shellicar/claude-cli/phase"
	"github.com/shellicar/claude-cli/render"
	"github.com/shellicar/claude-cli/session"
)

// resizeSettle is how long a resize burst must be quiet before the
// screen repaints at the new width.
const resizeSettle = 50 * time.Millisecond

// Events carried from the turn goroutine onto the event loop.
type event interface{}

type evAssistant struct{ text string }
type evToolCall struct{ tc session.ToolCall }
type evToolResult struct {
	tc     session.ToolCall
	result string
	err    error
}
type evTurnDone struct{ err error }

// App is the interactive session orchestrator: one event loop
// multiplexing key actions, turn events, phase ticks, approval and
// prompt updates, and resize signals. It is the sole writer of
// terminal output, through its renderer.
type App struct {
	cfg       *config.Config
	agent     *Agent
	phases    *phase.Machine
	approvals *approval.Manager
	prompter  *approval.Prompter
	renderer  *render.Renderer

	buf   editor.Buffer
	saved *editor.Buffer // composition parked while other-mode borrows buf

	keys   chan input.Action
	events chan event

	running    bool
	turnCancel context.CancelFunc
	lastPrompt int // last question index echoed to history
	quit       bool
	fatal      error
}

// NewApp wires the session components together. out is the terminal
// writer; width the initial terminal width.
func NewApp(cfg *config.Config, sess *session.Session, client llm.Client, out io.Writer, width int) *App {
	return &App{
		cfg:       cfg,
		agent:     New(cfg, sess, client),
		phases:    phase.NewMachine(phase.DefaultTickInterval),
		approvals: approval.NewManager(cfg.Approval.TimeoutSeconds, cfg.Approval.InteractiveTimeoutSeconds),
		prompter:  approval.NewPrompter(),
		renderer:  render.New(out, width),
		buf:       editor.New(),
		keys:      make(chan input.Action, 64),
		events:    make(chan event, 64),
	}
}

// Run puts the terminal in raw mode and drives the event loop until
// the user quits or a renderer write fails.
func (a *App) Run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return errors.Wrapf(err, "could not enter raw mode")
		}
		defer term.Restore(fd, oldState)
		if w, _, err := term.GetSize(fd); err == nil {
			a.renderer.SetWidth(w)
		}
	}
	defer a.phases.Stop()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	go a.readInput()

	if err := a.repaint(); err != nil {
		return err
	}

	resizeTimer := time.NewTimer(time.Hour)
	resizeTimer.Stop()

	for !a.quit {
		select {
		case <-ctx.Done():
			a.cancelTurn()
			a.quit = true
		case act := <-a.keys:
			a.handleAction(act)
		case ev := <-a.events:
			a.handleEvent(ev)
		case <-a.phases.Updates():
			a.paint()
		case up := <-a.approvals.Updates():
			a.syncApprovalPhase(up)
			a.paint()
		case up := <-a.prompter.Updates():
			a.syncPromptPhase(up)
			a.paint()
		case <-winch:
			// Resize storms settle before a single repaint.
			resizeTimer.Reset(resizeSettle)
		case <-resizeTimer.C:
			if w, _, err := term.GetSize(fd); err == nil {
				a.renderer.SetWidth(w)
			}
			if err := a.renderer.Repaint(); err != nil {
				a.fail(err)
			}
		}
	}

	a.cancelTurn()
	if err := a.renderer.Clear(); err != nil && a.fatal == nil {
		a.fatal = err
	}
	return a.fatal
}

func (a *App) readInput() {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			a.keys <- input.Action{Kind: input.EOF}
			return
		}
		for _, act := range input.Parse(buf[:n]) {
			a.keys <- act
		}
	}
}

// handleAction routes one key action by mode precedence: free-text
// question entry, then question choices, then approval decisions, then
// the composition editor.
func (a *App) handleAction(act input.Action) {
	switch {
	case a.prompter.OtherMode():
		a.handleOtherMode(act)
	case a.prompter.Active():
		a.handlePromptKeys(act)
	default:
		if a.approvals.Pending() > 0 && a.handleApprovalKeys(act) {
			break
		}
		a.handleEditorKeys(act)
	}
	a.paint()
}

func (a *App) handleOtherMode(act input.Action) {
	switch act.Kind {
	case input.Enter, input.Send:
		text := a.buf.Text()
		a.restoreComposition()
		a.prompter.SubmitOther(text)
	case input.Cancel:
		// Discard the typed text and put the composition back exactly
		// as it was.
		a.restoreComposition()
		a.prompter.CancelOther()
	case input.Interrupt:
		a.restoreComposition()
		a.cancelTurn()
	default:
		a.buf = applyEdit(a.buf, act)
	}
}

func (a *App) handlePromptKeys(act input.Action) {
	switch act.Kind {
	case input.Rune:
		switch {
		case act.Rune >= '1' && act.Rune <= '9':
			a.prompter.Choose(int(act.Rune - '0'))
		case act.Rune == 'o' || act.Rune == 'O':
			a.borrowComposition()
			a.prompter.EnterOther()
		}
	case input.Cancel:
		a.prompter.Cancel()
	case input.Interrupt:
		a.cancelTurn()
	}
}

// handleApprovalKeys consumes decision and navigation keys while
// approvals are pending. Anything else falls through to the editor so
// the user can keep composing.
func (a *App) handleApprovalKeys(act input.Action) bool {
	switch act.Kind {
	case input.Rune:
		switch act.Rune {
		case 'y', 'Y':
			a.approvals.Decide(true)
			return true
		case 'n', 'N':
			a.approvals.Decide(false)
			return true
		}
	case input.Left:
		a.approvals.Prev()
		return true
	case input.Right:
		a.approvals.Next()
		return true
	case input.Cancel:
		a.approvals.CancelAll()
		return true
	case input.Interrupt:
		a.cancelTurn()
		return true
	}
	return false
}

func (a *App) handleEditorKeys(act input.Action) {
	switch act.Kind {
	case input.Enter:
		a.buf = a.buf.InsertLineBreak()
	case input.Send:
		a.submit()
	case input.Interrupt:
		if a.running {
			a.cancelTurn()
		} else {
			a.quit = true
		}
	case input.EOF:
		if !a.running && a.buf.Empty() {
			a.quit = true
		}
	case input.Cancel:
		// Nothing to cancel outside a prompt.
	case input.Unknown:
		logging.Trace("unknown_input", fmt.Sprintf("%q", act.Raw))
	default:
		a.buf = applyEdit(a.buf, act)
	}
}

// applyEdit maps editing and motion actions onto the buffer. Unhandled
// kinds leave it untouched.
func applyEdit(b editor.Buffer, act input.Action) editor.Buffer {
	switch act.Kind {
	case input.Rune:
		return b.InsertRune(act.Rune)
	case input.Enter:
		return b.InsertLineBreak()
	case input.Backspace:
		return b.Backspace()
	case input.Delete:
		return b.Delete()
	case input.WordBackspace:
		return b.DeleteWordBackward()
	case input.WordDelete:
		return b.DeleteWordForward()
	case input.Up:
		return b.MoveUp()
	case input.Down:
		return b.MoveDown()
	case input.Left:
		return b.MoveLeft()
	case input.Right:
		return b.MoveRight()
	case input.Home:
		return b.MoveHome()
	case input.End:
		return b.MoveEnd()
	case input.BufferHome:
		return b.MoveBufferStart()
	case input.BufferEnd:
		return b.MoveBufferEnd()
	case input.WordLeft:
		return b.MoveWordLeft()
	case input.WordRight:
		return b.MoveWordRight()
	}
	return b
}

func (a *App) borrowComposition() {
	saved := a.buf
	a.saved = &saved
	a.buf = editor.New()
}

func (a *App) restoreComposition() {
	if a.saved != nil {
		a.buf = *a.saved
		a.saved = nil
	}
}

// submit sends the composed text as a new turn.
func (a *App) submit() {
	if a.running {
		return
	}
	text := strings.TrimRight(a.buf.Text(), "\n ")
	if strings.TrimSpace(text) == "" {
		return
	}
	a.buf = a.buf.Clear()

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, render.UserLine(line))
	}
	a.appendHistory(lines...)
	a.startTurn(text)
}

func (a *App) startTurn(text string) {
	ctx, cancel := context.WithCancel(context.Background())
	a.turnCancel = cancel
	a.running = true
	a.phases.ToSending()

	go func() {
		err := a.agent.ProcessUserInput(ctx, text, a.callbacks())
		a.events <- evTurnDone{err: err}
	}()
}

// cancelTurn aborts the in-flight turn and everything waiting on it.
func (a *App) cancelTurn() {
	if a.turnCancel != nil {
		a.turnCancel()
	}
	a.approvals.CancelAll()
	a.prompter.Cancel()
	a.restoreComposition()
}

// callbacks run on the turn goroutine and forward everything the
// display needs onto the event loop.
func (a *App) callbacks() ProcessCallbacks {
	return ProcessCallbacks{
		OnAssistantMessage: func(text string) {
			a.events <- evAssistant{text: text}
		},
		PrepareToolCalls: func(tcs []session.ToolCall) {
			for _, tc := range tcs {
				if tc.Name == AskUserToolName {
					continue
				}
				if a.cfg.AutoAllowed(tc.Name) {
					a.approvals.DecideID(tc.ToolCallID, true)
					continue
				}
				a.approvals.Enqueue(tc.ToolCallID, tc.Name, tc.Args, a.cfg.Interactive(tc.Name))
			}
		},
		OnToolCall: func(tc session.ToolCall) {
			a.events <- evToolCall{tc: tc}
		},
		OnToolResult: func(tc session.ToolCall, result string, err error) {
			a.events <- evToolResult{tc: tc, result: result, err: err}
		},
		ShouldExecuteTool: func(ctx context.Context, tc session.ToolCall) approval.Outcome {
			return a.approvals.Resolve(ctx, tc.ToolCallID)
		},
		AskUser: func(ctx context.Context, questions []approval.Question) (approval.Answers, error) {
			return a.prompter.Ask(ctx, questions)
		},
	}
}

func (a *App) handleEvent(ev event) {
	switch e := ev.(type) {
	case evAssistant:
		if a.phases.Current().Kind == phase.Sending {
			a.phases.ToThinking()
		}
		var lines []string
		for _, line := range strings.Split(e.text, "\n") {
			lines = append(lines, render.AssistantText(line))
		}
		a.appendHistory(lines...)
	case evToolCall:
		if a.phases.Current().Kind == phase.Sending {
			a.phases.ToThinking()
		}
		switch {
		case e.tc.Name == AskUserToolName:
		case a.cfg.AutoAllowed(e.tc.Name):
			a.appendHistory(render.ToolLine(e.tc.Name, "auto-approved"))
		default:
			a.appendHistory(render.ApprovalBlock(e.tc.Name, e.tc.Args)...)
		}
	case evToolResult:
		if e.err != nil {
			a.appendHistory(render.ErrorLine(e.err))
		} else {
			a.appendHistory(render.ToolLine(e.tc.Name, firstLine(e.result)))
		}
	case evTurnDone:
		a.running = false
		a.turnCancel = nil
		a.phases.ToIdle()
		switch {
		case e.err == nil:
		case errors.Is(e.err, context.Canceled):
			a.appendHistory(render.NoticeLine("turn cancelled"))
		default:
			logging.Error(e.err)
			a.appendHistory(render.ErrorLine(e.err))
		}
	}
	a.paint()
}

// syncApprovalPhase mirrors the approval queue into the phase machine.
func (a *App) syncApprovalPhase(up approval.Update) {
	if up.Current != nil {
		if a.phases.Current().Kind == phase.Prompting {
			a.phases.SetRemaining(up.Current.Tool, up.Current.Remaining)
		} else {
			a.phases.ToPrompting(up.Current.Tool, up.Current.Remaining)
		}
		return
	}
	if a.running && a.phases.Current().Kind == phase.Prompting {
		a.phases.ToThinking()
	}
}

// syncPromptPhase mirrors the question flow into the phase machine and
// echoes each newly displayed question into the history.
func (a *App) syncPromptPhase(up approval.PromptUpdate) {
	if !up.Active {
		a.lastPrompt = 0
		if a.saved != nil {
			// The flow ended while the buffer was borrowed (external
			// cancellation); put the composition back.
			a.restoreComposition()
		}
		if a.running && a.phases.Current().Kind == phase.Asking {
			a.phases.ToThinking()
		}
		return
	}
	if a.phases.Current().Kind != phase.Asking {
		a.phases.ToAsking(AskUserToolName)
	}
	if up.View.Index != a.lastPrompt && !up.View.Other {
		a.lastPrompt = up.View.Index
		a.appendHistory(render.QuestionBlock(up.View.Question.Text, up.View.Question.Options)...)
	}
}

func (a *App) statusInfo() render.StatusInfo {
	info := render.StatusInfo{Phase: a.phases.Current()}
	snap := a.approvals.Snapshot()
	info.QueuePos = snap.Position
	info.QueueLen = snap.Pending
	if view, ok := a.prompter.View(); ok {
		info.PromptIdx = view.Index
		info.PromptTotal = view.Total
	}
	return info
}

func (a *App) repaint() error {
	row, col := a.buf.Cursor()
	return a.renderer.Paint(render.View{
		Status: render.StatusLine(a.statusInfo(), a.cfg.Approval.WarnBelowSeconds),
		Lines:  a.buf.Lines(),
		Row:    row,
		Col:    col,
	})
}

// paint repaints and records a renderer failure as fatal.
func (a *App) paint() {
	if a.quit {
		return
	}
	if err := a.repaint(); err != nil {
		a.fail(err)
	}
}

func (a *App) appendHistory(lines ...string) {
	if err := a.renderer.AppendHistory(lines...); err != nil {
		a.fail(err)
	}
}

func (a *App) fail(err error) {
	if a.fatal == nil {
		a.fatal = err
	}
	a.quit = true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
