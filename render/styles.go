package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shellicar/claude-cli/phase"
)

var (
	styleIdle     = lipgloss.NewStyle().Faint(true)
	styleBusy     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	stylePrompt   = lipgloss.NewStyle().Reverse(true)
	styleDrowning = lipgloss.NewStyle().Reverse(true).Blink(true).Foreground(lipgloss.Color("1"))

	styleUser      = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	styleAssistant = lipgloss.NewStyle()
	styleTool      = lipgloss.NewStyle().Faint(true)
	styleError     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleNotice    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// StatusInfo carries everything the status line shows. QueuePos/QueueLen
// apply while prompting for approvals; PromptIdx/PromptTotal while a
// multi-question prompt runs.
type StatusInfo struct {
	Phase       phase.Phase
	QueuePos    int
	QueueLen    int
	PromptIdx   int
	PromptTotal int
}

// StatusLine renders the one-line phase indicator. An approval countdown
// at or below warnBelow seconds switches to the flashing drowning style.
func StatusLine(info StatusInfo, warnBelow int) string {
	p := info.Phase
	switch p.Kind {
	case phase.Sending:
		return styleBusy.Render(fmt.Sprintf("↑ sending·%ds", p.Elapsed()))
	case phase.Thinking:
		return styleBusy.Render(fmt.Sprintf("✳ thinking·%ds", p.Elapsed()))
	case phase.Prompting:
		text := fmt.Sprintf("? %s·%ds", p.Label, p.Remaining)
		if info.QueueLen > 1 {
			text += fmt.Sprintf(" [%d/%d]", info.QueuePos, info.QueueLen)
		}
		if p.Remaining <= warnBelow {
			return styleDrowning.Render(text)
		}
		return stylePrompt.Render(text)
	case phase.Asking:
		text := fmt.Sprintf("? %s·%ds", p.Label, p.Elapsed())
		if info.PromptTotal > 1 {
			text += fmt.Sprintf(" [%d/%d]", info.PromptIdx, info.PromptTotal)
		}
		return stylePrompt.Render(text)
	}
	return styleIdle.Render("⏺ idle")
}

// History formatting helpers. These style transcript lines before they
// are appended; the renderer itself never interprets content.

func UserLine(text string) string {
	return styleUser.Render("> ") + text
}

func AssistantText(text string) string {
	return styleAssistant.Render(text)
}

func ToolLine(name, summary string) string {
	return styleTool.Render(fmt.Sprintf("⚙ %s %s", name, summary))
}

func ErrorLine(err error) string {
	return styleError.Render("✗ " + err.Error())
}

func NoticeLine(text string) string {
	return styleNotice.Render(text)
}

// QuestionBlock renders one question with its numbered options and the
// trailing "other" entry, one option per line.
func QuestionBlock(text string, options []string) []string {
	lines := []string{stylePrompt.Render(text)}
	for i, opt := range options {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, opt))
	}
	lines = append(lines, fmt.Sprintf("  %d. other (type your own)", len(options)+1))
	return lines
}

// ApprovalBlock renders a pending approval's tool name and input for
// the history region.
func ApprovalBlock(tool string, input map[string]interface{}) []string {
	lines := []string{stylePrompt.Render(fmt.Sprintf("approve %s?", tool)) + styleTool.Render("  y/n · ←/→ to navigate")}
	for k, v := range input {
		val := fmt.Sprintf("%v", v)
		if strings.Contains(val, "\n") {
			val = strings.SplitN(val, "\n", 2)[0] + "…"
		}
		lines = append(lines, styleTool.Render(fmt.Sprintf("  %s: %s", k, val)))
	}
	return lines
}
