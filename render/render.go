// Package render owns all terminal output. It maintains two regions:
// an append-only history stream that becomes scrollback, and a sticky
// region at the bottom (status line plus the editor) that is erased and
// repainted in place with cursor-relative movement. The screen is never
// cleared wholesale, so scrollback survives every repaint.
package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/shellicar/claude-cli/errors"
)

// editorPrefix is painted before every logical editor line.
const editorPrefix = "> "

// View is one complete sticky-region snapshot: the styled status line,
// the editor's logical lines, and the cursor position (col in runes).
type View struct {
	Status string
	Lines  []string
	Row    int
	Col    int
}

// Renderer paints views onto w. It is not safe for concurrent use; the
// orchestrator serializes all calls onto its event loop.
type Renderer struct {
	w     io.Writer
	width int

	// prior sticky footprint, needed to erase before repainting
	prevRows       int
	cursorFromBottom int

	last    View
	painted bool
}

// New creates a Renderer writing to w at the given terminal width.
func New(w io.Writer, width int) *Renderer {
	r := &Renderer{w: w}
	r.SetWidth(width)
	return r
}

// SetWidth records a new terminal width. The previously painted region
// was laid out for the old width, so the caller must Repaint to
// recompute wrapping; erase math against the stale footprint is the
// best available approximation after a resize.
func (r *Renderer) SetWidth(width int) {
	if width < 4 {
		width = 80
	}
	r.width = width
}

// Width returns the current layout width.
func (r *Renderer) Width() int {
	return r.width
}

// Paint erases the prior sticky region and draws view in its place,
// leaving the terminal cursor on the editor's logical cursor position.
func (r *Renderer) Paint(view View) error {
	var b strings.Builder
	r.eraseSticky(&b)
	r.paintSticky(&b, view)
	r.last = view
	r.painted = true
	return r.flush(b.String())
}

// Repaint redraws the last view, recomputing wrap at the current width.
func (r *Renderer) Repaint() error {
	if !r.painted {
		return nil
	}
	return r.Paint(r.last)
}

// AppendHistory writes lines into the scrollback above the sticky
// region, then restores the sticky region below them.
func (r *Renderer) AppendHistory(lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	var b strings.Builder
	r.eraseSticky(&b)
	for _, line := range lines {
		for _, screen := range wrapLine(line, r.width) {
			b.WriteString(screen)
			b.WriteString("\r\n")
		}
	}
	if r.painted {
		r.paintSticky(&b, r.last)
	} else {
		r.prevRows = 0
		r.cursorFromBottom = 0
	}
	return r.flush(b.String())
}

// Clear erases the sticky region and forgets it, leaving the cursor at
// the start of the line where the region began. Used on shutdown so the
// shell prompt lands cleanly under the history.
func (r *Renderer) Clear() error {
	var b strings.Builder
	r.eraseSticky(&b)
	r.prevRows = 0
	r.cursorFromBottom = 0
	r.painted = false
	return r.flush(b.String())
}

// eraseSticky moves from the current cursor position to the bottom of
// the previously painted region and erases it line by line, ending at
// column 0 of its top line.
func (r *Renderer) eraseSticky(b *strings.Builder) {
	if r.prevRows == 0 {
		b.WriteString("\r")
		b.WriteString(ansi.EraseEntireLine)
		return
	}
	if r.cursorFromBottom > 0 {
		b.WriteString(ansi.CursorDown(r.cursorFromBottom))
	}
	for i := 0; i < r.prevRows; i++ {
		b.WriteString("\r")
		b.WriteString(ansi.EraseEntireLine)
		if i < r.prevRows-1 {
			b.WriteString(ansi.CursorUp(1))
		}
	}
}

// paintSticky writes the status line and the wrapped editor lines, then
// moves the cursor back up to the editor's logical cursor position and
// records the painted footprint for the next erase.
func (r *Renderer) paintSticky(b *strings.Builder, view View) {
	status := ansi.Truncate(view.Status, r.width, "…")
	b.WriteString(status)
	b.WriteString("\r\n")

	rows := 1 // status
	cursorRow := 1
	cursorCol := 0
	for i, line := range view.Lines {
		screens := wrapLine(editorPrefix+line, r.width)
		if i == view.Row {
			off, col := cursorOffset(line, view.Col, r.width)
			cursorRow = rows + off
			cursorCol = col
		}
		for j, screen := range screens {
			b.WriteString(screen)
			if i < len(view.Lines)-1 || j < len(screens)-1 {
				b.WriteString("\r\n")
			}
		}
		rows += len(screens)
	}
	if len(view.Lines) == 0 {
		b.WriteString(editorPrefix)
		rows++
		cursorCol = runewidth.StringWidth(editorPrefix)
	}

	// The cursor sits at the end of the last screen line; walk it back
	// up to the logical position.
	if up := rows - 1 - cursorRow; up > 0 {
		b.WriteString(ansi.CursorUp(up))
	}
	b.WriteString("\r")
	if cursorCol > 0 {
		b.WriteString(ansi.CursorForward(cursorCol))
	}

	r.prevRows = rows
	r.cursorFromBottom = rows - 1 - cursorRow
}

func (r *Renderer) flush(s string) error {
	if _, err := io.WriteString(r.w, s); err != nil {
		return errors.Wrapf(err, "terminal write failed")
	}
	return nil
}

// wrapLine hard-wraps s into screen lines no wider than width cells.
// A line whose width is an exact multiple of the terminal width gets a
// trailing empty screen line so the cursor can sit past its end.
func wrapLine(s string, width int) []string {
	var out []string
	var cur strings.Builder
	cells := 0
	for _, ru := range s {
		w := runewidth.RuneWidth(ru)
		if cells+w > width {
			out = append(out, cur.String())
			cur.Reset()
			cells = 0
		}
		cur.WriteRune(ru)
		cells += w
	}
	out = append(out, cur.String())
	if cells == width {
		out = append(out, "")
	}
	return out
}

// cursorOffset maps a rune column in a logical editor line to its
// wrapped screen-line offset and cell column, including the prefix.
func cursorOffset(line string, col, width int) (row, cells int) {
	cells = runewidth.StringWidth(editorPrefix)
	for i, ru := range []rune(line) {
		if i >= col {
			break
		}
		w := runewidth.RuneWidth(ru)
		if cells+w > width {
			row++
			cells = 0
		}
		cells += w
	}
	if cells >= width {
		row++
		cells = 0
	}
	return row, cells
}
