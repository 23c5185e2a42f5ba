// Package editor implements the multi-line composition buffer. Every
// operation returns a new Buffer value; callers never observe in-place
// mutation, which keeps sub-modes that borrow and later restore the
// buffer trivially correct.
package editor

import "strings"

// Buffer is an immutable multi-line text model with a cursor. The zero
// value is not usable; construct with New.
//
// Invariants: len(lines) >= 1, 0 <= row < len(lines),
// 0 <= col <= len([]rune(lines[row])). The column is measured in runes.
type Buffer struct {
	lines []string
	row   int
	col   int
}

// New returns an empty buffer: a single empty line with the cursor at
// its start.
func New() Buffer {
	return Buffer{lines: []string{""}}
}

// Lines returns a copy of the buffer's lines.
func (b Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Cursor returns the cursor position as (row, col), col in runes.
func (b Buffer) Cursor() (int, int) {
	return b.row, b.col
}

// Text joins the lines with "\n".
func (b Buffer) Text() string {
	return strings.Join(b.lines, "\n")
}

// Empty reports whether the buffer holds no text at all.
func (b Buffer) Empty() bool {
	return len(b.lines) == 1 && b.lines[0] == ""
}

// Clear resets to the initial empty state.
func (b Buffer) Clear() Buffer {
	return New()
}

// InsertRune inserts a single rune at the cursor.
func (b Buffer) InsertRune(r rune) Buffer {
	if r == '\n' {
		return b.InsertLineBreak()
	}
	line := []rune(b.lines[b.row])
	out := b.copyLines()
	out[b.row] = string(line[:b.col]) + string(r) + string(line[b.col:])
	return Buffer{lines: out, row: b.row, col: b.col + 1}
}

// InsertString inserts text at the cursor; embedded newlines split
// lines as InsertLineBreak would.
func (b Buffer) InsertString(s string) Buffer {
	cur := b
	for _, r := range s {
		cur = cur.InsertRune(r)
	}
	return cur
}

// InsertLineBreak splits the current line at the cursor.
func (b Buffer) InsertLineBreak() Buffer {
	line := []rune(b.lines[b.row])
	head, tail := string(line[:b.col]), string(line[b.col:])
	out := make([]string, 0, len(b.lines)+1)
	out = append(out, b.lines[:b.row]...)
	out = append(out, head, tail)
	out = append(out, b.lines[b.row+1:]...)
	return Buffer{lines: out, row: b.row + 1, col: 0}
}

// Backspace deletes the rune before the cursor, merging with the
// previous line at column 0. No-op at the start of the buffer.
func (b Buffer) Backspace() Buffer {
	if b.col == 0 {
		if b.row == 0 {
			return b
		}
		prev := []rune(b.lines[b.row-1])
		out := make([]string, 0, len(b.lines)-1)
		out = append(out, b.lines[:b.row-1]...)
		out = append(out, b.lines[b.row-1]+b.lines[b.row])
		out = append(out, b.lines[b.row+1:]...)
		return Buffer{lines: out, row: b.row - 1, col: len(prev)}
	}
	line := []rune(b.lines[b.row])
	out := b.copyLines()
	out[b.row] = string(line[:b.col-1]) + string(line[b.col:])
	return Buffer{lines: out, row: b.row, col: b.col - 1}
}

// Delete removes the rune after the cursor, merging with the next line
// at end-of-line. No-op at the end of the buffer.
func (b Buffer) Delete() Buffer {
	line := []rune(b.lines[b.row])
	if b.col == len(line) {
		if b.row == len(b.lines)-1 {
			return b
		}
		out := make([]string, 0, len(b.lines)-1)
		out = append(out, b.lines[:b.row]...)
		out = append(out, b.lines[b.row]+b.lines[b.row+1])
		out = append(out, b.lines[b.row+2:]...)
		return Buffer{lines: out, row: b.row, col: b.col}
	}
	out := b.copyLines()
	out[b.row] = string(line[:b.col]) + string(line[b.col+1:])
	return Buffer{lines: out, row: b.row, col: b.col}
}

// DeleteWordBackward removes the word span before the cursor: trailing
// spaces, then the run of non-space runes. Line-local; no-op at column
// 0.
func (b Buffer) DeleteWordBackward() Buffer {
	start := b.wordStart()
	if start == b.col {
		return b
	}
	line := []rune(b.lines[b.row])
	out := b.copyLines()
	out[b.row] = string(line[:start]) + string(line[b.col:])
	return Buffer{lines: out, row: b.row, col: start}
}

// DeleteWordForward removes the word span after the cursor: the run of
// non-space runes, then trailing spaces. Line-local; no-op at
// end-of-line.
func (b Buffer) DeleteWordForward() Buffer {
	end := b.wordEnd()
	if end == b.col {
		return b
	}
	line := []rune(b.lines[b.row])
	out := b.copyLines()
	out[b.row] = string(line[:b.col]) + string(line[end:])
	return Buffer{lines: out, row: b.row, col: b.col}
}

// MoveLeft moves one rune left, wrapping to the end of the previous
// line.
func (b Buffer) MoveLeft() Buffer {
	if b.col > 0 {
		return Buffer{lines: b.lines, row: b.row, col: b.col - 1}
	}
	if b.row == 0 {
		return b
	}
	return Buffer{lines: b.lines, row: b.row - 1, col: len([]rune(b.lines[b.row-1]))}
}

// MoveRight moves one rune right, wrapping to the start of the next
// line.
func (b Buffer) MoveRight() Buffer {
	if b.col < len([]rune(b.lines[b.row])) {
		return Buffer{lines: b.lines, row: b.row, col: b.col + 1}
	}
	if b.row == len(b.lines)-1 {
		return b
	}
	return Buffer{lines: b.lines, row: b.row + 1, col: 0}
}

// MoveUp moves to the previous line, clamping the column to its length.
func (b Buffer) MoveUp() Buffer {
	if b.row == 0 {
		return b
	}
	return Buffer{lines: b.lines, row: b.row - 1, col: clamp(b.col, len([]rune(b.lines[b.row-1])))}
}

// MoveDown moves to the next line, clamping the column to its length.
func (b Buffer) MoveDown() Buffer {
	if b.row == len(b.lines)-1 {
		return b
	}
	return Buffer{lines: b.lines, row: b.row + 1, col: clamp(b.col, len([]rune(b.lines[b.row+1])))}
}

// MoveHome moves to the start of the current line.
func (b Buffer) MoveHome() Buffer {
	return Buffer{lines: b.lines, row: b.row, col: 0}
}

// MoveEnd moves to the end of the current line.
func (b Buffer) MoveEnd() Buffer {
	return Buffer{lines: b.lines, row: b.row, col: len([]rune(b.lines[b.row]))}
}

// MoveBufferStart moves to the very beginning of the buffer.
func (b Buffer) MoveBufferStart() Buffer {
	return Buffer{lines: b.lines}
}

// MoveBufferEnd moves past the last rune of the last line.
func (b Buffer) MoveBufferEnd() Buffer {
	last := len(b.lines) - 1
	return Buffer{lines: b.lines, row: last, col: len([]rune(b.lines[last]))}
}

// MoveWordLeft moves to the start of the word span before the cursor,
// using the same boundary rule as DeleteWordBackward.
func (b Buffer) MoveWordLeft() Buffer {
	if b.col == 0 {
		return b.MoveLeft()
	}
	return Buffer{lines: b.lines, row: b.row, col: b.wordStart()}
}

// MoveWordRight moves past the word span after the cursor, using the
// same boundary rule as DeleteWordForward.
func (b Buffer) MoveWordRight() Buffer {
	if b.col == len([]rune(b.lines[b.row])) {
		return b.MoveRight()
	}
	return Buffer{lines: b.lines, row: b.row, col: b.wordEnd()}
}

// wordStart scans backward from the cursor: spaces first, then
// non-spaces.
func (b Buffer) wordStart() int {
	line := []rune(b.lines[b.row])
	i := b.col
	for i > 0 && line[i-1] == ' ' {
		i--
	}
	for i > 0 && line[i-1] != ' ' {
		i--
	}
	return i
}

// wordEnd scans forward from the cursor: non-spaces first, then
// spaces.
func (b Buffer) wordEnd() int {
	line := []rune(b.lines[b.row])
	i := b.col
	for i < len(line) && line[i] != ' ' {
		i++
	}
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}

func (b Buffer) copyLines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func clamp(col, max int) int {
	if col > max {
		return max
	}
	return col
}
