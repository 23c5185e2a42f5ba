package editor

import (
	"strings"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	b := New()
	if got := b.Text(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	row, col := b.Cursor()
	if row != 0 || col != 0 {
		t.Errorf("expected cursor at 0,0, got %d,%d", row, col)
	}
	if !b.Empty() {
		t.Error("expected new buffer to be empty")
	}
}

func TestInsertAndLineBreak(t *testing.T) {
	b := New().InsertString("hello")
	b = b.InsertLineBreak()
	b = b.InsertString("world")

	if got := b.Text(); got != "hello\nworld" {
		t.Errorf("expected %q, got %q", "hello\nworld", got)
	}
	row, col := b.Cursor()
	if row != 1 || col != 5 {
		t.Errorf("expected cursor at 1,5, got %d,%d", row, col)
	}
}

func TestInsertStringWithNewlines(t *testing.T) {
	b := New().InsertString("a\nb\nc")
	if got := b.Text(); got != "a\nb\nc" {
		t.Errorf("expected %q, got %q", "a\nb\nc", got)
	}
	if got := len(b.Lines()); got != 3 {
		t.Errorf("expected 3 lines, got %d", got)
	}
}

func TestInsertSplitsLine(t *testing.T) {
	b := New().InsertString("abcd")
	b = b.MoveLeft().MoveLeft() // cursor between b and c
	b = b.InsertLineBreak()
	if got := b.Text(); got != "ab\ncd" {
		t.Errorf("expected %q, got %q", "ab\ncd", got)
	}
	row, col := b.Cursor()
	if row != 1 || col != 0 {
		t.Errorf("expected cursor at 1,0, got %d,%d", row, col)
	}
}

func TestImmutability(t *testing.T) {
	b := New().InsertString("abc")
	_ = b.InsertRune('x')
	_ = b.Backspace()
	_ = b.InsertLineBreak()
	if got := b.Text(); got != "abc" {
		t.Errorf("original buffer mutated: %q", got)
	}
}

func TestBackspace(t *testing.T) {
	b := New().InsertString("ab")
	b = b.Backspace()
	if got := b.Text(); got != "a" {
		t.Errorf("expected %q, got %q", "a", got)
	}

	// Merge with previous line at column 0.
	b = New().InsertString("ab\ncd")
	b = b.MoveHome()
	b = b.Backspace()
	if got := b.Text(); got != "abcd" {
		t.Errorf("expected %q, got %q", "abcd", got)
	}
	row, col := b.Cursor()
	if row != 0 || col != 2 {
		t.Errorf("expected cursor at 0,2, got %d,%d", row, col)
	}

	// No-op at buffer start.
	b = New()
	if got := b.Backspace(); got.Text() != "" {
		t.Errorf("backspace at start should be a no-op, got %q", got.Text())
	}
}

func TestDelete(t *testing.T) {
	b := New().InsertString("ab").MoveHome()
	b = b.Delete()
	if got := b.Text(); got != "b" {
		t.Errorf("expected %q, got %q", "b", got)
	}

	// Merge with next line at end-of-line.
	b = New().InsertString("ab\ncd")
	b = b.MoveUp().MoveEnd()
	b = b.Delete()
	if got := b.Text(); got != "abcd" {
		t.Errorf("expected %q, got %q", "abcd", got)
	}

	// No-op at buffer end.
	b = New().InsertString("x")
	if got := b.Delete(); got.Text() != "x" {
		t.Errorf("delete at end should be a no-op, got %q", got.Text())
	}
}

func TestWordDeleteBackward(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
		col  int
	}{
		{"word", "one two", "one ", 4},
		{"word and trailing spaces", "one two  ", "one ", 4},
		{"only spaces before word start", "one    ", "", 0},
		{"single word", "one", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := New().InsertString(tc.text)
			b = b.DeleteWordBackward()
			if got := b.Text(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
			_, col := b.Cursor()
			if col != tc.col {
				t.Errorf("expected col %d, got %d", tc.col, col)
			}
		})
	}
}

func TestWordDeleteBackwardRestorable(t *testing.T) {
	// Deleting a word span and re-inserting the deleted text restores
	// the original line.
	original := "alpha beta  gamma"
	b := New().InsertString(original)
	before := []rune(original)
	afterDelete := b.DeleteWordBackward()
	_, col := afterDelete.Cursor()
	deleted := string(before[col:])
	restored := afterDelete.InsertString(deleted)
	if got := restored.Text(); got != original {
		t.Errorf("expected %q, got %q", original, got)
	}
}

func TestWordDeleteForward(t *testing.T) {
	b := New().InsertString("one two three")
	b = b.MoveBufferStart()
	b = b.DeleteWordForward()
	if got := b.Text(); got != "two three" {
		t.Errorf("expected %q, got %q", "two three", got)
	}

	// At a space run, only the spaces go.
	b = New().InsertString("one   two")
	b = b.MoveHome()
	for i := 0; i < 3; i++ {
		b = b.MoveRight()
	}
	b = b.DeleteWordForward()
	if got := b.Text(); got != "onetwo" {
		t.Errorf("expected %q, got %q", "onetwo", got)
	}
}

func TestCursorMotion(t *testing.T) {
	b := New().InsertString("ab\nlonger line\nc")

	// Up from the last line clamps the column.
	b = b.MoveBufferEnd() // row 2, col 1
	b = b.MoveUp()
	row, col := b.Cursor()
	if row != 1 || col != 1 {
		t.Errorf("expected 1,1 after up, got %d,%d", row, col)
	}

	b = b.MoveEnd() // col 11
	b = b.MoveUp()  // clamp to len("ab")
	row, col = b.Cursor()
	if row != 0 || col != 2 {
		t.Errorf("expected 0,2 after clamped up, got %d,%d", row, col)
	}

	// Right wraps across the line boundary.
	b = b.MoveRight()
	row, col = b.Cursor()
	if row != 1 || col != 0 {
		t.Errorf("expected 1,0 after wrap right, got %d,%d", row, col)
	}

	// Left wraps back.
	b = b.MoveLeft()
	row, col = b.Cursor()
	if row != 0 || col != 2 {
		t.Errorf("expected 0,2 after wrap left, got %d,%d", row, col)
	}
}

func TestWordMotion(t *testing.T) {
	b := New().InsertString("one two  three")
	b = b.MoveBufferStart()
	b = b.MoveWordRight()
	if _, col := b.Cursor(); col != 4 {
		t.Errorf("expected col 4, got %d", col)
	}
	b = b.MoveWordRight()
	if _, col := b.Cursor(); col != 9 {
		t.Errorf("expected col 9, got %d", col)
	}
	b = b.MoveWordLeft()
	if _, col := b.Cursor(); col != 4 {
		t.Errorf("expected col 4 after word left, got %d", col)
	}
}

func TestCursorInvariantUnderRandomOps(t *testing.T) {
	ops := []func(Buffer) Buffer{
		func(b Buffer) Buffer { return b.InsertRune('x') },
		func(b Buffer) Buffer { return b.InsertString("yz ") },
		func(b Buffer) Buffer { return b.InsertLineBreak() },
		func(b Buffer) Buffer { return b.Backspace() },
		func(b Buffer) Buffer { return b.Delete() },
		func(b Buffer) Buffer { return b.DeleteWordBackward() },
		func(b Buffer) Buffer { return b.DeleteWordForward() },
		func(b Buffer) Buffer { return b.MoveLeft() },
		func(b Buffer) Buffer { return b.MoveRight() },
		func(b Buffer) Buffer { return b.MoveUp() },
		func(b Buffer) Buffer { return b.MoveDown() },
		func(b Buffer) Buffer { return b.MoveHome() },
		func(b Buffer) Buffer { return b.MoveEnd() },
		func(b Buffer) Buffer { return b.MoveBufferStart() },
		func(b Buffer) Buffer { return b.MoveBufferEnd() },
		func(b Buffer) Buffer { return b.MoveWordLeft() },
		func(b Buffer) Buffer { return b.MoveWordRight() },
	}

	b := New()
	// Deterministic pseudo-random walk over the operation set.
	seed := 2463534242
	for i := 0; i < 5000; i++ {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		idx := seed % len(ops)
		if idx < 0 {
			idx = -idx
		}
		b = ops[idx](b)

		lines := b.Lines()
		if len(lines) < 1 {
			t.Fatalf("step %d: buffer lost all lines", i)
		}
		row, col := b.Cursor()
		if row < 0 || row >= len(lines) {
			t.Fatalf("step %d: row %d out of range (lines=%d)", i, row, len(lines))
		}
		if col < 0 || col > len([]rune(lines[row])) {
			t.Fatalf("step %d: col %d out of range (line=%q)", i, col, lines[row])
		}
	}
}

func TestUnicodeColumns(t *testing.T) {
	b := New().InsertString("héllo→")
	_, col := b.Cursor()
	if col != 6 {
		t.Errorf("expected rune col 6, got %d", col)
	}
	b = b.Backspace()
	if got := b.Text(); got != "héllo" {
		t.Errorf("expected %q, got %q", "héllo", got)
	}
	if !strings.HasSuffix(b.Text(), "o") {
		t.Errorf("unexpected tail: %q", b.Text())
	}
}

func TestClearResets(t *testing.T) {
	b := New().InsertString("a\nb").Clear()
	if !b.Empty() {
		t.Errorf("expected cleared buffer to be empty, got %q", b.Text())
	}
}
