// Package input translates raw terminal bytes into a closed set of key
// actions. Anything it cannot classify becomes an Unknown action
// carrying the raw bytes; it never fails.
package input

import "unicode/utf8"

type Kind int

const (
	Rune Kind = iota
	Enter
	Send
	Backspace
	Delete
	WordBackspace
	WordDelete
	Up
	Down
	Left
	Right
	Home
	End
	BufferHome
	BufferEnd
	WordLeft
	WordRight
	Interrupt
	EOF
	Cancel
	Unknown
)

// Action is one semantic key event. Rune is set only for Kind Rune;
// Raw is set only for Kind Unknown.
type Action struct {
	Kind Kind
	Rune rune
	Raw  []byte
}

const (
	ctrlC = 0x03
	ctrlD = 0x04
	ctrlH = 0x08
	ctrlW = 0x17
	esc   = 0x1b
	del   = 0x7f
)

// Parse translates one read's worth of terminal input. A paste burst
// yields one action per character.
func Parse(buf []byte) []Action {
	var actions []Action
	for len(buf) > 0 {
		a, n := next(buf)
		if n <= 0 {
			n = 1
		}
		buf = buf[n:]
		if a.Kind == Rune && a.Rune == 0 {
			continue // consumed bytes with no action (paste markers)
		}
		actions = append(actions, a)
	}
	return actions
}

// next classifies the action at the head of buf and returns the number
// of bytes consumed.
func next(buf []byte) (Action, int) {
	b := buf[0]
	switch b {
	case ctrlC:
		return Action{Kind: Interrupt}, 1
	case ctrlD:
		return Action{Kind: EOF}, 1
	case '\r', '\n':
		return Action{Kind: Enter}, 1
	case ctrlH, del:
		return Action{Kind: Backspace}, 1
	case ctrlW:
		return Action{Kind: WordBackspace}, 1
	case '\t':
		return Action{Kind: Rune, Rune: '\t'}, 1
	case esc:
		return escape(buf)
	}
	if b < 0x20 {
		return Action{Kind: Unknown, Raw: []byte{b}}, 1
	}
	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return Action{Kind: Unknown, Raw: []byte{b}}, 1
	}
	return Action{Kind: Rune, Rune: r}, size
}

func escape(buf []byte) (Action, int) {
	if len(buf) == 1 {
		return Action{Kind: Cancel}, 1
	}
	switch buf[1] {
	case '[':
		return csi(buf)
	case 'O':
		if len(buf) < 3 {
			return Action{Kind: Unknown, Raw: append([]byte(nil), buf...)}, len(buf)
		}
		switch buf[2] {
		case 'H':
			return Action{Kind: Home}, 3
		case 'F':
			return Action{Kind: End}, 3
		case 'A':
			return Action{Kind: Up}, 3
		case 'B':
			return Action{Kind: Down}, 3
		case 'C':
			return Action{Kind: Right}, 3
		case 'D':
			return Action{Kind: Left}, 3
		}
		return Action{Kind: Unknown, Raw: append([]byte(nil), buf[:3]...)}, 3
	case 'b':
		return Action{Kind: WordLeft}, 2
	case 'f':
		return Action{Kind: WordRight}, 2
	case 'd':
		return Action{Kind: WordDelete}, 2
	case del, ctrlH:
		return Action{Kind: WordBackspace}, 2
	case esc:
		return Action{Kind: Cancel}, 1
	}
	return Action{Kind: Unknown, Raw: append([]byte(nil), buf[:2]...)}, 2
}

// csi parses an ESC [ sequence through its final byte (0x40..0x7e).
func csi(buf []byte) (Action, int) {
	i := 2
	for i < len(buf) && (buf[i] < 0x40 || buf[i] > 0x7e) {
		i++
	}
	if i >= len(buf) {
		// Truncated sequence; surface what we have.
		return Action{Kind: Unknown, Raw: append([]byte(nil), buf...)}, len(buf)
	}
	final := buf[i]
	params := string(buf[2:i])
	n := i + 1

	switch final {
	case 'A':
		return Action{Kind: Up}, n
	case 'B':
		return Action{Kind: Down}, n
	case 'C':
		if params == "1;5" {
			return Action{Kind: WordRight}, n
		}
		return Action{Kind: Right}, n
	case 'D':
		if params == "1;5" {
			return Action{Kind: WordLeft}, n
		}
		return Action{Kind: Left}, n
	case 'H':
		if params == "1;5" {
			return Action{Kind: BufferHome}, n
		}
		return Action{Kind: Home}, n
	case 'F':
		if params == "1;5" {
			return Action{Kind: BufferEnd}, n
		}
		return Action{Kind: End}, n
	case 'u':
		// CSI-u encoding; shift+enter is the configured send chord.
		if params == "13;2" {
			return Action{Kind: Send}, n
		}
	case '~':
		switch params {
		case "1", "7":
			return Action{Kind: Home}, n
		case "4", "8":
			return Action{Kind: End}, n
		case "3":
			return Action{Kind: Delete}, n
		case "3;5":
			return Action{Kind: WordDelete}, n
		case "27;2;13":
			// xterm modifyOtherKeys encoding of shift+enter.
			return Action{Kind: Send}, n
		case "200", "201":
			// Bracketed paste markers; the pasted bytes classify on
			// their own.
			return Action{Kind: Rune}, n
		}
	}
	return Action{Kind: Unknown, Raw: append([]byte(nil), buf[:n]...)}, n
}
