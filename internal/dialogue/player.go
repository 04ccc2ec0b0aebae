package dialogue

import "errors"

// ErrSequenceExhausted is returned when there is no line left to show.
var ErrSequenceExhausted = errors.New("dialogue sequence exhausted")

// Player walks a line sequence with a cursor. It holds no other state.
type Player struct {
	lines  []string
	cursor int
}

// Start resets the cursor to the first line of lines and returns it.
func (p *Player) Start(lines []string) (string, error) {
	p.lines = lines
	p.cursor = 0
	if len(lines) == 0 {
		return "", ErrSequenceExhausted
	}
	return lines[0], nil
}

// Advance moves to the next line. When the cursor is already on the last
// line it returns ErrSequenceExhausted and leaves the cursor where it is.
func (p *Player) Advance() (string, error) {
	if p.cursor+1 >= len(p.lines) {
		return "", ErrSequenceExhausted
	}
	p.cursor++
	return p.lines[p.cursor], nil
}

// Line returns the line under the cursor, or "" for an empty sequence.
func (p *Player) Line() string {
	if p.cursor >= len(p.lines) {
		return ""
	}
	return p.lines[p.cursor]
}

// Cursor returns the current line index.
func (p *Player) Cursor() int {
	return p.cursor
}

// Len returns the number of lines in the sequence.
func (p *Player) Len() int {
	return len(p.lines)
}

// OnLastLine reports whether the cursor is on the final line.
func (p *Player) OnLastLine() bool {
	return p.cursor+1 >= len(p.lines)
}
