package dialogue

import (
	"time"
	"unicode/utf8"
)

// Typewriter reveals a line one rune per Interval. A zero Interval shows
// lines whole.
type Typewriter struct {
	Interval time.Duration
}

// Visible returns the part of line revealed after elapsed, and whether the
// whole line is now visible.
func (t Typewriter) Visible(line string, elapsed time.Duration) (string, bool) {
	if t.Interval <= 0 || line == "" {
		return line, true
	}
	if elapsed < 0 {
		elapsed = 0
	}

	total := utf8.RuneCountInString(line)
	shown := int(elapsed/t.Interval) + 1
	if shown >= total {
		return line, true
	}

	// Cut at the byte offset of the rune after the last shown one
	count := 0
	for i := range line {
		if count == shown {
			return line[:i], false
		}
		count++
	}
	return line, true
}

// Duration returns how long the full reveal of line takes.
func (t Typewriter) Duration(line string) time.Duration {
	if t.Interval <= 0 {
		return 0
	}
	n := utf8.RuneCountInString(line)
	if n <= 1 {
		return 0
	}
	return time.Duration(n-1) * t.Interval
}
