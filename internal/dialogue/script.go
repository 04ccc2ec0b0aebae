// Package dialogue provides line sequencing for NPC conversations: script
// selection, cursor advancement and the typewriter reveal.
package dialogue

// Script is an immutable dialogue: the primary line sequence and an optional
// conditional sequence shown while a prerequisite fact is unsatisfied.
type Script struct {
	Lines       []string
	Conditional []string
}

// HasConditional returns true if the script defines an alternate sequence
func (s Script) HasConditional() bool {
	return len(s.Conditional) > 0
}

// Select returns the sequence to play for a conversation. The predicate is
// evaluated once by the caller when the conversation starts; the returned
// slice is a copy, so later changes to the script or predicate do not affect
// a conversation already under way.
func Select(s Script, satisfied bool) []string {
	if satisfied {
		return cloneLines(s.Lines)
	}
	return cloneLines(s.Conditional)
}

func cloneLines(lines []string) []string {
	if len(lines) == 0 {
		return []string{}
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
