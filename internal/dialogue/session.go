package dialogue

import "time"

// Kind tells what a session is playing, which decides what happens when its
// lines run out.
type Kind int

const (
	KindConversation Kind = iota // Interact-driven NPC dialogue
	KindChoiceResult             // Result lines of a selected choice
	KindQuestStart               // Start dialogue of a freshly accepted quest
	KindCompletion               // Completion dialogue on the real-time dwell
)

func (k Kind) String() string {
	switch k {
	case KindConversation:
		return "conversation"
	case KindChoiceResult:
		return "choice_result"
	case KindQuestStart:
		return "quest_start"
	case KindCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// Session is one short-lived playback of a line sequence. It is created when
// a conversation opens and discarded when it closes; nothing in it outlives
// the conversation.
type Session struct {
	kind     Kind
	player   Player
	shownAt  time.Time
	revealed bool
}

// NewSession starts playing lines. An empty sequence plays the single
// placeholder line instead.
func NewSession(kind Kind, lines []string, placeholder string, now time.Time) *Session {
	s := &Session{kind: kind}
	if len(lines) == 0 {
		lines = []string{placeholder}
	}
	s.player.Start(lines)
	s.shownAt = now
	return s
}

// Kind returns what the session is playing.
func (s *Session) Kind() Kind {
	return s.kind
}

// Line returns the full text of the current line.
func (s *Session) Line() string {
	return s.player.Line()
}

// Cursor returns the index of the current line.
func (s *Session) Cursor() int {
	return s.player.Cursor()
}

// Len returns the number of lines the session plays.
func (s *Session) Len() int {
	return s.player.Len()
}

// ShownAt returns when the current line was first shown.
func (s *Session) ShownAt() time.Time {
	return s.shownAt
}

// Advance moves to the next line, stamping it as shown at now.
func (s *Session) Advance(now time.Time) (string, error) {
	line, err := s.player.Advance()
	if err != nil {
		return "", err
	}
	s.shownAt = now
	s.revealed = false
	return line, nil
}

// Typing reports whether the current line is still being revealed.
func (s *Session) Typing(tw Typewriter, now time.Time) bool {
	if s.revealed {
		return false
	}
	_, done := tw.Visible(s.Line(), now.Sub(s.shownAt))
	return !done
}

// Reveal finishes the typewriter for the current line.
func (s *Session) Reveal() {
	s.revealed = true
}

// Visible returns the revealed part of the current line.
func (s *Session) Visible(tw Typewriter, now time.Time) string {
	if s.revealed {
		return s.Line()
	}
	text, _ := tw.Visible(s.Line(), now.Sub(s.shownAt))
	return text
}

// Dwelled reports whether the current line has been on screen for at least
// dwell, measured on the wall clock.
func (s *Session) Dwelled(dwell time.Duration, now time.Time) bool {
	return now.Sub(s.shownAt) >= dwell
}
