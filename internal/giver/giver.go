// Package giver implements the per-NPC quest and dialogue state machine.
//
// A Giver is not safe for concurrent use. The world runs every giver on a
// single goroutine and calls into them one command at a time.
package giver

import (
	"time"

	"github.com/google/uuid"
	"github.com/lawnchairsociety/questengine/internal/dialogue"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/quest"
	"github.com/lawnchairsociety/questengine/internal/text"
)

// State is the externally visible state of a giver.
type State int

const (
	StateIdle State = iota
	StateConversing
	StateAwaitingChoice
	StateReadingChoiceResult
	StateQuestActive
	StateCompletingQuest
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConversing:
		return "conversing"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateReadingChoiceResult:
		return "reading_choice_result"
	case StateQuestActive:
		return "quest_active"
	case StateCompletingQuest:
		return "completing_quest"
	default:
		return "unknown"
	}
}

// Profile is the content a giver is built from.
type Profile struct {
	Name            string
	Portrait        string
	Script          dialogue.Script
	PrerequisiteNPC string // Empty means no prerequisite
	Chain           quest.Chain
}

// EventKind names a quest event reported to the observer.
type EventKind string

const (
	EventQuestStarted   EventKind = "quest_started"
	EventQuestCompleted EventKind = "quest_completed"
	EventChoiceSelected EventKind = "choice_selected"
	EventChainExhausted EventKind = "chain_exhausted"
)

// Event is reported to Deps.Observer.
type Event struct {
	Kind       EventKind
	NPC        string
	QuestIndex int
	Detail     string
}

// Deps are the collaborators of a giver. Only Registry is required.
type Deps struct {
	Registry   Registry
	Presenter  Presenter
	Movement   Movement
	Resource   ResourceSource
	Objects    SceneObjects
	Text       *text.Text
	Typewriter dialogue.Typewriter
	Dwell      time.Duration // Real-time dwell per completion line
	Now        func() time.Time
	Observer   func(Event)
}

// Giver is one quest-giving NPC.
type Giver struct {
	profile Profile
	deps    Deps
	id      uuid.UUID
	closed  bool

	questIndex     int
	progress       quest.Progress
	questActive    bool
	questCompleted bool
	startPending   bool // Start dialogue waits for the next in-range interact
	inRange        bool

	mode           State // Idle or one of the session states
	session        *dialogue.Session
	prereqMet      bool // Evaluated when the conversation opened
	choices        *quest.ChoicePrompt
	jumpRequested  bool
	jumpIndex      int
	inputSuspended bool
	holdsMovement  bool

	shownLine string
	questText string
}

// New creates a giver and registers it with deps.Registry. Call Close when
// the NPC is removed from the scene.
func New(p Profile, deps Deps) *Giver {
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if deps.Movement == nil {
		deps.Movement = nopMovement{}
	}
	if deps.Resource == nil {
		deps.Resource = zeroResource{}
	}
	if deps.Objects == nil {
		deps.Objects = nopObjects{}
	}
	if deps.Text == nil {
		deps.Text = text.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	g := &Giver{profile: p, deps: deps}
	if len(p.Chain) == 0 {
		g.questIndex = p.Chain.Exhausted()
	}
	g.id = deps.Registry.Register(g)
	logger.Debug("Giver created", "npc", p.Name, "quests", len(p.Chain))
	return g
}

// Close cancels any open session and unregisters the giver. It is safe to
// call more than once.
func (g *Giver) Close() {
	if g.closed {
		return
	}
	if g.session != nil {
		g.cancelSession()
	}
	g.inputSuspended = false
	g.releaseMovement()
	g.deps.Registry.Unregister(g.id)
	g.closed = true
	logger.Debug("Giver closed", "npc", g.profile.Name)
}

// ID returns the registry subscription id.
func (g *Giver) ID() uuid.UUID {
	return g.id
}

// NPCName returns the name the giver is known by.
func (g *Giver) NPCName() string {
	return g.profile.Name
}

// State returns the current state. An idle giver tracking a quest reports
// StateQuestActive.
func (g *Giver) State() State {
	if g.mode == StateIdle && g.questActive {
		return StateQuestActive
	}
	return g.mode
}

// ActiveQuestKind returns the kind of the step being tracked, or
// quest.KindNone.
func (g *Giver) ActiveQuestKind() quest.Kind {
	if !g.questActive || g.closed {
		return quest.KindNone
	}
	def, ok := g.profile.Chain.Get(g.questIndex)
	if !ok {
		return quest.KindNone
	}
	return def.Type.Kind()
}

// Snapshot is a read-only copy of a giver's state.
type Snapshot struct {
	NPC            string   `json:"npc"`
	State          string   `json:"state"`
	QuestIndex     int      `json:"quest_index"`
	ChainLength    int      `json:"chain_length"`
	QuestTitle     string   `json:"quest_title,omitempty"`
	QuestActive    bool     `json:"quest_active"`
	QuestCompleted bool     `json:"quest_completed"`
	Kills          int      `json:"kills"`
	Damage         int      `json:"damage"`
	InRange        bool     `json:"in_range"`
	InputSuspended bool     `json:"input_suspended"`
	StartPending   bool     `json:"start_pending"`
	Line           string   `json:"line,omitempty"`
	LineIndex      int      `json:"line_index"`
	Choices        []string `json:"choices,omitempty"`
}

// Snapshot returns a copy of the giver's state.
func (g *Giver) Snapshot() Snapshot {
	s := Snapshot{
		NPC:            g.profile.Name,
		State:          g.State().String(),
		QuestIndex:     g.questIndex,
		ChainLength:    len(g.profile.Chain),
		QuestActive:    g.questActive,
		QuestCompleted: g.questCompleted,
		Kills:          g.progress.Kills,
		Damage:         g.progress.Damage,
		InRange:        g.inRange,
		InputSuspended: g.inputSuspended,
		StartPending:   g.startPending,
	}
	if def, ok := g.profile.Chain.Get(g.questIndex); ok {
		s.QuestTitle = def.Title
	}
	if g.session != nil {
		s.Line = g.session.Line()
		s.LineIndex = g.session.Cursor()
	}
	if g.mode == StateAwaitingChoice {
		s.Choices = g.choices.Labels()
	}
	return s
}

// Progress returns the counters of the active step.
func (g *Giver) Progress() quest.Progress {
	return g.progress
}

// QuestIndex returns the chain index; Chain.Exhausted() marks a finished chain.
func (g *Giver) QuestIndex() int {
	return g.questIndex
}

// QuestCompleted reports whether the step at the current index completed.
func (g *Giver) QuestCompleted() bool {
	return g.questCompleted
}

// InRange reports whether the player is in proximity.
func (g *Giver) InRange() bool {
	return g.inRange
}

func (g *Giver) currentQuest() (*quest.Definition, bool) {
	return g.profile.Chain.Get(g.questIndex)
}

func (g *Giver) setMode(m State) {
	if g.mode == m {
		return
	}
	from := g.State()
	g.mode = m
	logger.Debug("Giver state changed",
		"npc", g.profile.Name,
		"from", from.String(),
		"state", g.State().String(),
		"quest_index", g.questIndex)
}

func (g *Giver) holdMovement() {
	if g.holdsMovement {
		return
	}
	g.holdsMovement = true
	g.deps.Movement.DisableMovement()
}

func (g *Giver) releaseMovement() {
	if !g.holdsMovement {
		return
	}
	g.holdsMovement = false
	g.deps.Movement.EnableMovement()
}

func (g *Giver) emit(kind EventKind, detail string) {
	if g.deps.Observer == nil {
		return
	}
	g.deps.Observer(Event{Kind: kind, NPC: g.profile.Name, QuestIndex: g.questIndex, Detail: detail})
}
