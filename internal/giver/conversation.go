package giver

import (
	"time"

	"github.com/lawnchairsociety/questengine/internal/dialogue"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/quest"
)

// EnterRange marks the player as within interaction range.
func (g *Giver) EnterRange() {
	if g.closed {
		return
	}
	g.inRange = true
}

// ExitRange marks the player as out of range and cancels an open
// conversation or choice prompt. Quest acceptance and a running completion
// sequence are left alone.
func (g *Giver) ExitRange() {
	if g.closed {
		return
	}
	g.inRange = false

	switch g.mode {
	case StateConversing, StateAwaitingChoice, StateReadingChoiceResult:
		startDialogue := g.session != nil && g.session.Kind() == dialogue.KindQuestStart
		g.cancelSession()
		g.releaseMovement()
		g.setMode(StateIdle)
		logger.Debug("Conversation cancelled by range exit", "npc", g.profile.Name)
		if startDialogue {
			g.checkCompletion()
		}
	}
}

// Interact handles the interact command. It opens a conversation when idle,
// or plays a start dialogue that was deferred while the player was away. It
// finishes the typewriter on a line still being revealed, and otherwise
// advances to the next line. It is ignored out of range, while a choice
// prompt is waiting and during a completion sequence.
func (g *Giver) Interact() {
	if g.closed || !g.inRange || g.inputSuspended {
		return
	}

	switch g.mode {
	case StateIdle:
		if def, ok := g.currentQuest(); ok && g.startPending {
			g.playStartDialogue(def)
			return
		}
		g.openConversation()
	case StateConversing, StateReadingChoiceResult:
		now := g.deps.Now()
		if g.session.Typing(g.deps.Typewriter, now) {
			g.session.Reveal()
			g.showLine(now)
			return
		}
		if _, err := g.session.Advance(now); err != nil {
			g.finishSession()
			return
		}
		g.showLine(now)
	}
}

// SelectChoice picks a branch of the open choice prompt. Indexes outside
// the prompt are ignored.
func (g *Giver) SelectChoice(index int) {
	if g.closed || g.mode != StateAwaitingChoice || g.inputSuspended {
		return
	}
	choice, ok := g.choices.Get(index)
	if !ok {
		logger.Debug("Choice out of range ignored", "npc", g.profile.Name, "index", index)
		return
	}

	g.deps.Presenter.HideChoices()
	g.choices = nil
	g.jumpRequested = choice.TriggersQuest
	g.jumpIndex = choice.QuestIndex
	g.emit(EventChoiceSelected, choice.Label)

	now := g.deps.Now()
	g.session = dialogue.NewSession(dialogue.KindChoiceResult, g.deps.Text.Wrap(choice.Result), g.deps.Text.Placeholder(), now)
	g.shownLine = ""
	g.setMode(StateReadingChoiceResult)
	g.showLine(now)
}

// prerequisiteMet reports whether the prerequisite NPC has been talked to and
// has had a quest completed. A name that never existed in the scene is never
// satisfied.
func (g *Giver) prerequisiteMet() bool {
	name := g.profile.PrerequisiteNPC
	if name == "" {
		return true
	}
	return g.deps.Registry.HasTalkedTo(name) && g.deps.Registry.IsQuestCompletedFrom(name)
}

// openConversation picks the lines for a new conversation. The not-met
// dialogue of a ScoreChecker step replaces them only once the step has been
// accepted; before that the NPC offers the step with its normal lines.
func (g *Giver) openConversation() {
	g.prereqMet = g.prerequisiteMet()
	lines := dialogue.Select(g.profile.Script, g.prereqMet)

	if def, ok := g.currentQuest(); ok && g.prereqMet && g.questActive &&
		def.Type.Kind() == quest.KindScoreChecker && len(def.NotMetDialogue) > 0 &&
		!g.progress.Satisfied(def.Type, g.deps.Resource.CurrentResource()) {
		lines = append([]string(nil), def.NotMetDialogue...)
	}
	if len(lines) == 0 {
		logger.Warning("Empty dialogue, showing placeholder", "npc", g.profile.Name, "prerequisite_met", g.prereqMet)
	}

	now := g.deps.Now()
	g.session = dialogue.NewSession(dialogue.KindConversation, g.deps.Text.Wrap(lines), g.deps.Text.Placeholder(), now)
	g.shownLine = ""
	g.setMode(StateConversing)
	g.holdMovement()
	g.showLine(now)

	if g.prereqMet {
		g.deps.Registry.MarkTalkedTo(g.profile.Name)
	}
}

// finishSession runs when the last line of the open session is passed.
func (g *Giver) finishSession() {
	kind := g.session.Kind()

	switch kind {
	case dialogue.KindConversation:
		def, ok := g.currentQuest()
		if !g.prereqMet || !ok || g.questActive || g.questCompleted {
			g.closeDialogue()
			return
		}
		if def.PromptsChoice() {
			g.choices = def.Choices
			g.setMode(StateAwaitingChoice)
			g.deps.Presenter.ShowChoices(g.choices.Labels())
			return
		}
		g.closeDialogue()
		if def.Type.Kind() != quest.KindNone {
			g.startQuest(g.questIndex)
		}

	case dialogue.KindChoiceResult:
		jump, index := g.jumpRequested, g.jumpIndex
		g.jumpRequested = false
		g.closeDialogue()
		if jump {
			g.startQuest(index)
		}

	case dialogue.KindQuestStart:
		g.closeDialogue()
		g.checkCompletion()
	}
}

// closeDialogue ends the open session and returns to idle.
func (g *Giver) closeDialogue() {
	g.cancelSession()
	g.releaseMovement()
	g.setMode(StateIdle)
}

// cancelSession drops the session and hides its UI. Movement is left to the
// caller.
func (g *Giver) cancelSession() {
	if g.choices != nil {
		g.deps.Presenter.HideChoices()
		g.choices = nil
	}
	g.jumpRequested = false
	if g.session != nil {
		g.session = nil
		g.shownLine = ""
		g.deps.Presenter.HideDialogue()
	}
}

// showLine pushes the visible part of the current line if it changed.
func (g *Giver) showLine(now time.Time) {
	if g.session == nil {
		return
	}
	visible := g.session.Visible(g.deps.Typewriter, now)
	if visible == g.shownLine {
		return
	}
	g.shownLine = visible
	g.deps.Presenter.ShowLine(g.profile.Name, visible, g.profile.Portrait)
}

// Update advances time-driven behavior: the typewriter, the completion
// dwell and the quest UI. now is wall-clock time.
func (g *Giver) Update(now time.Time) {
	if g.closed {
		return
	}

	switch g.mode {
	case StateCompletingQuest:
		if g.session.Dwelled(g.deps.Dwell, now) {
			if _, err := g.session.Advance(now); err != nil {
				g.finishCompletion()
				break
			}
		}
		g.showLine(now)
	case StateConversing, StateReadingChoiceResult, StateAwaitingChoice:
		g.showLine(now)
	}

	g.RefreshQuestUI()
}
