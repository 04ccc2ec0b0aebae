package giver

import (
	"github.com/lawnchairsociety/questengine/internal/dialogue"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/quest"
)

// OnEnemyKilled counts a kill toward an EnemyExtermination step.
func (g *Giver) OnEnemyKilled() {
	if g.ActiveQuestKind() != quest.KindEnemyExtermination {
		return
	}
	g.progress.Kills++
	g.afterProgress()
}

// OnDamageDealt adds amount toward a RequirementQuest step.
func (g *Giver) OnDamageDealt(amount int) {
	if g.ActiveQuestKind() != quest.KindRequirement || amount <= 0 {
		return
	}
	g.progress.Damage += amount
	g.afterProgress()
}

// OnTalkedTo completes a TalkToNPC step whose target is name.
func (g *Giver) OnTalkedTo(name string) {
	if g.ActiveQuestKind() != quest.KindTalkToNPC {
		return
	}
	def, _ := g.currentQuest()
	if def.Type.Target() != name {
		return
	}
	g.progress.Talked = true
	g.afterProgress()
}

func (g *Giver) afterProgress() {
	g.refreshQuestText()
	g.checkCompletion()
}

// RefreshQuestUI redraws the quest description with live counters and
// evaluates the active step against them. ScoreChecker steps have no push
// event and complete only from here.
func (g *Giver) RefreshQuestUI() {
	if g.closed || !g.questActive {
		return
	}
	g.refreshQuestText()
	g.checkCompletion()
}

func (g *Giver) refreshQuestText() {
	def, ok := g.currentQuest()
	if !ok || !g.questActive {
		return
	}
	desc := g.deps.Text.Description(def, g.progress, g.deps.Resource.CurrentResource())
	if desc == g.questText {
		return
	}
	g.questText = desc
	g.deps.Presenter.SetQuestText(def.Title, desc)
}

func (g *Giver) clearQuestText() {
	g.questText = ""
	g.deps.Presenter.ClearQuestText()
}

// startQuest makes the step at index the current one. An index outside the
// chain is the terminal state. A step without an objective only moves the
// index, so its dialogue or choices play on the next conversation.
func (g *Giver) startQuest(index int) {
	def, ok := g.profile.Chain.Get(index)
	if !ok {
		g.exhaust(index)
		return
	}

	g.questIndex = index
	g.progress = quest.Progress{}
	g.questCompleted = false
	g.startPending = false

	if def.Type.Kind() == quest.KindNone {
		g.questActive = false
		logger.Debug("Moved to conversational step", "npc", g.profile.Name, "quest_index", index)
		return
	}

	g.questActive = true
	if def.Type.Kind() == quest.KindTalkToNPC {
		g.progress.Talked = g.deps.Registry.HasTalkedTo(def.Type.Target())
	}
	logger.Info("Quest started",
		"npc", g.profile.Name,
		"quest_index", index,
		"quest", def.Title,
		"type", def.Type.String())
	g.emit(EventQuestStarted, def.Title)
	g.refreshQuestText()

	if len(def.StartDialogue) > 0 {
		if !g.inRange {
			g.startPending = true
			logger.Debug("Start dialogue deferred until next interaction", "npc", g.profile.Name, "quest_index", index)
			return
		}
		g.playStartDialogue(def)
		return
	}
	g.checkCompletion()
}

// playStartDialogue opens the start dialogue of def. The player must be in
// range to advance it.
func (g *Giver) playStartDialogue(def *quest.Definition) {
	g.startPending = false
	now := g.deps.Now()
	g.session = dialogue.NewSession(dialogue.KindQuestStart, g.deps.Text.Wrap(def.StartDialogue), g.deps.Text.Placeholder(), now)
	g.shownLine = ""
	g.setMode(StateConversing)
	g.holdMovement()
	g.showLine(now)
}

// exhaust parks the giver past the end of its chain.
func (g *Giver) exhaust(requested int) {
	if requested != g.profile.Chain.Exhausted() && requested != g.questIndex {
		logger.Warning("Quest index outside chain, ending chain",
			"npc", g.profile.Name,
			"quest_index", requested,
			"chain_length", len(g.profile.Chain))
	}
	g.questIndex = g.profile.Chain.Exhausted()
	g.questActive = false
	g.startPending = false
	g.progress = quest.Progress{}
	logger.Info("Quest chain exhausted", "npc", g.profile.Name)
	g.emit(EventChainExhausted, "")
}

// checkCompletion completes the active step when its threshold is met. A
// step completes at most once per check.
func (g *Giver) checkCompletion() {
	if !g.questActive {
		return
	}
	def, ok := g.currentQuest()
	if !ok {
		return
	}
	// The start dialogue plays out before the step can complete.
	if g.startPending || (g.session != nil && g.session.Kind() == dialogue.KindQuestStart) {
		return
	}
	if !g.progress.Satisfied(def.Type, g.deps.Resource.CurrentResource()) {
		return
	}
	g.complete(def)
}

func (g *Giver) complete(def *quest.Definition) {
	if g.session != nil {
		logger.Debug("Conversation cancelled by quest completion", "npc", g.profile.Name)
		g.cancelSession()
	}

	g.questActive = false
	g.questCompleted = true
	logger.Info("Quest completed", "npc", g.profile.Name, "quest_index", g.questIndex, "quest", def.Title)

	for _, id := range def.DeactivateOnComplete {
		g.deps.Objects.SetActive(id, false)
	}
	for _, id := range def.ActivateOnComplete {
		g.deps.Objects.SetActive(id, true)
	}
	g.emit(EventQuestCompleted, def.Title)

	now := g.deps.Now()
	g.inputSuspended = true
	g.holdMovement()
	g.session = dialogue.NewSession(dialogue.KindCompletion, g.deps.Text.Wrap(def.CompleteDialogue), g.deps.Text.Placeholder(), now)
	g.shownLine = ""
	g.setMode(StateCompletingQuest)
	g.showLine(now)

	g.deps.Registry.MarkQuestCompleted(g.profile.Name)
}

// finishCompletion runs after the last completion line has dwelled.
func (g *Giver) finishCompletion() {
	g.cancelSession()
	g.inputSuspended = false
	g.releaseMovement()
	g.clearQuestText()
	g.setMode(StateIdle)

	if g.StartNextInChain() {
		return
	}
	if g.questCompleted && g.questIndex < len(g.profile.Chain) {
		g.exhaust(g.profile.Chain.Exhausted())
	}
}

// StartNextInChain starts the step linked from the completed current step.
// It does nothing unless the giver is idle, has no active step and the
// current step completed with a next step linked. Both the giver's own
// completion sequence and the registry call it; whichever runs second
// finds nothing to do.
func (g *Giver) StartNextInChain() bool {
	if g.closed || g.mode != StateIdle || g.questActive || !g.questCompleted {
		return false
	}
	def, ok := g.currentQuest()
	if !ok || !def.HasNextQuest {
		return false
	}
	logger.Debug("Continuing chain",
		"npc", g.profile.Name,
		"quest_index", g.questIndex,
		"next", def.NextQuestIndex)
	g.startQuest(def.NextQuestIndex)
	return true
}
