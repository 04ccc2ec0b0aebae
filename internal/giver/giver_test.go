package giver

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/questengine/internal/dialogue"
	"github.com/lawnchairsociety/questengine/internal/quest"
	"github.com/lawnchairsociety/questengine/internal/registry"
)

const dwell = 1500 * time.Millisecond

type fakePresenter struct {
	lines       []string
	hides       int
	choices     [][]string
	choiceHides int
	questTitle  string
	questDesc   string
	questClears int
}

func (p *fakePresenter) ShowLine(speaker, text, portrait string) { p.lines = append(p.lines, text) }
func (p *fakePresenter) HideDialogue()                           { p.hides++ }
func (p *fakePresenter) ShowChoices(labels []string)             { p.choices = append(p.choices, labels) }
func (p *fakePresenter) HideChoices()                            { p.choiceHides++ }

func (p *fakePresenter) ClearQuestText() {
	p.questClears++
	p.questTitle, p.questDesc = "", ""
}

func (p *fakePresenter) SetQuestText(title, description string) {
	p.questTitle = title
	p.questDesc = description
}

func (p *fakePresenter) lastLine() string {
	if len(p.lines) == 0 {
		return ""
	}
	return p.lines[len(p.lines)-1]
}

type fakeMovement struct {
	disabled bool
	disables int
	enables  int
}

func (m *fakeMovement) DisableMovement() {
	m.disabled = true
	m.disables++
}

func (m *fakeMovement) EnableMovement() {
	m.disabled = false
	m.enables++
}

type fakeResource struct{ value int }

func (r *fakeResource) CurrentResource() int { return r.value }

type fakeObjects struct{ active map[string]bool }

func (o *fakeObjects) SetActive(id string, active bool) { o.active[id] = active }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	reg       *registry.Registry
	presenter *fakePresenter
	movement  *fakeMovement
	resource  *fakeResource
	objects   *fakeObjects
	clock     *clock
}

func newHarness() *harness {
	return &harness{
		reg:       registry.New(),
		presenter: &fakePresenter{},
		movement:  &fakeMovement{},
		resource:  &fakeResource{},
		objects:   &fakeObjects{active: map[string]bool{}},
		clock:     &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func (h *harness) spawn(t *testing.T, p Profile) *Giver {
	t.Helper()
	g := New(p, Deps{
		Registry:  h.reg,
		Presenter: h.presenter,
		Movement:  h.movement,
		Resource:  h.resource,
		Objects:   h.objects,
		Dwell:     dwell,
		Now:       h.clock.Now,
	})
	t.Cleanup(g.Close)
	g.EnterRange()
	return g
}

// talkThrough interacts until the conversation leaves the dialogue states.
func talkThrough(t *testing.T, g *Giver) {
	t.Helper()
	g.Interact()
	for i := 0; i < 20; i++ {
		if s := g.State(); s != StateConversing && s != StateReadingChoiceResult {
			return
		}
		g.Interact()
	}
	t.Fatalf("conversation did not end, state %s", g.State())
}

// dwellThrough ticks until the completion sequence ends.
func dwellThrough(t *testing.T, h *harness, g *Giver) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if g.State() != StateCompletingQuest {
			return
		}
		h.clock.Advance(dwell)
		g.Update(h.clock.Now())
	}
	t.Fatalf("completion did not end, state %s", g.State())
}

func killChain(required int, next bool) quest.Chain {
	return quest.Chain{{
		Title:            "Cull",
		Description:      "Thin the wolves.",
		Type:             quest.EnemyExtermination(required),
		CompleteDialogue: []string{"Well done."},
		HasNextQuest:     next,
		NextQuestIndex:   1,
	}}
}

func TestInteractOutOfRangeIsIgnored(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Bard", Script: dialogue.Script{Lines: []string{"Hello"}}})
	g.ExitRange()

	g.Interact()

	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle", g.State())
	}
	if len(h.presenter.lines) != 0 {
		t.Errorf("no line should be shown, got %v", h.presenter.lines)
	}
}

func TestConversationAdvancesAndEnds(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Bard", Script: dialogue.Script{Lines: []string{"One", "Two"}}})

	g.Interact()
	if g.State() != StateConversing || h.presenter.lastLine() != "One" {
		t.Fatalf("after first interact: %s %q", g.State(), h.presenter.lastLine())
	}
	if !h.movement.disabled {
		t.Error("movement should be disabled during conversation")
	}

	g.Interact()
	if h.presenter.lastLine() != "Two" {
		t.Errorf("line = %q, want Two", h.presenter.lastLine())
	}

	g.Interact()
	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle", g.State())
	}
	if h.movement.disabled {
		t.Error("movement should be re-enabled")
	}
	if h.presenter.hides != 1 {
		t.Errorf("HideDialogue calls = %d, want 1", h.presenter.hides)
	}
	if !h.reg.HasTalkedTo("Bard") {
		t.Error("Bard should be marked talked-to")
	}
}

func TestEmptyDialogueShowsPlaceholder(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Mute"})

	g.Interact()
	if h.presenter.lastLine() != "..." {
		t.Errorf("line = %q, want placeholder", h.presenter.lastLine())
	}
	g.Interact()
	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle", g.State())
	}
}

func TestTypewriterInteractRevealsLine(t *testing.T) {
	h := newHarness()
	g := New(Profile{Name: "Bard", Script: dialogue.Script{Lines: []string{"Hello", "Bye"}}}, Deps{
		Registry:   h.reg,
		Presenter:  h.presenter,
		Typewriter: dialogue.Typewriter{Interval: 10 * time.Millisecond},
		Now:        h.clock.Now,
	})
	defer g.Close()
	g.EnterRange()

	g.Interact()
	if h.presenter.lastLine() != "H" {
		t.Fatalf("first reveal = %q, want H", h.presenter.lastLine())
	}

	h.clock.Advance(20 * time.Millisecond)
	g.Update(h.clock.Now())
	if h.presenter.lastLine() != "Hel" {
		t.Errorf("after 20ms = %q, want Hel", h.presenter.lastLine())
	}

	g.Interact()
	if h.presenter.lastLine() != "Hello" {
		t.Errorf("interact while typing = %q, want full line", h.presenter.lastLine())
	}

	g.Interact()
	if h.presenter.lastLine() != "B" {
		t.Errorf("next line = %q, want B", h.presenter.lastLine())
	}
}

func TestQuestAutoStartsAfterDialogue(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{
		Name:   "Hunter",
		Script: dialogue.Script{Lines: []string{"Wolves!"}},
		Chain:  killChain(3, false),
	})

	talkThrough(t, g)

	if g.State() != StateQuestActive {
		t.Fatalf("State() = %s, want quest_active", g.State())
	}
	if h.presenter.questTitle != "Cull" {
		t.Errorf("quest title = %q", h.presenter.questTitle)
	}
	if h.presenter.questDesc != "Thin the wolves.\nKills: 0/3" {
		t.Errorf("quest description = %q", h.presenter.questDesc)
	}
}

func TestKillThresholdIsClosed(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: killChain(3, false)})
	talkThrough(t, g)

	h.reg.BroadcastEnemyKilled()
	h.reg.BroadcastEnemyKilled()
	if g.State() != StateQuestActive {
		t.Fatalf("after 2 kills State() = %s, want quest_active", g.State())
	}
	if h.presenter.questDesc != "Thin the wolves.\nKills: 2/3" {
		t.Errorf("quest description = %q", h.presenter.questDesc)
	}

	h.reg.BroadcastEnemyKilled()
	if g.State() != StateCompletingQuest {
		t.Fatalf("after 3 kills State() = %s, want completing_quest", g.State())
	}
	if !h.reg.IsQuestCompletedFrom("Hunter") {
		t.Error("registry should record completion")
	}
}

func TestTerminalQuestExhaustsChain(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: killChain(1, false)})
	talkThrough(t, g)

	h.reg.BroadcastEnemyKilled()
	if !h.movement.disabled {
		t.Error("movement should be disabled during completion")
	}

	// Interact is suspended during the completion sequence.
	g.Interact()
	if g.State() != StateCompletingQuest {
		t.Errorf("interact during completion changed state to %s", g.State())
	}

	h.clock.Advance(dwell - time.Millisecond)
	g.Update(h.clock.Now())
	if g.State() != StateCompletingQuest {
		t.Fatalf("completion ended before the dwell elapsed")
	}

	dwellThrough(t, h, g)

	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle", g.State())
	}
	if g.QuestIndex() < 1 {
		t.Errorf("QuestIndex() = %d, want >= chain length", g.QuestIndex())
	}
	if h.movement.disabled {
		t.Error("movement should be re-enabled")
	}
	if h.presenter.questClears == 0 {
		t.Error("quest text should be cleared")
	}

	for i := 0; i < 3; i++ {
		h.reg.BroadcastEnemyKilled()
		h.reg.BroadcastDamage(50)
		g.Update(h.clock.Now())
	}
	talkThrough(t, g)
	if g.State() != StateIdle || g.QuestIndex() < 1 {
		t.Errorf("exhausted giver moved: state %s index %d", g.State(), g.QuestIndex())
	}
}

func TestCompletionDwellIsPerLine(t *testing.T) {
	h := newHarness()
	chain := killChain(1, false)
	chain[0].CompleteDialogue = []string{"First", "Second"}
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: chain})
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()

	if h.presenter.lastLine() != "First" {
		t.Fatalf("line = %q, want First", h.presenter.lastLine())
	}
	h.clock.Advance(dwell)
	g.Update(h.clock.Now())
	if h.presenter.lastLine() != "Second" || g.State() != StateCompletingQuest {
		t.Fatalf("after one dwell: %q %s", h.presenter.lastLine(), g.State())
	}
	h.clock.Advance(dwell)
	g.Update(h.clock.Now())
	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle", g.State())
	}
}

func TestCompletionTogglesSceneObjects(t *testing.T) {
	h := newHarness()
	chain := killChain(1, false)
	chain[0].ActivateOnComplete = []string{"bridge"}
	chain[0].DeactivateOnComplete = []string{"gate"}
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: chain})
	talkThrough(t, g)

	h.reg.BroadcastEnemyKilled()

	if active, ok := h.objects.active["bridge"]; !ok || !active {
		t.Error("bridge should be activated")
	}
	if active, ok := h.objects.active["gate"]; !ok || active {
		t.Error("gate should be deactivated")
	}
}

func TestProgressTypeIsolation(t *testing.T) {
	h := newHarness()
	damage := quest.Chain{{Title: "Hit", Type: quest.RequirementQuest(100)}}
	hunter := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: killChain(5, false)})
	smith := h.spawn(t, Profile{Name: "Smith", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: damage})
	talkThrough(t, hunter)
	talkThrough(t, smith)

	h.reg.BroadcastEnemyKilled()
	h.reg.BroadcastDamage(40)

	if hunter.Progress().Kills != 1 || hunter.Progress().Damage != 0 {
		t.Errorf("hunter progress = %+v", hunter.Progress())
	}
	if smith.Progress().Kills != 0 || smith.Progress().Damage != 40 {
		t.Errorf("smith progress = %+v", smith.Progress())
	}
	if h.presenter.questDesc != "Damage: 40/100" {
		t.Errorf("quest description = %q", h.presenter.questDesc)
	}
}

func TestCountersPersistAcrossConversations(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Chain: killChain(3, false)})
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()
	h.reg.BroadcastEnemyKilled()

	// Empty script: placeholder then idle.
	g.Interact()
	if g.State() != StateConversing {
		t.Fatalf("State() = %s, want conversing", g.State())
	}
	g.Interact()

	if g.State() != StateQuestActive {
		t.Errorf("State() = %s, want quest_active", g.State())
	}
	if g.Progress().Kills != 2 {
		t.Errorf("Kills = %d, want 2", g.Progress().Kills)
	}
}

func TestElfChainScenario(t *testing.T) {
	h := newHarness()
	h.reg.MarkTalkedTo("Warrior")

	chain := quest.Chain{
		{Title: "Find the Warrior", Type: quest.TalkToNPC("Warrior"), HasNextQuest: true, NextQuestIndex: 1},
		{Title: "Slay one", Type: quest.EnemyExtermination(1)},
	}
	elf := h.spawn(t, Profile{Name: "Elf", Script: dialogue.Script{Lines: []string{"Greetings."}}, Chain: chain})

	talkThrough(t, elf)
	if elf.State() != StateCompletingQuest {
		t.Fatalf("step 0 should complete at once, state %s", elf.State())
	}
	dwellThrough(t, h, elf)
	if elf.State() != StateQuestActive || elf.QuestIndex() != 1 {
		t.Fatalf("after dwell: state %s index %d", elf.State(), elf.QuestIndex())
	}

	h.reg.BroadcastEnemyKilled()
	dwellThrough(t, h, elf)

	if elf.State() != StateIdle {
		t.Errorf("State() = %s, want idle", elf.State())
	}
	if elf.QuestIndex() < len(chain) {
		t.Errorf("QuestIndex() = %d, want exhausted", elf.QuestIndex())
	}
}

func TestTalkToNPCCompletesOnBroadcast(t *testing.T) {
	h := newHarness()
	chain := quest.Chain{{Title: "Find the Warrior", Type: quest.TalkToNPC("Warrior")}}
	elf := h.spawn(t, Profile{Name: "Elf", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: chain})
	warrior := h.spawn(t, Profile{Name: "Warrior", Script: dialogue.Script{Lines: []string{"Hm?"}}})
	talkThrough(t, elf)

	if h.presenter.questDesc != "Talk to Warrior" {
		t.Errorf("quest description = %q", h.presenter.questDesc)
	}

	talkThrough(t, warrior)

	if elf.State() != StateCompletingQuest {
		t.Errorf("Elf State() = %s, want completing_quest", elf.State())
	}
}

func TestScoreCheckerScenario(t *testing.T) {
	h := newHarness()
	h.resource.value = 5
	chain := quest.Chain{{
		Title:          "Pay up",
		Type:           quest.ScoreChecker(10),
		NotMetDialogue: []string{"Not enough gold."},
	}}
	g := h.spawn(t, Profile{Name: "Merchant", Script: dialogue.Script{Lines: []string{"Bring gold."}}, Chain: chain})
	talkThrough(t, g)
	// The step is offered with the normal lines before it is accepted.
	if len(h.presenter.lines) == 0 || h.presenter.lines[0] != "Bring gold." {
		t.Fatalf("lines = %q, want the normal lines first", h.presenter.lines)
	}
	if g.State() != StateQuestActive {
		t.Fatalf("State() = %s, want quest_active", g.State())
	}
	if h.presenter.questDesc != "Gold: 5/10" {
		t.Errorf("quest description = %q", h.presenter.questDesc)
	}

	g.Interact()
	if h.presenter.lastLine() != "Not enough gold." {
		t.Errorf("line = %q, want not-met dialogue", h.presenter.lastLine())
	}
	g.Interact()
	g.RefreshQuestUI()
	if g.State() != StateQuestActive {
		t.Fatalf("State() = %s, want quest_active", g.State())
	}

	h.resource.value = 10
	g.RefreshQuestUI()
	if g.State() != StateCompletingQuest {
		t.Errorf("State() = %s, want completing_quest", g.State())
	}
}

func choiceChain() quest.Chain {
	return quest.Chain{
		{
			Title:         "Crossroads",
			Type:          quest.None(),
			OffersChoices: true,
			Choices: &quest.ChoicePrompt{Choices: []quest.Choice{
				{Label: "Help", Result: []string{"Thank you!"}, TriggersQuest: true, QuestIndex: 1},
				{Label: "Refuse", Result: []string{"Pity."}},
			}},
		},
		{Title: "Cull", Type: quest.EnemyExtermination(2)},
	}
}

func TestChoiceJumpStartsQuest(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Ranger", Script: dialogue.Script{Lines: []string{"Will you help?"}}, Chain: choiceChain()})

	g.Interact()
	g.Interact()
	if g.State() != StateAwaitingChoice {
		t.Fatalf("State() = %s, want awaiting_choice", g.State())
	}
	if len(h.presenter.choices) != 1 || len(h.presenter.choices[0]) != 2 {
		t.Fatalf("choices shown = %v", h.presenter.choices)
	}

	// Interact does nothing while the prompt is open.
	g.Interact()
	if g.State() != StateAwaitingChoice {
		t.Fatalf("interact left the prompt: %s", g.State())
	}
	// Out-of-range keys are ignored.
	g.SelectChoice(5)
	if g.State() != StateAwaitingChoice {
		t.Fatalf("invalid choice changed state to %s", g.State())
	}

	g.SelectChoice(0)
	if g.State() != StateReadingChoiceResult || h.presenter.lastLine() != "Thank you!" {
		t.Fatalf("after choice: %s %q", g.State(), h.presenter.lastLine())
	}
	g.Interact()

	if g.State() != StateQuestActive || g.QuestIndex() != 1 {
		t.Errorf("state %s index %d, want quest_active at 1", g.State(), g.QuestIndex())
	}
	if h.movement.disabled {
		t.Error("movement should be re-enabled")
	}
}

func TestChoiceWithoutJumpReturnsToIdle(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Ranger", Script: dialogue.Script{Lines: []string{"Will you help?"}}, Chain: choiceChain()})

	g.Interact()
	g.Interact()
	g.SelectChoice(1)
	g.Interact()

	if g.State() != StateIdle || g.QuestIndex() != 0 {
		t.Errorf("state %s index %d, want idle at 0", g.State(), g.QuestIndex())
	}

	// The prompt comes back on the next conversation.
	g.Interact()
	g.Interact()
	if g.State() != StateAwaitingChoice {
		t.Errorf("State() = %s, want awaiting_choice", g.State())
	}
}

func TestChoiceJumpOutOfRangeEndsChain(t *testing.T) {
	h := newHarness()
	chain := choiceChain()
	chain[0].Choices.Choices[0].QuestIndex = 9
	g := h.spawn(t, Profile{Name: "Ranger", Script: dialogue.Script{Lines: []string{"?"}}, Chain: chain})

	g.Interact()
	g.Interact()
	g.SelectChoice(0)
	g.Interact()

	if g.State() != StateIdle || g.QuestIndex() != len(chain) {
		t.Errorf("state %s index %d, want idle and exhausted", g.State(), g.QuestIndex())
	}
}

func TestExitRangeCancelsChoice(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Ranger", Script: dialogue.Script{Lines: []string{"Will you help?"}}, Chain: choiceChain()})
	g.Interact()
	g.Interact()

	g.ExitRange()

	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle", g.State())
	}
	if g.Snapshot().Choices != nil {
		t.Error("pending choices should be cleared")
	}
	if h.presenter.choiceHides == 0 || h.presenter.hides == 0 {
		t.Error("choice and dialogue panels should be hidden")
	}
	if h.movement.disabled {
		t.Error("movement should be re-enabled")
	}
	if g.QuestIndex() != 0 || g.ActiveQuestKind() != quest.KindNone {
		t.Error("no quest should have started")
	}

	// A late key press is ignored.
	g.SelectChoice(0)
	if g.State() != StateIdle {
		t.Errorf("late choice changed state to %s", g.State())
	}
}

func TestExitRangeKeepsAcceptedQuest(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go", "Now"}}, Chain: killChain(3, false)})
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()

	g.Interact()
	g.ExitRange()

	if g.State() != StateQuestActive || g.Progress().Kills != 1 {
		t.Errorf("state %s kills %d, want quest_active with 1 kill", g.State(), g.Progress().Kills)
	}
}

func TestExitRangeDoesNotCancelCompletion(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: killChain(1, false)})
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()

	g.ExitRange()

	if g.State() != StateCompletingQuest {
		t.Errorf("State() = %s, want completing_quest", g.State())
	}
}

func TestPrerequisiteUnmetShowsConditional(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{
		Name:            "Guard",
		Script:          dialogue.Script{Lines: []string{"Pass."}, Conditional: []string{"Speak to the Elder first."}},
		PrerequisiteNPC: "Elder",
		Chain:           killChain(1, false),
	})

	talkThrough(t, g)
	if h.presenter.lines[0] != "Speak to the Elder first." {
		t.Errorf("line = %q, want conditional", h.presenter.lines[0])
	}
	if g.State() != StateIdle {
		t.Errorf("State() = %s, want idle with no quest", g.State())
	}
	if h.reg.HasTalkedTo("Guard") {
		t.Error("Guard should not be marked talked-to while the prerequisite is unmet")
	}

	h.reg.MarkTalkedTo("Elder")
	h.reg.MarkQuestCompleted("Elder")
	talkThrough(t, g)
	if h.presenter.lastLine() != "Pass." {
		t.Errorf("line = %q, want primary", h.presenter.lastLine())
	}
	if g.State() != StateQuestActive {
		t.Errorf("State() = %s, want quest_active", g.State())
	}
	if !h.reg.HasTalkedTo("Guard") {
		t.Error("Guard should be marked talked-to")
	}
}

func TestPrerequisiteSelectedAtStart(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{
		Name:            "Guard",
		Script:          dialogue.Script{Lines: []string{"Pass."}, Conditional: []string{"No.", "Still no."}},
		PrerequisiteNPC: "Elder",
	})

	g.Interact()
	h.reg.MarkTalkedTo("Elder")
	h.reg.MarkQuestCompleted("Elder")
	g.Interact()

	if h.presenter.lastLine() != "Still no." {
		t.Errorf("line = %q, the sequence should not switch mid-conversation", h.presenter.lastLine())
	}
}

func TestStartDialoguePlaysBeforeCompletion(t *testing.T) {
	h := newHarness()
	h.reg.MarkTalkedTo("Warrior")
	chain := quest.Chain{{
		Title:         "Find the Warrior",
		Type:          quest.TalkToNPC("Warrior"),
		StartDialogue: []string{"Off you go."},
	}}
	g := h.spawn(t, Profile{Name: "Elf", Script: dialogue.Script{Lines: []string{"Hi"}}, Chain: chain})

	g.Interact()
	g.Interact()
	if g.State() != StateConversing || h.presenter.lastLine() != "Off you go." {
		t.Fatalf("state %s line %q, want start dialogue", g.State(), h.presenter.lastLine())
	}
	g.Interact()
	if g.State() != StateCompletingQuest {
		t.Errorf("State() = %s, want completing_quest", g.State())
	}
}

func TestChainedStartDialogueWaitsForRange(t *testing.T) {
	h := newHarness()
	chain := quest.Chain{
		{Title: "Cull", Type: quest.EnemyExtermination(1), HasNextQuest: true, NextQuestIndex: 1},
		{Title: "Cull more", Type: quest.EnemyExtermination(3), StartDialogue: []string{"One more thing."}},
	}
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Wolves."}}, Chain: chain})

	talkThrough(t, g)
	g.ExitRange()
	h.reg.BroadcastEnemyKilled()
	dwellThrough(t, h, g)

	if g.State() != StateQuestActive || g.QuestIndex() != 1 {
		t.Fatalf("after chain: state %s index %d, want quest_active at 1", g.State(), g.QuestIndex())
	}
	if h.movement.disabled {
		t.Fatal("movement disabled while the player is out of range")
	}
	if !g.Snapshot().StartPending {
		t.Fatal("start dialogue should wait for the player")
	}

	for i := 0; i < 3; i++ {
		h.reg.BroadcastEnemyKilled()
	}
	if g.State() != StateQuestActive {
		t.Fatalf("State() = %s, want completion held until the start dialogue plays", g.State())
	}

	g.Interact()
	if g.State() != StateQuestActive {
		t.Fatalf("out of range interact changed state to %s", g.State())
	}

	g.EnterRange()
	g.Interact()
	if g.State() != StateConversing || h.presenter.lastLine() != "One more thing." {
		t.Fatalf("state %s line %q, want start dialogue", g.State(), h.presenter.lastLine())
	}
	if !h.movement.disabled {
		t.Error("movement should be held during the start dialogue")
	}

	g.Interact()
	if g.State() != StateCompletingQuest {
		t.Fatalf("State() = %s, want completing_quest", g.State())
	}
	dwellThrough(t, h, g)
	if g.State() != StateIdle || h.movement.disabled {
		t.Errorf("state %s movement disabled %v, want idle with movement back", g.State(), h.movement.disabled)
	}
}

func TestProgressDuringConversationCompletes(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go", "Still here?"}}, Chain: killChain(1, false)})
	talkThrough(t, g)

	g.Interact()
	h.reg.BroadcastEnemyKilled()

	if g.State() != StateCompletingQuest {
		t.Errorf("State() = %s, want completing_quest", g.State())
	}
	if h.presenter.lastLine() != "Well done." {
		t.Errorf("line = %q, want completion line", h.presenter.lastLine())
	}
}

func TestRegistryChainPathIsIdempotent(t *testing.T) {
	h := newHarness()
	chain := quest.Chain{
		{Title: "One", Type: quest.EnemyExtermination(1), HasNextQuest: true, NextQuestIndex: 1},
		{Title: "Two", Type: quest.EnemyExtermination(1)},
	}
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: chain})
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()

	// Not idle: the registry path does nothing.
	if g.StartNextInChain() {
		t.Error("StartNextInChain should refuse while completing")
	}
	dwellThrough(t, h, g)
	if g.QuestIndex() != 1 || g.State() != StateQuestActive {
		t.Fatalf("state %s index %d", g.State(), g.QuestIndex())
	}

	// Already advanced: a second trigger is a no-op.
	h.reg.MarkQuestCompleted("Hunter")
	if g.QuestIndex() != 1 || g.Progress().Kills != 0 {
		t.Errorf("registry path re-advanced the chain: index %d", g.QuestIndex())
	}
}

func TestNextIndexOutOfRangeIsTerminal(t *testing.T) {
	h := newHarness()
	chain := killChain(1, true)
	chain[0].NextQuestIndex = 4
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: chain})
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()
	dwellThrough(t, h, g)

	if g.State() != StateIdle || g.QuestIndex() != len(chain) {
		t.Errorf("state %s index %d, want idle and exhausted", g.State(), g.QuestIndex())
	}
}

func TestCloseUnregistersAndReleases(t *testing.T) {
	h := newHarness()
	g := h.spawn(t, Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go", "More"}}, Chain: killChain(1, false)})
	g.Interact()

	g.Close()

	if h.reg.Len() != 0 {
		t.Errorf("registry Len() = %d, want 0", h.reg.Len())
	}
	if h.movement.disabled || h.movement.disables != h.movement.enables {
		t.Errorf("movement should be released on close: %d disables, %d enables",
			h.movement.disables, h.movement.enables)
	}
	g.Interact()
	h.reg.BroadcastEnemyKilled()
	g.Close()
}

func TestObserverReceivesEvents(t *testing.T) {
	h := newHarness()
	var events []Event
	g := New(Profile{Name: "Hunter", Script: dialogue.Script{Lines: []string{"Go"}}, Chain: killChain(1, false)}, Deps{
		Registry: h.reg,
		Now:      h.clock.Now,
		Observer: func(e Event) { events = append(events, e) },
	})
	defer g.Close()
	g.EnterRange()
	talkThrough(t, g)
	h.reg.BroadcastEnemyKilled()
	dwellThrough(t, h, g)

	want := []EventKind{EventQuestStarted, EventQuestCompleted, EventChainExhausted}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i, kind := range want {
		if events[i].Kind != kind {
			t.Errorf("event %d = %s, want %s", i, events[i].Kind, kind)
		}
	}
}
