package quest

import "fmt"

// Kind identifies what a quest step asks of the player
type Kind string

const (
	KindNone               Kind = "none"                // Conversational step, no objective
	KindEnemyExtermination Kind = "enemy_extermination" // Defeat a number of enemies
	KindTalkToNPC          Kind = "talk_to_npc"         // Speak with a named NPC
	KindRequirement        Kind = "requirement"         // Deal an amount of damage
	KindScoreChecker       Kind = "score_checker"       // Hold an amount of a shared resource
)

// MaxChoices is the number of selector keys a choice prompt can bind.
const MaxChoices = 7

// Type is the closed quest-type variant. Each value carries only the
// threshold or target that its kind uses; construct it with the kind
// functions below.
type Type struct {
	kind      Kind
	threshold int
	target    string
}

// None returns the objective-less type.
func None() Type {
	return Type{kind: KindNone}
}

// EnemyExtermination completes after requiredKills enemy kills.
func EnemyExtermination(requiredKills int) Type {
	return Type{kind: KindEnemyExtermination, threshold: requiredKills}
}

// TalkToNPC completes once the player has talked to targetName.
func TalkToNPC(targetName string) Type {
	return Type{kind: KindTalkToNPC, target: targetName}
}

// RequirementQuest completes after requiredDamage total damage is dealt.
func RequirementQuest(requiredDamage int) Type {
	return Type{kind: KindRequirement, threshold: requiredDamage}
}

// ScoreChecker completes while the shared resource is at least requiredResource.
func ScoreChecker(requiredResource int) Type {
	return Type{kind: KindScoreChecker, threshold: requiredResource}
}

// Kind returns the variant tag. The zero Type reports KindNone.
func (t Type) Kind() Kind {
	if t.kind == "" {
		return KindNone
	}
	return t.kind
}

// Threshold returns the kill, damage or resource threshold.
func (t Type) Threshold() int {
	return t.threshold
}

// Target returns the NPC name a TalkToNPC step waits for.
func (t Type) Target() string {
	return t.target
}

func (t Type) String() string {
	switch t.Kind() {
	case KindEnemyExtermination:
		return fmt.Sprintf("EnemyExtermination(%d)", t.threshold)
	case KindTalkToNPC:
		return fmt.Sprintf("TalkToNPC(%s)", t.target)
	case KindRequirement:
		return fmt.Sprintf("RequirementQuest(%d)", t.threshold)
	case KindScoreChecker:
		return fmt.Sprintf("ScoreChecker(%d)", t.threshold)
	default:
		return "None"
	}
}

// Choice is one labeled branch of a choice prompt
type Choice struct {
	Label         string
	Result        []string // Lines played after the branch is picked
	TriggersQuest bool     // Jump the chain when the result lines finish
	QuestIndex    int      // Chain index to jump to
}

// ChoicePrompt is an ordered set of branches, one per selector key
type ChoicePrompt struct {
	Choices []Choice
}

// Get returns the choice at index, or false when the index is out of range.
func (p *ChoicePrompt) Get(index int) (Choice, bool) {
	if p == nil || index < 0 || index >= len(p.Choices) || index >= MaxChoices {
		return Choice{}, false
	}
	return p.Choices[index], true
}

// Labels returns the button labels in order.
func (p *ChoicePrompt) Labels() []string {
	if p == nil {
		return []string{}
	}
	n := len(p.Choices)
	if n > MaxChoices {
		n = MaxChoices
	}
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		labels[i] = p.Choices[i].Label
	}
	return labels
}

// Len returns the number of selectable choices.
func (p *ChoicePrompt) Len() int {
	if p == nil {
		return 0
	}
	if len(p.Choices) > MaxChoices {
		return MaxChoices
	}
	return len(p.Choices)
}

// Definition describes one step of an NPC's quest chain
type Definition struct {
	Title       string
	Description string
	Type        Type

	OffersChoices bool
	Choices       *ChoicePrompt

	StartDialogue    []string
	CompleteDialogue []string
	NotMetDialogue   []string // Shown while a ScoreChecker threshold is unmet

	ActivateOnComplete   []string // Scene object IDs
	DeactivateOnComplete []string

	HasNextQuest   bool
	NextQuestIndex int
}

// PromptsChoice returns true if the step shows a choice prompt instead of
// auto-accepting at the end of dialogue.
func (d *Definition) PromptsChoice() bool {
	return d.OffersChoices && d.Choices.Len() > 0
}

// Acceptable returns true if reaching the end of dialogue leads anywhere:
// a prompt, or an automatic start of a step that has an objective.
func (d *Definition) Acceptable() bool {
	return d.PromptsChoice() || d.Type.Kind() != KindNone
}

// Chain is the ordered list of quest steps an NPC owns
type Chain []Definition

// Get returns the step at index. Any index outside the chain, including the
// exhausted sentinel, returns false.
func (c Chain) Get(index int) (*Definition, bool) {
	if index < 0 || index >= len(c) {
		return nil, false
	}
	return &c[index], true
}

// Exhausted returns the sentinel index that marks a finished chain.
func (c Chain) Exhausted() int {
	return len(c)
}
