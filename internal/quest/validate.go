package quest

import (
	"errors"
	"fmt"
)

// ErrInvalidChain marks a content gap found by ValidateChain. The engine
// never fails on these at runtime; each one has a fallback behaviour.
var ErrInvalidChain = errors.New("invalid quest chain")

// ValidateChain reports every configuration gap in a chain. An empty result
// means the chain is well formed.
func ValidateChain(c Chain) []error {
	var errs []error
	gap := func(step int, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: step %d: %s", ErrInvalidChain, step, fmt.Sprintf(format, args...)))
	}

	for i := range c {
		def := &c[i]

		if def.HasNextQuest && (def.NextQuestIndex < 0 || def.NextQuestIndex >= len(c)) {
			gap(i, "next_quest_index %d outside chain of %d steps, chain ends here", def.NextQuestIndex, len(c))
		}

		if def.Type.Threshold() < 0 {
			gap(i, "negative threshold %d", def.Type.Threshold())
		}
		if def.Type.Kind() == KindTalkToNPC && def.Type.Target() == "" {
			gap(i, "talk_to_npc without a target can never complete")
		}

		if def.OffersChoices && def.Choices.Len() == 0 {
			gap(i, "offers_choices set but no choices defined, step auto-starts")
		}
		if def.Choices != nil && len(def.Choices.Choices) > MaxChoices {
			gap(i, "%d choices defined, only the first %d are selectable", len(def.Choices.Choices), MaxChoices)
		}
		if def.Choices != nil {
			for j, choice := range def.Choices.Choices {
				if choice.TriggersQuest && (choice.QuestIndex < 0 || choice.QuestIndex >= len(c)) {
					gap(i, "choice %d jumps to %d outside chain, chain ends when picked", j, choice.QuestIndex)
				}
			}
		}
	}

	return errs
}
