package world

import "github.com/lawnchairsociety/questengine/internal/giver"

// Snapshot is a read-only copy of a scene.
type Snapshot struct {
	Resource        int              `json:"resource"`
	MovementEnabled bool             `json:"movement_enabled"`
	TalkedTo        []string         `json:"talked_to"`
	Completed       []string         `json:"completed"`
	Objects         map[string]bool  `json:"objects"`
	OpenGates       []string         `json:"open_gates"`
	Givers          []giver.Snapshot `json:"givers"`
}

// Giver returns the snapshot of the named giver.
func (s Snapshot) Giver(name string) (giver.Snapshot, bool) {
	for _, g := range s.Givers {
		if g.NPC == name {
			return g, true
		}
	}
	return giver.Snapshot{}, false
}

func (w *World) snapshot() Snapshot {
	s := Snapshot{
		Resource:        w.ledger.CurrentResource(),
		MovementEnabled: w.movement.enabled(),
		TalkedTo:        w.registry.TalkedTo(),
		Completed:       w.registry.Completed(),
		Objects:         w.objects.snapshot(),
		OpenGates:       []string{},
	}
	for _, gate := range w.gates {
		if gate.opened {
			s.OpenGates = append(s.OpenGates, gate.ID)
		}
	}
	w.eachGiver(func(g *giver.Giver) {
		s.Givers = append(s.Givers, g.Snapshot())
	})
	return s
}

type nopSink struct{}

func (nopSink) ShowLine(string, string, string) {}
func (nopSink) HideDialogue()                   {}
func (nopSink) ShowChoices([]string)            {}
func (nopSink) HideChoices()                    {}
func (nopSink) SetQuestText(string, string)     {}
func (nopSink) ClearQuestText()                 {}
func (nopSink) MovementChanged(bool)            {}
func (nopSink) ObjectChanged(string, bool)      {}
