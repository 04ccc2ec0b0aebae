// Package npc holds quest-giver content records and the scene loader that
// produces them.
package npc

import (
	"github.com/lawnchairsociety/questengine/internal/dialogue"
	"github.com/lawnchairsociety/questengine/internal/quest"
)

// Definition is a fully resolved quest-giving NPC, ready to spawn.
type Definition struct {
	ID              string
	Name            string
	Portrait        string
	Lines           []string
	Conditional     []string
	PrerequisiteNPC string
	Chain           quest.Chain
	AutoSpawn       bool
}

// Script returns the NPC's dialogue.
func (d Definition) Script() dialogue.Script {
	return dialogue.Script{Lines: d.Lines, Conditional: d.Conditional}
}

// HasQuests returns true if the NPC owns at least one quest step
func (d Definition) HasQuests() bool {
	return len(d.Chain) > 0
}

// Gate is an exit barrier: once every required fact holds, Object is
// deactivated.
type Gate struct {
	ID                string
	Object            string
	RequiresTalkedTo  []string
	RequiresCompleted []string
}

// Facts answers the registry questions a gate depends on.
type Facts interface {
	HasTalkedTo(name string) bool
	IsQuestCompletedFrom(name string) bool
}

// Open reports whether every requirement of the gate holds.
func (g Gate) Open(f Facts) bool {
	for _, name := range g.RequiresTalkedTo {
		if !f.HasTalkedTo(name) {
			return false
		}
	}
	for _, name := range g.RequiresCompleted {
		if !f.IsQuestCompletedFrom(name) {
			return false
		}
	}
	return true
}
