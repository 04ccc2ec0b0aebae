package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/quest"
	"gopkg.in/yaml.v3"
)

// NPCDefinition represents a quest-giving NPC in a scene file
type NPCDefinition struct {
	Name                string                 `yaml:"name"`
	Portrait            string                 `yaml:"portrait"`             // Portrait reference passed to the presenter
	Dialogue            []string               `yaml:"dialogue"`             // Primary line sequence
	ConditionalDialogue []string               `yaml:"conditional_dialogue"` // Shown while the prerequisite is unmet
	PrerequisiteNPC     string                 `yaml:"prerequisite_npc"`     // Must be talked to and have completed a quest
	Chain               string                 `yaml:"chain"`                // ID of a shared chain under chains:
	Quests              []quest.DefinitionYAML `yaml:"quests"`               // Inline chain, used when chain is empty
	Spawn               *bool                  `yaml:"spawn"`                // Spawn on scene load (default true)
}

// GateDefinition represents an exit barrier opened by registry facts
type GateDefinition struct {
	Object            string   `yaml:"object"`             // Scene object deactivated when the gate opens
	RequiresTalkedTo  []string `yaml:"requires_talked_to"` // NPC names that must have been talked to
	RequiresCompleted []string `yaml:"requires_completed"` // NPC names that must have completed a quest
}

// SceneConfig represents the structure of a scene.yaml file
type SceneConfig struct {
	StartingResource *int                              `yaml:"starting_resource"`
	Objects          map[string]bool                   `yaml:"objects"` // Initial active state by ID
	NPCs             map[string]NPCDefinition          `yaml:"npcs"`
	Gates            map[string]GateDefinition         `yaml:"gates"`
	Chains           map[string][]quest.DefinitionYAML `yaml:"chains"`
}

// NewSceneConfig returns an empty scene.
func NewSceneConfig() *SceneConfig {
	return &SceneConfig{
		Objects: make(map[string]bool),
		NPCs:    make(map[string]NPCDefinition),
		Gates:   make(map[string]GateDefinition),
		Chains:  make(map[string][]quest.DefinitionYAML),
	}
}

// LoadSceneFromYAML loads a scene from a YAML file
func LoadSceneFromYAML(filename string) (*SceneConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	config := NewSceneConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse scene YAML: %w", err)
	}
	config.ensureMaps()

	// Entries keyed by ID fall back to the ID for a missing name
	for id, def := range config.NPCs {
		if strings.TrimSpace(def.Name) == "" {
			logger.Warning("NPC auto-correction applied",
				"npc_id", id,
				"issue", "missing name",
				"action", "use id as name")
			def.Name = id
			config.NPCs[id] = def
		}
	}

	return config, nil
}

func (config *SceneConfig) ensureMaps() {
	if config.Objects == nil {
		config.Objects = make(map[string]bool)
	}
	if config.NPCs == nil {
		config.NPCs = make(map[string]NPCDefinition)
	}
	if config.Gates == nil {
		config.Gates = make(map[string]GateDefinition)
	}
	if config.Chains == nil {
		config.Chains = make(map[string][]quest.DefinitionYAML)
	}
}

// Merge combines another SceneConfig into this one. Entries in other win.
func (config *SceneConfig) Merge(other *SceneConfig) {
	if other == nil {
		return
	}
	config.ensureMaps()
	if other.StartingResource != nil {
		v := *other.StartingResource
		config.StartingResource = &v
	}
	for id, active := range other.Objects {
		config.Objects[id] = active
	}
	for id, def := range other.NPCs {
		config.NPCs[id] = def
	}
	for id, gate := range other.Gates {
		config.Gates[id] = gate
	}
	for id, defs := range other.Chains {
		config.Chains[id] = defs
	}
}

// LoadSceneFromDirectory loads and merges all YAML files from a directory
func LoadSceneFromDirectory(dir string) (*SceneConfig, error) {
	merged := NewSceneConfig()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	fileCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		filePath := filepath.Join(dir, name)
		config, err := LoadSceneFromYAML(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
		}
		merged.Merge(config)
		fileCount++
		logger.Info("Loaded scene file", "path", filePath, "npcs", len(config.NPCs))
	}

	logger.Info("Loaded scene from directory", "dir", dir, "files", fileCount, "total_npcs", len(merged.NPCs))
	return merged, nil
}

// LoadScene loads path as a single file or, if it is a directory, merges
// every YAML file in it.
func LoadScene(path string) (*SceneConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene path: %w", err)
	}
	if info.IsDir() {
		return LoadSceneFromDirectory(path)
	}
	return LoadSceneFromYAML(path)
}

// Resource returns the starting value of the shared resource counter, or
// fallback when the scene does not set one.
func (config *SceneConfig) Resource(fallback int) int {
	if config.StartingResource == nil {
		return fallback
	}
	return *config.StartingResource
}

// Definitions builds every NPC in the scene, sorted by ID. A chain reference
// that does not resolve leaves the NPC with no quests.
func (config *SceneConfig) Definitions() []Definition {
	ids := make([]string, 0, len(config.NPCs))
	for id := range config.NPCs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	defs := make([]Definition, 0, len(ids))
	for _, id := range ids {
		defs = append(defs, config.build(id, config.NPCs[id]))
	}
	return defs
}

// Definition builds the NPC with the given ID.
func (config *SceneConfig) Definition(id string) (Definition, bool) {
	def, ok := config.NPCs[id]
	if !ok {
		return Definition{}, false
	}
	return config.build(id, def), true
}

func (config *SceneConfig) build(id string, def NPCDefinition) Definition {
	steps := def.Quests
	if def.Chain != "" {
		shared, ok := config.Chains[def.Chain]
		if !ok {
			logger.Warning("Unknown quest chain, NPC has no quests", "npc", def.Name, "chain", def.Chain)
		}
		steps = shared
	}

	return Definition{
		ID:              id,
		Name:            def.Name,
		Portrait:        def.Portrait,
		Lines:           cloneLines(def.Dialogue),
		Conditional:     cloneLines(def.ConditionalDialogue),
		PrerequisiteNPC: def.PrerequisiteNPC,
		Chain:           quest.BuildChain(steps),
		AutoSpawn:       def.Spawn == nil || *def.Spawn,
	}
}

// GateList returns the scene's gates sorted by ID.
func (config *SceneConfig) GateList() []Gate {
	ids := make([]string, 0, len(config.Gates))
	for id := range config.Gates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	gates := make([]Gate, 0, len(ids))
	for _, id := range ids {
		g := config.Gates[id]
		gates = append(gates, Gate{
			ID:                id,
			Object:            g.Object,
			RequiresTalkedTo:  cloneLines(g.RequiresTalkedTo),
			RequiresCompleted: cloneLines(g.RequiresCompleted),
		})
	}
	return gates
}

// Validate reports every content gap in the scene along with the fallback
// the engine will apply. It never fails loading.
func (config *SceneConfig) Validate() []error {
	var errs []error

	names := make(map[string]bool, len(config.NPCs))
	for _, def := range config.NPCs {
		names[def.Name] = true
	}

	for _, def := range config.Definitions() {
		raw := config.NPCs[def.ID]
		if raw.Chain != "" {
			if _, ok := config.Chains[raw.Chain]; !ok {
				errs = append(errs, fmt.Errorf("npc %s: unknown chain %q, NPC has no quests", def.ID, raw.Chain))
			}
		}
		if def.PrerequisiteNPC != "" && !names[def.PrerequisiteNPC] {
			errs = append(errs, fmt.Errorf("npc %s: prerequisite %q is not in the scene, conditional dialogue always shown", def.ID, def.PrerequisiteNPC))
		}
		for _, step := range def.Chain {
			if step.Type.Kind() == quest.KindTalkToNPC && step.Type.Target() != "" && !names[step.Type.Target()] {
				errs = append(errs, fmt.Errorf("npc %s: talk target %q is not in the scene", def.ID, step.Type.Target()))
			}
		}
		for _, err := range quest.ValidateChain(def.Chain) {
			errs = append(errs, fmt.Errorf("npc %s: %w", def.ID, err))
		}
	}

	for _, gate := range config.GateList() {
		if gate.Object == "" {
			errs = append(errs, fmt.Errorf("gate %s: no object to deactivate", gate.ID))
		}
		for _, name := range append(append([]string{}, gate.RequiresTalkedTo...), gate.RequiresCompleted...) {
			if !names[name] {
				errs = append(errs, fmt.Errorf("gate %s: requires %q which is not in the scene, gate never opens", gate.ID, name))
			}
		}
	}

	return errs
}

func cloneLines(lines []string) []string {
	if len(lines) == 0 {
		return []string{}
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
