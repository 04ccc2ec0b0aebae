package quest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lawnchairsociety/questengine/internal/logger"
	"gopkg.in/yaml.v3"
)

// ChoiceYAML for YAML parsing
type ChoiceYAML struct {
	Label         string   `yaml:"label"`
	Result        []string `yaml:"result"`
	TriggersQuest bool     `yaml:"triggers_quest"`
	QuestIndex    int      `yaml:"quest_index"`
}

// DefinitionYAML for YAML parsing
type DefinitionYAML struct {
	Title            string       `yaml:"title"`
	Description      string       `yaml:"description"`
	Type             string       `yaml:"type"`   // none, enemy_extermination, talk_to_npc, requirement, score_checker
	Target           string       `yaml:"target"` // NPC name for talk_to_npc
	RequiredKills    int          `yaml:"required_kills"`
	RequiredDamage   int          `yaml:"required_damage"`
	RequiredResource int          `yaml:"required_resource"`
	OffersChoices    bool         `yaml:"offers_choices"`
	Choices          []ChoiceYAML `yaml:"choices"`
	StartDialogue    []string     `yaml:"start_dialogue"`
	CompleteDialogue []string     `yaml:"complete_dialogue"`
	NotMetDialogue   []string     `yaml:"not_met_dialogue"`
	Activate         []string     `yaml:"activate"`   // Scene objects enabled on completion
	Deactivate       []string     `yaml:"deactivate"` // Scene objects disabled on completion
	HasNextQuest     bool         `yaml:"has_next_quest"`
	NextQuestIndex   int          `yaml:"next_quest_index"`
}

// ChainsConfig represents a chains.yaml file: reusable quest chains by ID
type ChainsConfig struct {
	Chains map[string][]DefinitionYAML `yaml:"chains"`
}

// LoadChainsFromYAML loads quest chains from a YAML file
func LoadChainsFromYAML(filename string) (*ChainsConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains file: %w", err)
	}

	var config ChainsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse chains YAML: %w", err)
	}
	if config.Chains == nil {
		config.Chains = make(map[string][]DefinitionYAML)
	}

	return &config, nil
}

// GetChain returns a built chain by ID
func (config *ChainsConfig) GetChain(id string) (Chain, bool) {
	defs, exists := config.Chains[id]
	if !exists {
		return nil, false
	}
	return BuildChain(defs), true
}

// Merge combines another ChainsConfig into this one
func (config *ChainsConfig) Merge(other *ChainsConfig) {
	if other == nil {
		return
	}
	for id, defs := range other.Chains {
		config.Chains[id] = defs
	}
}

// LoadChainsFromDirectory loads and merges all YAML files from a directory
func LoadChainsFromDirectory(dir string) (*ChainsConfig, error) {
	merged := &ChainsConfig{
		Chains: make(map[string][]DefinitionYAML),
	}

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
		config, err := LoadChainsFromYAML(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
		}
		merged.Merge(config)
		fileCount++
		logger.Info("Loaded chain file", "path", filePath, "chains", len(config.Chains))
	}

	logger.Info("Loaded chains from directory", "dir", dir, "files", fileCount, "total_chains", len(merged.Chains))
	return merged, nil
}

// BuildChain converts YAML step definitions into a Chain
func BuildChain(defs []DefinitionYAML) Chain {
	chain := make(Chain, len(defs))
	for i := range defs {
		chain[i] = createDefinition(&defs[i])
	}
	return chain
}

// createDefinition converts a YAML definition to a Definition struct
func createDefinition(def *DefinitionYAML) Definition {
	var prompt *ChoicePrompt
	if len(def.Choices) > 0 {
		prompt = &ChoicePrompt{Choices: make([]Choice, len(def.Choices))}
		for i, c := range def.Choices {
			prompt.Choices[i] = Choice{
				Label:         c.Label,
				Result:        nonNil(c.Result),
				TriggersQuest: c.TriggersQuest,
				QuestIndex:    c.QuestIndex,
			}
		}
	}

	return Definition{
		Title:                def.Title,
		Description:          def.Description,
		Type:                 parseType(def),
		OffersChoices:        def.OffersChoices,
		Choices:              prompt,
		StartDialogue:        nonNil(def.StartDialogue),
		CompleteDialogue:     nonNil(def.CompleteDialogue),
		NotMetDialogue:       nonNil(def.NotMetDialogue),
		ActivateOnComplete:   nonNil(def.Activate),
		DeactivateOnComplete: nonNil(def.Deactivate),
		HasNextQuest:         def.HasNextQuest,
		NextQuestIndex:       def.NextQuestIndex,
	}
}

// parseType converts the type string and its matching threshold to a Type
func parseType(def *DefinitionYAML) Type {
	switch strings.ToLower(strings.TrimSpace(def.Type)) {
	case "enemy_extermination", "kill":
		return EnemyExtermination(def.RequiredKills)
	case "talk_to_npc", "talk":
		return TalkToNPC(def.Target)
	case "requirement", "damage":
		return RequirementQuest(def.RequiredDamage)
	case "score_checker", "score":
		return ScoreChecker(def.RequiredResource)
	case "", "none":
		return None()
	default:
		logger.Warning("Unknown quest type, treating as none", "type", def.Type, "title", def.Title)
		return None()
	}
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
