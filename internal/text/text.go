// Package text provides loading and lookup for externalized text blocks.
package text

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/lawnchairsociety/questengine/internal/quest"
	"github.com/muesli/reflow/wordwrap"
	"gopkg.in/yaml.v3"
)

// TextData represents the structure of the text.yaml file.
type TextData struct {
	Dialogue DialogueText `yaml:"dialogue"`
	Progress ProgressText `yaml:"progress"`
}

// DialogueText contains fallback dialogue strings.
type DialogueText struct {
	Placeholder string `yaml:"placeholder"`
	WrapWidth   int    `yaml:"wrap_width"` // 0 leaves lines unwrapped
}

// ProgressText contains quest UI counter templates. Counter templates take
// the current value then the threshold; Talk takes the target name.
type ProgressText struct {
	Kills    string `yaml:"kills"`
	Damage   string `yaml:"damage"`
	Resource string `yaml:"resource"`
	Talk     string `yaml:"talk"`
	Complete string `yaml:"complete"`
}

// Defaults returns the built-in strings used when no text file is loaded or
// a key is missing from it.
func Defaults() TextData {
	return TextData{
		Dialogue: DialogueText{
			Placeholder: "...",
		},
		Progress: ProgressText{
			Kills:    "Kills: %d/%d",
			Damage:   "Damage: %d/%d",
			Resource: "Gold: %d/%d",
			Talk:     "Talk to %s",
			Complete: "Complete!",
		},
	}
}

// Text provides text lookup functionality.
type Text struct {
	data *TextData
	mu   sync.RWMutex
}

// New returns a Text backed by the built-in strings.
func New() *Text {
	d := Defaults()
	return &Text{data: &d}
}

// Load loads text data from a YAML file. Keys missing from the file keep
// their built-in value.
func Load(path string) (*Text, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	textData := Defaults()
	if err := yaml.Unmarshal(data, &textData); err != nil {
		return nil, fmt.Errorf("failed to parse text file: %w", err)
	}

	return &Text{data: &textData}, nil
}

// LoadOrDefault loads path, falling back to the built-in strings when the
// file does not exist.
func LoadOrDefault(path string) (*Text, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return Load(path)
}

// SetPlaceholder overrides the placeholder line. Blank values are ignored.
func (t *Text) SetPlaceholder(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Dialogue.Placeholder = line
}

// SetWrapWidth sets the column dialogue lines are wrapped at. Values below
// 1 disable wrapping.
func (t *Text) SetWrapWidth(width int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Dialogue.WrapWidth = width
}

// Wrap word-wraps each line to the configured width. The input is not
// modified; with wrapping disabled it is returned as is.
func (t *Text) Wrap(lines []string) []string {
	t.mu.RLock()
	width := t.data.Dialogue.WrapWidth
	t.mu.RUnlock()

	if width < 1 || len(lines) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = wordwrap.String(line, width)
	}
	return out
}

// Placeholder returns the line shown for an empty dialogue sequence.
func (t *Text) Placeholder() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return strings.TrimSpace(t.data.Dialogue.Placeholder)
}

// ProgressLine returns the live counter line for a quest step, e.g.
// "Kills: 2/3". Steps without an objective return "".
func (t *Text) ProgressLine(qt quest.Type, p quest.Progress, resource int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tpl := t.data.Progress
	switch qt.Kind() {
	case quest.KindEnemyExtermination:
		return fmt.Sprintf(tpl.Kills, p.Kills, qt.Threshold())
	case quest.KindRequirement:
		return fmt.Sprintf(tpl.Damage, p.Damage, qt.Threshold())
	case quest.KindScoreChecker:
		return fmt.Sprintf(tpl.Resource, resource, qt.Threshold())
	case quest.KindTalkToNPC:
		if p.Talked {
			return tpl.Complete
		}
		return fmt.Sprintf(tpl.Talk, qt.Target())
	default:
		return ""
	}
}

// Description returns the quest UI description for a step: its authored
// description followed by the progress line.
func (t *Text) Description(def *quest.Definition, p quest.Progress, resource int) string {
	line := t.ProgressLine(def.Type, p, resource)
	desc := strings.TrimSpace(def.Description)
	switch {
	case line == "":
		return desc
	case desc == "":
		return line
	default:
		return desc + "\n" + line
	}
}
