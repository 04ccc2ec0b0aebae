package server

import "github.com/lawnchairsociety/questengine/internal/world"

// Client commands.
const (
	cmdEnterRange   = "enter_range"
	cmdExitRange    = "exit_range"
	cmdInteract     = "interact"
	cmdSelectChoice = "select_choice"
	cmdEnemyKilled  = "enemy_killed"
	cmdDamage       = "damage"
	cmdAddResource  = "add_resource"
	cmdSnapshot     = "snapshot"
)

// Server events.
const (
	evtDialogueLine     = "dialogue_line"
	evtDialogueHidden   = "dialogue_hidden"
	evtChoicesShown     = "choices_shown"
	evtChoicesHidden    = "choices_hidden"
	evtQuestText        = "quest_text"
	evtQuestTextCleared = "quest_text_cleared"
	evtMovement         = "movement"
	evtObjectActive     = "object_active"
	evtSnapshot         = "snapshot"
	evtAck              = "ack"
	evtReject           = "reject"
)

type clientMessage struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	NPC    string `json:"npc,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Key    string `json:"key,omitempty"`
	Amount int    `json:"amount,omitempty"`
	Delta  int    `json:"delta,omitempty"`
}

type eventMessage struct {
	Type string `json:"type"`
}

type lineMessage struct {
	Type     string `json:"type"`
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	Portrait string `json:"portrait,omitempty"`
}

type choicesMessage struct {
	Type   string   `json:"type"`
	Labels []string `json:"labels"`
}

type questTextMessage struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type movementMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type objectMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

type snapshotMessage struct {
	Type  string         `json:"type"`
	Scene world.Snapshot `json:"scene"`
}

type ackMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

type rejectMessage struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Reason string `json:"reason"`
}
