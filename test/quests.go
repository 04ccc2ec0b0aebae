package test

import (
	"strings"
	"time"

	"github.com/lawnchairsociety/questengine/internal/testclient"
)

func hasLine(text string) func(testclient.Message) bool {
	return func(m testclient.Message) bool {
		return strings.Contains(m.String("text"), text)
	}
}

func hasTitle(title string) func(testclient.Message) bool {
	return func(m testclient.Message) bool {
		return m.String("title") == title
	}
}

func sceneList(snap testclient.Message, key string) []string {
	scene, _ := snap["scene"].(map[string]any)
	raw, _ := scene[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// TestPrerequisiteNotMet checks the Smith refuses work before the Elf is done
func TestPrerequisiteNotMet(serverURL string) TestResult {
	const testName = "Prerequisite Not Met"

	client, err := testclient.NewTestClient(uniqueName("Prereq"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	client.SendNPC("enter_range", "Smith")
	defer client.SendNPC("exit_range", "Smith")

	logAction(testName, "Talking to the Smith before helping the Elf...")
	if _, ok := talkUntil(client, "Smith", "dialogue_line", hasLine("friends of the elf")); !ok {
		return fail(testName, "conditional dialogue not shown")
	}
	if _, ok := talkUntil(client, "Smith", "dialogue_hidden", nil); !ok {
		return fail(testName, "conversation did not close")
	}

	client.ClearMessages()
	client.Send("snapshot", nil)
	snap, ok := client.WaitFor("snapshot", nil, eventTimeout)
	if !ok {
		return fail(testName, "no snapshot")
	}
	talked := sceneList(snap, "talked_to")
	logResult(testName, !contains(talked, "Smith"), "Smith not marked as talked to")
	if contains(talked, "Smith") {
		return fail(testName, "Smith marked as talked to with prerequisite unmet: %v", talked)
	}
	return pass(testName, "Conditional dialogue shown")
}

// TestWarriorConversation talks to the Warrior so the Elf's first step is
// already satisfied when it starts.
func TestWarriorConversation(serverURL string) TestResult {
	const testName = "Warrior Conversation"

	client, err := testclient.NewTestClient(uniqueName("Warrior"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	client.SendNPC("enter_range", "Warrior")
	defer client.SendNPC("exit_range", "Warrior")

	if _, ok := talkUntil(client, "Warrior", "dialogue_line", hasLine("The elf sent you?")); !ok {
		return fail(testName, "Warrior line not shown")
	}
	if _, ok := talkUntil(client, "Warrior", "dialogue_hidden", nil); !ok {
		return fail(testName, "conversation did not close")
	}
	return pass(testName, "Talked to the Warrior")
}

// TestElfChain runs the Elf's talk step (already satisfied) into the kill step
func TestElfChain(serverURL string) TestResult {
	const testName = "Elf Chain"

	client, err := testclient.NewTestClient(uniqueName("Elf"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	client.SendNPC("enter_range", "Elf")
	defer client.SendNPC("exit_range", "Elf")

	logAction(testName, "Talking to the Elf; the talk step should complete at once...")
	if _, ok := talkUntil(client, "Elf", "dialogue_line", hasLine("So he still stands")); !ok {
		return fail(testName, "talk step did not complete")
	}
	if mv, ok := client.WaitFor("movement", nil, eventTimeout); !ok || mv["enabled"] != false {
		return fail(testName, "movement not locked during completion")
	}

	logAction(testName, "Waiting for the kill step to start...")
	if _, ok := client.WaitFor("quest_text", hasTitle("Thin the Pack"), completionTimeout); !ok {
		return fail(testName, "kill step did not start after completion")
	}

	client.ClearMessages()
	client.Send("enemy_killed", nil)
	if !client.WaitForLine("The path is clear", eventTimeout) {
		return fail(testName, "kill step did not complete")
	}
	if _, ok := client.WaitFor("quest_text_cleared", nil, completionTimeout); !ok {
		return fail(testName, "quest text not cleared after completion")
	}
	return pass(testName, "Both Elf steps completed")
}

// TestSmithChoices picks the strength trial from the Smith's choice prompt
func TestSmithChoices(serverURL string) TestResult {
	const testName = "Smith Choices"

	client, err := testclient.NewTestClient(uniqueName("Smith"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	client.SendNPC("enter_range", "Smith")
	defer client.SendNPC("exit_range", "Smith")

	prompt, ok := talkUntil(client, "Smith", "choices_shown", nil)
	if !ok {
		return fail(testName, "choice prompt not shown")
	}
	labels, _ := prompt["labels"].([]any)
	logResult(testName, len(labels) == 3, "three choices offered")
	if len(labels) != 3 {
		return fail(testName, "expected 3 choices, got %v", labels)
	}

	client.ClearMessages()
	client.Send("select_choice", map[string]any{"npc": "Smith", "key": "1"})
	if !client.WaitForLine("Strike the dummy", eventTimeout) {
		return fail(testName, "choice result not shown")
	}
	if _, ok := talkUntil(client, "Smith", "quest_text", hasTitle("Strength Trial")); !ok {
		return fail(testName, "chosen quest did not start")
	}

	client.Send("damage", map[string]any{"amount": 25})
	client.Send("damage", map[string]any{"amount": 25})
	if !client.WaitForLine("Solid blows", eventTimeout) {
		return fail(testName, "damage quest did not complete")
	}
	return pass(testName, "Choice jumped to the strength trial")
}

// TestMerchantScoreChecker raises the shared resource to complete a quest
func TestMerchantScoreChecker(serverURL string) TestResult {
	const testName = "Merchant Score Checker"

	client, err := testclient.NewTestClient(uniqueName("Merchant"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	client.SendNPC("enter_range", "Merchant")
	defer client.SendNPC("exit_range", "Merchant")

	if _, ok := talkUntil(client, "Merchant", "quest_text", hasTitle("Coin for the Road")); !ok {
		return fail(testName, "score quest did not start")
	}

	logAction(testName, "Talking again while short of gold...")
	client.ClearMessages()
	if _, ok := talkUntil(client, "Merchant", "dialogue_line", hasLine("Fifty gold")); !ok {
		return fail(testName, "not-met dialogue not shown")
	}
	if _, ok := talkUntil(client, "Merchant", "dialogue_hidden", nil); !ok {
		return fail(testName, "conversation did not close")
	}

	client.ClearMessages()
	client.Send("add_resource", map[string]any{"delta": 50})
	if !client.WaitForLine("That will do nicely", eventTimeout) {
		return fail(testName, "score quest did not complete")
	}
	if _, ok := client.WaitFor("object_active", func(m testclient.Message) bool {
		return m.String("id") == "reward_chest" && m["active"] == true
	}, eventTimeout); !ok {
		return fail(testName, "reward chest not activated")
	}

	logAction(testName, "Waiting for the next step's start dialogue...")
	if !client.WaitForLine("One more thing", completionTimeout) {
		return fail(testName, "next step start dialogue not shown")
	}
	return pass(testName, "Resource threshold completed the quest")
}

// TestExitGateOpen checks the clearing exit opened once its facts held
func TestExitGateOpen(serverURL string) TestResult {
	const testName = "Exit Gate Open"

	client, err := testclient.NewTestClient(uniqueName("Gate"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	// Gates are evaluated on the next tick.
	time.Sleep(200 * time.Millisecond)
	client.ClearMessages()
	client.Send("snapshot", nil)
	snap, ok := client.WaitFor("snapshot", nil, eventTimeout)
	if !ok {
		return fail(testName, "no snapshot")
	}
	gates := sceneList(snap, "open_gates")
	if !contains(gates, "clearing_exit") {
		return fail(testName, "clearing_exit not open: %v", gates)
	}
	scene, _ := snap["scene"].(map[string]any)
	objects, _ := scene["objects"].(map[string]any)
	if objects["exit_barrier"] != false {
		return fail(testName, "exit_barrier still active: %v", objects)
	}
	return pass(testName, "Exit barrier removed")
}
