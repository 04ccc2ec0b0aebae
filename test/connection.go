package test

import (
	"strings"
	"time"

	"github.com/lawnchairsociety/questengine/internal/testclient"
)

// TestBasicConnection checks that a client receives the scene snapshot
func TestBasicConnection(serverURL string) TestResult {
	const testName = "Basic Connection"

	client, err := testclient.NewTestClient(uniqueName("Conn"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	snap, _ := client.Find("snapshot", nil)
	scene, _ := snap["scene"].(map[string]any)
	givers, _ := scene["givers"].([]any)
	logResult(testName, len(givers) == 4, "snapshot lists four givers")
	if len(givers) != 4 {
		return fail(testName, "expected 4 givers, got %d", len(givers))
	}
	return pass(testName, "Connected and received snapshot")
}

// TestRejectedCommands checks unknown NPCs and malformed frames are rejected
func TestRejectedCommands(serverURL string) TestResult {
	const testName = "Rejected Commands"

	client, err := testclient.NewTestClient(uniqueName("Reject"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer client.Close()

	logAction(testName, "Interacting with an NPC that does not exist...")
	client.SendNPC("interact", "Nobody")
	rej, ok := client.WaitFor("reject", nil, eventTimeout)
	if !ok || !strings.Contains(rej.String("reason"), "unknown npc") {
		return fail(testName, "expected unknown npc reject, got %v", rej)
	}

	logAction(testName, "Sending malformed JSON...")
	client.ClearMessages()
	client.SendRaw("{oops")
	if _, ok := client.WaitFor("reject", func(m testclient.Message) bool {
		return m.String("reason") == "malformed message"
	}, eventTimeout); !ok {
		return fail(testName, "malformed message not rejected")
	}
	return pass(testName, "Bad commands rejected")
}

// TestSnapshotOnDemand checks the snapshot command answers only the sender
func TestSnapshotOnDemand(serverURL string) TestResult {
	const testName = "Snapshot On Demand"

	asker, err := testclient.NewTestClient(uniqueName("Asker"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer asker.Close()
	other, err := testclient.NewTestClient(uniqueName("Other"), serverURL)
	if err != nil {
		return fail(testName, "Connection failed: %v", err)
	}
	defer other.Close()

	asker.ClearMessages()
	other.ClearMessages()
	asker.Send("snapshot", nil)

	if _, ok := asker.WaitFor("snapshot", nil, eventTimeout); !ok {
		return fail(testName, "no snapshot reply")
	}
	time.Sleep(200 * time.Millisecond)
	if _, ok := other.Find("snapshot", nil); ok {
		return fail(testName, "snapshot leaked to another client")
	}
	return pass(testName, "Snapshot sent to requester only")
}
