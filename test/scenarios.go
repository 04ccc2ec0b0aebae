// Package test holds integration scenarios run by cmd/testrunner against a
// live questd serving data/scene.yaml. Scenarios share one world and run
// in order: later ones rely on the registry facts earlier ones establish.
package test

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/questengine/internal/testclient"
)

var uniqueCounter uint64

// uniqueName generates a unique client name for tests
func uniqueName(base string) string {
	counter := atomic.AddUint64(&uniqueCounter, 1)
	return fmt.Sprintf("%s%d", base, counter)
}

// Verbose controls whether detailed test actions are printed
var Verbose = false

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func fail(name, format string, args ...any) TestResult {
	return TestResult{Name: name, Passed: false, Message: fmt.Sprintf(format, args...)}
}

func pass(name, message string) TestResult {
	return TestResult{Name: name, Passed: true, Message: message}
}

const (
	eventTimeout = 2 * time.Second
	// Completion lines dwell for 1.5s each in the stock config.
	completionTimeout = 5 * time.Second
)

// talkUntil keeps interacting with npc until an event of type typ arrives.
// Each interact either reveals a typing line or advances to the next one.
func talkUntil(client *testclient.TestClient, npc, typ string, match func(testclient.Message) bool) (testclient.Message, bool) {
	for i := 0; i < 12; i++ {
		if msg, ok := client.Find(typ, match); ok {
			return msg, true
		}
		client.SendNPC("interact", npc)
		time.Sleep(150 * time.Millisecond)
	}
	return client.WaitFor(typ, match, eventTimeout)
}

// RunAllTests runs all integration tests and returns the results
func RunAllTests(serverURL string) []TestResult {
	results := make([]TestResult, 0)

	// Group 1: Connection
	results = append(results, TestBasicConnection(serverURL))
	results = append(results, TestRejectedCommands(serverURL))
	results = append(results, TestSnapshotOnDemand(serverURL))

	// Group 2: Quests (order matters)
	results = append(results, TestPrerequisiteNotMet(serverURL))
	results = append(results, TestWarriorConversation(serverURL))
	results = append(results, TestElfChain(serverURL))
	results = append(results, TestSmithChoices(serverURL))
	results = append(results, TestMerchantScoreChecker(serverURL))
	results = append(results, TestExitGateOpen(serverURL))

	return results
}

// PrintResults prints all test results in a formatted way
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
