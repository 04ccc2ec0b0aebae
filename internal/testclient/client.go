// Package testclient drives a running quest server over WebSocket for the
// integration scenarios in test/.
package testclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one decoded server event.
type Message map[string]any

// Type returns the event type.
func (m Message) Type() string {
	s, _ := m["type"].(string)
	return s
}

// String returns a string field, or "" if absent.
func (m Message) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// TestClient represents a test client connection to the quest server
type TestClient struct {
	Name     string
	conn     *websocket.Conn
	messages []Message
	seq      uint64
	mu       sync.Mutex
	writeMu  sync.Mutex
	closed   sync.Once
}

// NewTestClient connects to url (ws://host:port/ws) and waits for the
// initial snapshot.
func NewTestClient(name, url string) (*TestClient, error) {
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("failed to connect: connection limit reached")
			}
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	client := &TestClient{
		Name:     name,
		conn:     conn,
		messages: make([]Message, 0),
	}
	go client.readMessages()

	if _, ok := client.WaitFor("snapshot", nil, 2*time.Second); !ok {
		client.Close()
		return nil, fmt.Errorf("no initial snapshot")
	}
	return client, nil
}

// readMessages continuously reads messages from the server
func (c *TestClient) readMessages() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		c.mu.Unlock()
	}
}

// Send writes a command. Fields are merged into {"type": typ, "seq": n}
// and the sequence number is returned.
func (c *TestClient) Send(typ string, fields map[string]any) (uint64, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.seq++
	cmd := map[string]any{"type": typ, "seq": c.seq}
	for k, v := range fields {
		cmd[k] = v
	}
	return c.seq, c.conn.WriteJSON(cmd)
}

// SendNPC sends a command addressed to one NPC.
func (c *TestClient) SendNPC(typ, npc string) error {
	_, err := c.Send(typ, map[string]any{"npc": npc})
	return err
}

// SendRaw writes an unframed text message.
func (c *TestClient) SendRaw(data string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// GetMessages returns all messages received so far
func (c *TestClient) GetMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// ClearMessages clears the message buffer
func (c *TestClient) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]Message, 0)
}

// Find returns the first buffered message of type typ accepted by match.
// A nil match accepts any message of that type.
func (c *TestClient) Find(typ string, match func(Message) bool) (Message, bool) {
	for _, msg := range c.GetMessages() {
		if msg.Type() == typ && (match == nil || match(msg)) {
			return msg, true
		}
	}
	return nil, false
}

// WaitFor polls until Find succeeds or timeout elapses.
func (c *TestClient) WaitFor(typ string, match func(Message) bool, timeout time.Duration) (Message, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if msg, ok := c.Find(typ, match); ok {
			return msg, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// WaitForLine waits for a dialogue line whose full text contains text.
func (c *TestClient) WaitForLine(text string, timeout time.Duration) bool {
	_, ok := c.WaitFor("dialogue_line", func(m Message) bool {
		return strings.Contains(m.String("text"), text)
	}, timeout)
	return ok
}

// Close closes the client connection
func (c *TestClient) Close() error {
	var err error
	c.closed.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// PrintMessages prints all messages (for debugging)
func (c *TestClient) PrintMessages() {
	fmt.Printf("\n=== Messages for %s ===\n", c.Name)
	for i, msg := range c.GetMessages() {
		data, _ := json.Marshal(msg)
		fmt.Printf("[%d] %s\n", i, data)
	}
	fmt.Println("======================")
}
