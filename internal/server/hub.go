package server

import (
	"encoding/json"
	"sync"

	"github.com/lawnchairsociety/questengine/internal/logger"
)

// Hub fans presentation events out to every connected client. It is the
// world's Sink, so its methods run on the world goroutine and never block.
type Hub struct {
	mu      sync.RWMutex
	clients map[*WebSocketClient]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*WebSocketClient]struct{})}
}

func (h *Hub) add(c *WebSocketClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Debug("Client joined hub", "client_ip", c.ip, "clients", n)
}

func (h *Hub) remove(c *WebSocketClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WebSocketClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.Close()
	}
}

func (h *Hub) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.enqueue(data) {
			logger.Warning("Closing slow client", "client_ip", c.ip)
		}
	}
}

func (h *Hub) ShowLine(speaker, text, portrait string) {
	h.broadcast(lineMessage{Type: evtDialogueLine, Speaker: speaker, Text: text, Portrait: portrait})
}

func (h *Hub) HideDialogue() {
	h.broadcast(eventMessage{Type: evtDialogueHidden})
}

func (h *Hub) ShowChoices(labels []string) {
	h.broadcast(choicesMessage{Type: evtChoicesShown, Labels: labels})
}

func (h *Hub) HideChoices() {
	h.broadcast(eventMessage{Type: evtChoicesHidden})
}

func (h *Hub) SetQuestText(title, description string) {
	h.broadcast(questTextMessage{Type: evtQuestText, Title: title, Description: description})
}

func (h *Hub) ClearQuestText() {
	h.broadcast(eventMessage{Type: evtQuestTextCleared})
}

func (h *Hub) MovementChanged(enabled bool) {
	h.broadcast(movementMessage{Type: evtMovement, Enabled: enabled})
}

func (h *Hub) ObjectChanged(id string, active bool) {
	h.broadcast(objectMessage{Type: evtObjectActive, ID: id, Active: active})
}
