package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// WebSocketClient wraps one browser connection. Only writePump writes to
// the socket; everything else queues through enqueue.
type WebSocketClient struct {
	conn *websocket.Conn
	ip   string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewWebSocketClient creates a client for an upgraded connection.
func NewWebSocketClient(conn *websocket.Conn, ip string) *WebSocketClient {
	return &WebSocketClient{
		conn: conn,
		ip:   ip,
		send: make(chan []byte, sendBuffer),
	}
}

// enqueue queues a frame. A client whose buffer is full is closed rather
// than allowed to stall the world goroutine.
func (c *WebSocketClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

// Close stops the write pump, which closes the socket.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadMessage blocks for the next frame from the browser.
func (c *WebSocketClient) ReadMessage() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	return payload, err
}

// RemoteAddr returns the client IP the connection was admitted under.
func (c *WebSocketClient) RemoteAddr() string {
	return c.ip
}

func (c *WebSocketClient) prepareRead(limit int64) {
	if limit > 0 {
		c.conn.SetReadLimit(limit)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
