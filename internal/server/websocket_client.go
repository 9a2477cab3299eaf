package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/riftsim/internal/rift"
)

// Message types sent to clients.
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// Request is one simulation request as sent by a client.
// Omitted trials fall back to the server default; an omitted seed draws a fresh one.
type Request struct {
	Speed  int    `json:"speed"`
	Sync   int    `json:"sync"`
	Trials *int   `json:"trials,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
}

// Message is one server-to-client frame. Progress fields are inlined.
type Message struct {
	Type string `json:"type"`
	*rift.Progress
	Result *rift.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// WebSocketClient wraps a WebSocket connection speaking the JSON simulation protocol.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // Serializes writes
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
func NewWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{conn: conn}
}

// ReadRequest reads the next request (blocking). A malformed message returns
// a *json.SyntaxError or *json.UnmarshalTypeError; the connection stays usable.
func (c *WebSocketClient) ReadRequest() (Request, error) {
	var req Request
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(data, &req)
	return req, err
}

// WriteMessage writes one frame to the client.
func (c *WebSocketClient) WriteMessage(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// WriteProgress reports batch progress.
func (c *WebSocketClient) WriteProgress(p rift.Progress) error {
	return c.WriteMessage(Message{Type: MessageProgress, Progress: &p})
}

// WriteResult sends the final batch result.
func (c *WebSocketClient) WriteResult(res *rift.Result) error {
	return c.WriteMessage(Message{Type: MessageResult, Result: res})
}

// WriteError reports a failed request.
func (c *WebSocketClient) WriteError(msg string) error {
	return c.WriteMessage(Message{Type: MessageError, Error: msg})
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
