// Package testclient is a websocket client for the simulation service.
package testclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/riftsim/internal/rift"
	"github.com/lawnchairsociety/riftsim/internal/server"
)

// RemoteError is an error frame returned by the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server: " + e.Message
}

// frame is the client-side view of a server message.
type frame struct {
	Type   string       `json:"type"`
	Done   int          `json:"done"`
	Total  int          `json:"total"`
	Result *rift.Result `json:"result"`
	Error  string       `json:"error"`
}

// TestClient represents a connection to the simulation service.
type TestClient struct {
	Name    string
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex // One request in flight at a time
}

// Dial connects to a websocket URL such as ws://localhost:4443/ws.
func Dial(ctx context.Context, url string, header http.Header) (*TestClient, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &TestClient{
		Name:    url,
		conn:    conn,
		timeout: 2 * time.Minute,
	}, nil
}

// SetTimeout bounds how long a single request may wait for the server.
func (c *TestClient) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Simulate sends a request and waits for its result. Progress frames are passed
// to progress when it is non-nil. An error frame is returned as *RemoteError.
func (c *TestClient) Simulate(req server.Request, progress rift.ProgressFunc) (*rift.Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(data, progress)
}

// SendRaw sends an arbitrary text message and waits for the server's answer.
func (c *TestClient) SendRaw(message []byte) (*rift.Result, error) {
	return c.roundTrip(message, nil)
}

func (c *TestClient) roundTrip(message []byte, progress rift.ProgressFunc) (*rift.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		switch f.Type {
		case server.MessageProgress:
			if progress != nil {
				progress(rift.Progress{Done: f.Done, Total: f.Total})
			}
		case server.MessageResult:
			if f.Result == nil {
				return nil, errors.New("result frame without a result")
			}
			return f.Result, nil
		case server.MessageError:
			return nil, &RemoteError{Message: f.Error}
		default:
			return nil, fmt.Errorf("unexpected frame type %q", f.Type)
		}
	}
}

// Close closes the client connection.
func (c *TestClient) Close() error {
	return c.conn.Close()
}
