package enginemodule

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ipcMessage is one line of mpv's JSON IPC protocol. Command replies carry a
// request_id and error status; asynchronous events carry an event name.
type ipcMessage struct {
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        int             `json:"id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// ipcClient talks to one mpv instance over its JSON IPC socket. Command
// replies are correlated by request_id; asynchronous events are delivered on
// the events channel in arrival order.
type ipcClient struct {
	socketPath string
	logger     hclog.Logger

	conn   net.Conn
	events chan ipcMessage

	mu      sync.Mutex
	nextID  int
	pending map[int]chan ipcMessage
	closed  bool
}

func newIPCClient(socketPath string, logger hclog.Logger) *ipcClient {
	return &ipcClient{
		socketPath: socketPath,
		logger:     logger,
		events:     make(chan ipcMessage, 100),
		pending:    make(map[int]chan ipcMessage),
	}
}

// connect establishes the IPC connection and starts the read loop.
func (c *ipcClient) connect(ctx context.Context) error {
	conn, err := dialIPC(ctx, c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to mpv socket: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// waitForConnection retries connect until mpv creates its socket.
func (c *ipcClient) waitForConnection(ctx context.Context, maxAttempts int, retryDelay time.Duration) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := os.Stat(c.socketPath); err == nil || !socketIsFile {
			if err := c.connect(ctx); err == nil {
				c.logger.Debug("connected to mpv", "attempt", attempt)
				return nil
			} else {
				c.logger.Trace("mpv connect attempt failed", "attempt", attempt, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return fmt.Errorf("failed to connect to mpv after %d attempts", maxAttempts)
}

// readLoop reads messages until the connection closes, dispatching replies to
// their pending waiters and everything else to the events channel.
func (c *ipcClient) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()

		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Warn("failed to unmarshal mpv message", "error", err)
			continue
		}

		if msg.RequestID != 0 {
			c.mu.Lock()
			waiter, ok := c.pending[msg.RequestID]
			if ok {
				delete(c.pending, msg.RequestID)
			}
			c.mu.Unlock()

			if ok {
				waiter <- msg
			}
			continue
		}

		c.events <- msg
	}

	if err := scanner.Err(); err != nil {
		c.logger.Debug("mpv socket read ended", "error", err)
	}

	c.mu.Lock()
	c.closed = true
	for id, waiter := range c.pending {
		close(waiter)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	close(c.events)
}

// command sends one command and waits for its reply.
func (c *ipcClient) command(ctx context.Context, args ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("not connected to mpv")
	}
	c.nextID++
	requestID := c.nextID
	waiter := make(chan ipcMessage, 1)
	c.pending[requestID] = waiter
	conn := c.conn
	c.mu.Unlock()

	payload := map[string]interface{}{
		"command":    args,
		"request_id": requestID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		return nil, ctx.Err()
	case reply, ok := <-waiter:
		if !ok {
			return nil, fmt.Errorf("mpv connection closed")
		}
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("mpv command failed: %s", reply.Error)
		}
		return reply.Data, nil
	}
}

// setProperty sets an mpv property.
func (c *ipcClient) setProperty(ctx context.Context, name string, value interface{}) error {
	_, err := c.command(ctx, "set_property", name, value)
	return err
}

// getProperty reads an mpv property into out.
func (c *ipcClient) getProperty(ctx context.Context, name string, out interface{}) error {
	data, err := c.command(ctx, "get_property", name)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// observeProperty subscribes to property-change events for a property.
func (c *ipcClient) observeProperty(ctx context.Context, id int, name string) error {
	_, err := c.command(ctx, "observe_property", id, name)
	return err
}

// eventCh returns the asynchronous event channel. Closed when the connection
// drops.
func (c *ipcClient) eventCh() <-chan ipcMessage {
	return c.events
}

// close tears down the connection.
func (c *ipcClient) close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
