// Package renderer drives the compositor over a websocket. Execute and
// cancel frames go out; animation and completion frames come back and are
// resolved against the pending command set.
package renderer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattjoyce/overviewd/internal/anim"
	"github.com/mattjoyce/overviewd/internal/command"
	"github.com/mattjoyce/overviewd/internal/log"
)

// Frame is the wire message in both directions.
//
// Outbound ops: "execute", "cancel".
// Inbound ops: "animating" (a transition session started for the command),
// "done" (the command's work finished), "transition_end" (the session
// finished unwinding).
type Frame struct {
	Op     string `json:"op"`
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Focus  int    `json:"focus,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type pendingCmd struct {
	cmd  *command.Command
	done func()
}

// Client is the websocket-backed command executor.
type Client struct {
	url         string
	dialTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[string]*pendingCmd
	sessions map[string]*anim.Session
	closed   bool
	stop     chan struct{}
}

// New dials the compositor and starts the read loop.
func New(wsURL string, dialTimeout time.Duration) (*Client, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	c := &Client{
		url:         wsURL,
		dialTimeout: dialTimeout,
		logger:      log.WithComponent("renderer"),
		pending:     map[string]*pendingCmd{},
		sessions:    map[string]*anim.Session{},
		stop:        make(chan struct{}),
	}

	if err := c.connectWithRetry(); err != nil {
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// Execute sends an execute frame for cmd. Returning false defers completion
// to the done frame; a send failure completes synchronously so the queue
// keeps moving.
func (c *Client) Execute(cmd *command.Command, done func()) bool {
	c.mu.Lock()
	c.pending[cmd.ID] = &pendingCmd{cmd: cmd, done: done}
	c.mu.Unlock()

	frame := Frame{
		Op:    "execute",
		ID:    cmd.ID,
		Type:  string(cmd.Type),
		Focus: cmd.Focus(),
	}
	if err := c.send(frame); err != nil {
		c.logger.Error("execute frame send failed, completing synchronously",
			"command_id", cmd.ID, "error", err)
		c.mu.Lock()
		delete(c.pending, cmd.ID)
		c.mu.Unlock()
		return true
	}
	return false
}

// Cancel tells the compositor to unwind cmd and forgets it locally.
func (c *Client) Cancel(cmd *command.Command, reason string) {
	c.mu.Lock()
	delete(c.pending, cmd.ID)
	sess := c.sessions[cmd.ID]
	delete(c.sessions, cmd.ID)
	c.mu.Unlock()

	if sess != nil {
		sess.Cancel()
	}

	if err := c.send(Frame{Op: "cancel", ID: cmd.ID, Reason: reason}); err != nil {
		c.logger.Warn("cancel frame send failed", "command_id", cmd.ID, "error", err)
	}
}

// Close shuts the connection down and fails over any pending commands.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.failPending("client closed")
	return nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	d := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := d.Dial(c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Client) connectWithRetry() error {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to compositor", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after 10 attempts: %w", lastErr)
}

func (c *Client) send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("no websocket connection")
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil
		return err
	}
	return nil
}

// readLoop resolves inbound frames until the connection dies or Close is
// called.
func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return
		}
		if conn == nil {
			select {
			case <-c.stop:
				return
			default:
			}
			if err := c.connectWithRetry(); err != nil {
				c.logger.Error("reconnect failed, giving up", "error", err)
				c.failPending("connection lost")
				return
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
				return
			default:
			}
			c.logger.Warn("read failed, connection lost", "error", err)
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			c.failPending("connection lost")
			continue
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame Frame) {
	switch frame.Op {
	case "animating":
		c.mu.Lock()
		entry := c.pending[frame.ID]
		var sess *anim.Session
		if entry != nil {
			sess = anim.NewSession()
			c.sessions[frame.ID] = sess
		}
		c.mu.Unlock()
		if entry != nil {
			entry.cmd.AttachSession(sess)
		} else {
			c.logger.Debug("animating frame for unknown command", "command_id", frame.ID)
		}

	case "done":
		c.mu.Lock()
		entry := c.pending[frame.ID]
		delete(c.pending, frame.ID)
		c.mu.Unlock()
		if entry != nil {
			entry.done()
		} else {
			// Late or duplicate signal; the scheduler already ignores these.
			c.logger.Debug("done frame for unknown command", "command_id", frame.ID)
		}

	case "transition_end":
		c.mu.Lock()
		sess := c.sessions[frame.ID]
		delete(c.sessions, frame.ID)
		c.mu.Unlock()
		if sess != nil {
			sess.End()
		}

	default:
		c.logger.Debug("ignoring unknown frame op", "op", frame.Op)
	}
}

// failPending completes every outstanding command and cancels its session.
// The scheduler treats the completions as normal; the alternative is
// waiting out the watchdog for each one.
func (c *Client) failPending(reason string) {
	c.mu.Lock()
	pending := c.pending
	sessions := c.sessions
	c.pending = map[string]*pendingCmd{}
	c.sessions = map[string]*anim.Session{}
	c.mu.Unlock()

	for id, entry := range pending {
		c.logger.Warn("failing pending command", "command_id", id, "reason", reason)
		entry.done()
	}
	for _, sess := range sessions {
		sess.Cancel()
	}
}
