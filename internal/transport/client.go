// Package transport speaks the assistant gateway's wire protocol: one JSON
// object per line in both directions over a stream socket. It owns nothing of
// the conversation; decoded events and connection-loss notices are handed to
// callbacks and applied elsewhere.
package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"vectoraiz/internal/assist"
)

const dialTimeout = 3 * time.Second

// Handlers receive the channel's inbound traffic. Callers are responsible for
// marshalling these onto their own event loop; the client invokes them from
// its reader goroutine.
type Handlers struct {
	Event func(ev assist.Event)
	Down  func(err error)
	Logf  func(format string, args ...any)
}

// Client maintains one connection to the assistant gateway.
type Client struct {
	network string
	addr    string
	h       Handlers

	mu   sync.Mutex
	conn net.Conn
	gen  int
}

// New prepares a client for addr. addr may carry a "unix:" prefix; anything
// else dials tcp.
func New(addr string, h Handlers) *Client {
	network := "tcp"
	if rest, ok := strings.CutPrefix(addr, "unix:"); ok {
		network = "unix"
		addr = rest
	}
	if h.Logf == nil {
		h.Logf = func(string, ...any) {}
	}
	return &Client{network: network, addr: addr, h: h}
}

// Dial connects and starts the reader. A previous connection, if any, is
// closed first; its reader notices and exits without reporting a loss.
func (c *Client) Dial() error {
	conn, err := net.DialTimeout(c.network, c.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", c.network, c.addr, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.readLoop(conn, gen)
	return nil
}

func (c *Client) readLoop(conn net.Conn, gen int) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			c.reportDown(gen, err)
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		ev, err := assist.Decode([]byte(trimmed))
		if err != nil {
			// A bad frame never kills the stream.
			c.h.Logf("transport: dropped frame: %v", err)
			continue
		}
		if c.h.Event != nil {
			c.h.Event(ev)
		}
	}
}

// reportDown surfaces a connection loss unless this reader was superseded by
// a newer Dial, in which case its error is just the old socket closing.
func (c *Client) reportDown(gen int, err error) {
	c.mu.Lock()
	stale := gen != c.gen
	if !stale {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.conn = nil
	}
	c.mu.Unlock()

	if stale {
		return
	}
	c.h.Logf("transport: connection lost: %v", err)
	if c.h.Down != nil {
		c.h.Down(err)
	}
}

// Close shuts the connection down without reporting a loss.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

var errNotConnected = errors.New("transport: not connected")

func (c *Client) writeFrame(frame map[string]any) error {
	buf, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	if _, err := c.conn.Write(append(buf, '\n')); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// SendText opens a turn on the backend.
func (c *Client) SendText(text string) error {
	return c.writeFrame(map[string]any{"op": "send", "text": text})
}

// Abort tells the backend to stop the in-flight turn.
func (c *Client) Abort() error {
	return c.writeFrame(map[string]any{"op": "abort"})
}

// Confirm consumes an approval token.
func (c *Client) Confirm(confirmID string) error {
	return c.writeFrame(map[string]any{"op": "confirm", "confirm_id": confirmID})
}

// DismissNudge reports a dismissal so the backend stops re-sending the nudge.
func (c *Client) DismissNudge(nudgeID string, permanent bool) error {
	return c.writeFrame(map[string]any{"op": "dismiss_nudge", "nudge_id": nudgeID, "permanent": permanent})
}
