// Package bus connects a running interview to the message hub: engine
// transitions go out, cancel and status requests come in.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Broadcast addresses every listener on the hub.
const Broadcast = "ALL"

const (
	KindTransition = "transition"
	KindCancel     = "cancel"
	KindStatus     = "status"
	KindReply      = "reply"
)

type Message struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Kind    string          `json:"kind"`
	Content string          `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Conn is a websocket client that redials whenever the hub goes away.
// Send is safe for concurrent use; Run is the only reader.
type Conn struct {
	url     string
	shard   string
	backoff time.Duration
	dialer  *ws.Dialer

	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
}

func Dial(ctx context.Context, url, shard string, backoff time.Duration) (*Conn, error) {
	log.Debug("Dialing bus", "url", url)

	if backoff <= 0 {
		backoff = time.Second
	}
	c := &Conn{url: url, shard: shard, backoff: backoff, dialer: ws.DefaultDialer}

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}
	c.conn = conn

	log.Info("Connected to bus", "url", url, "shard", shard)
	return c, nil
}

func (c *Conn) Shard() string { return c.shard }

func (c *Conn) Send(m Message) error {
	if m.From == "" {
		m.From = c.shard
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("bus not connected")
	}
	log.Debug("Write bus", "msg", string(data))
	return c.conn.WriteMessage(ws.TextMessage, data)
}

// Run reads until ctx ends or Close is called, handing every message
// addressed to this shard (or broadcast) to handle. Lost connections are
// redialed.
func (c *Conn) Run(ctx context.Context, handle func(Message)) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if closed {
			return net.ErrClosed
		}
		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if c.isShut() {
				continue
			}
			if isClosed(err) {
				log.Warn("Bus closed, reconnecting", "url", c.url)
			} else {
				log.Error("Failed to read bus", "err", err)
			}
			c.drop(conn)
			continue
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Warn("Failed to parse bus message", "msg", string(raw), "err", err)
			continue
		}
		if m.To != c.shard && m.To != Broadcast {
			continue
		}
		handle(m)
	}
}

func (c *Conn) reconnect(ctx context.Context) error {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				conn.Close()
				return net.ErrClosed
			}
			c.conn = conn
			c.mu.Unlock()
			log.Info("Reconnected to bus", "url", c.url)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
}

func (c *Conn) drop(conn *ws.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Conn) isShut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
