package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gridplane/gridplane/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	sendBuffer = 256
)

// Client is one websocket connection to a session.
type Client struct {
	session  *Session
	conn     *websocket.Conn
	send     chan []byte
	Viewer   auth.Viewer
	ClientID string

	closeOnce sync.Once
}

func NewClient(s *Session, conn *websocket.Conn, viewer auth.Viewer, clientID string) *Client {
	return &Client{
		session:  s,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		Viewer:   viewer,
		ClientID: clientID,
	}
}

// ReadPump forwards incoming messages to the session until the connection
// closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.session.Leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "viewer", c.Viewer.ID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "viewer", c.Viewer.ID)
			continue
		}

		msg.ViewerID = c.Viewer.ID
		msg.ClientID = c.ClientID
		msg.SessionID = c.session.ID

		if !c.session.Receive(c, &msg) {
			return
		}
	}
}

// WritePump writes queued messages and pings until the send channel closes.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "viewer", c.Viewer.ID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg without blocking. Only the session goroutine calls it.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "viewer", c.Viewer.ID, "type", msg.Type)
	}
}

// Outbox exposes the queued outgoing messages. WritePump is its usual reader.
func (c *Client) Outbox() <-chan []byte { return c.send }

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// drop disconnects a client that never joined; its pumps then exit.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close(websocket.StatusGoingAway, "session unavailable")
	}
}
