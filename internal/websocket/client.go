package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	// clients only ever send small control frames
	readLimit = 4 << 10
)

// Client is one connection of a user.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	send   chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// inbound is what a browser may send. Only {"type":"ping"} is understood;
// the reply is {"type":"pong"} on the same connection.
type inbound struct {
	Type string `json:"type"`
}

// Run serves the connection until it closes or ctx is done.
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.enqueue(Message{Type: "hello", Data: map[string]int{"connections": c.hub.UserClientCount(c.userID)}})

	go c.writeLoop(ctx)
	err := c.readLoop(ctx)

	switch status := ws.CloseStatus(err); {
	case status == ws.StatusNormalClosure, status == ws.StatusGoingAway, errors.Is(err, context.Canceled):
	default:
		c.hub.logger.Debug("websocket closed", "user_id", c.userID, "error", err)
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		// wsjson closes the connection on malformed JSON
		var in inbound
		if err := wsjson.Read(ctx, c.conn, &in); err != nil {
			return err
		}
		if in.Type == "ping" {
			c.enqueue(Message{Type: "pong"})
		}
	}
}

// enqueue never blocks; a full buffer drops the frame.
func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusGoingAway, "unregistered")
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
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

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
