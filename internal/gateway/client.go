package gateway

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	strategies map[string]bool // empty receives everything
}

func newClient(h *Hub, conn *websocket.Conn, filter string) *Client {
	c := &Client{conn: conn, send: make(chan []byte, 64), hub: h, strategies: map[string]bool{}}
	for _, s := range strings.Split(filter, ",") {
		if s = strings.TrimSpace(s); s != "" {
			c.strategies[s] = true
		}
	}
	return c
}

func (c *Client) wants(strategy string) bool {
	return len(c.strategies) == 0 || c.strategies[strategy]
}

// sendInitialState queues the latest envelope of each wanted channel.
func (c *Client) sendInitialState() {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	for channel, e := range c.hub.latest {
		if !c.wants(StrategyOf(channel)) {
			continue
		}
		select {
		case c.send <- e.Envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump handles pings and strategy filter updates of the form
// {"strategies":["value"]}.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		slog.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			Strategies []string `json:"strategies"`
		}
		if json.Unmarshal(msg, &req) != nil {
			continue
		}
		filter := make(map[string]bool, len(req.Strategies))
		for _, s := range req.Strategies {
			filter[s] = true
		}
		c.hub.mu.Lock()
		c.strategies = filter
		c.hub.mu.Unlock()
	}
}
