// Package gateway pushes published selections to WebSocket subscribers.
// It follows the Redis pub:selection:* channels and keeps the latest
// envelope per channel so new clients start from current state.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// SelectionPattern matches every strategy's selection channel.
const SelectionPattern = "pub:selection:*"

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub fans selection messages out to connected clients.
type Hub struct {
	rdb goredis.UniversalClient

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64
}

type latestEntry struct {
	Envelope []byte
	TS       time.Time
}

// NewHub creates a Hub. rdb may be nil when messages are fed through
// Broadcast directly.
func NewHub(rdb goredis.UniversalClient) *Hub {
	return &Hub{
		rdb:     rdb,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Run subscribes to the selection channels. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.rdb.PSubscribe(ctx, SelectionPattern)
	defer pubsub.Close()
	slog.Info("gateway subscribed", "pattern", SelectionPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Broadcast wraps data in an envelope and queues it for every client
// watching the channel's strategy. Slow clients drop messages.
func (h *Hub) Broadcast(channel string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.seq++
	buf := envelope(channel, data, now, h.seq)
	h.latest[channel] = latestEntry{Envelope: buf, TS: now}
	h.mu.Unlock()

	strategy := StrategyOf(channel)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(strategy) {
			continue
		}
		select {
		case c.send <- buf:
		default:
		}
	}
}

// envelope hand-builds {"channel":..,"data":..,"ts":..,"seq":N}. data is
// embedded as is when it is valid JSON and as a string otherwise.
func envelope(channel string, data []byte, now time.Time, seq int64) []byte {
	name, _ := json.Marshal(channel)
	if !json.Valid(data) {
		data, _ = json.Marshal(string(data))
	}
	buf := make([]byte, 0, len(name)+len(data)+96)
	buf = append(buf, `{"channel":`...)
	buf = append(buf, name...)
	buf = append(buf, `,"data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}

// StrategyOf returns the strategy name of a selection channel, or "".
func StrategyOf(channel string) string {
	s, ok := strings.CutPrefix(channel, "pub:selection:")
	if !ok {
		return ""
	}
	return s
}

// ServeHTTP upgrades the request to a WebSocket. The optional
// ?strategy=a,b query limits delivery to those strategies.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	c := newClient(h, conn, r.URL.Query().Get("strategy"))

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	slog.Info("ws client connected", "clients", count)

	c.sendInitialState()
	go c.writePump()
	go c.readPump()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Latest returns the last envelope per channel.
func (h *Hub) Latest() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		out[k] = v.Envelope
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
