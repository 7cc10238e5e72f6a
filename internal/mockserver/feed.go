package mockserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// eventFrame is the outbound event envelope.
type eventFrame struct {
	EventType client.EventType `json:"event_type"`
	Data      any              `json:"data"`
}

// feedAction is an inbound control frame from a dashboard.
type feedAction struct {
	Action     string             `json:"action"`
	EventTypes []client.EventType `json:"event_types"`
}

// feedConn is one dashboard connection. All outbound frames go through
// the send channel so control replies never interleave with broadcasts.
type feedConn struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	subs map[client.EventType]bool // nil until the first subscribe = everything
}

func newFeedConn(conn *websocket.Conn) *feedConn {
	c := &feedConn{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *feedConn) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *feedConn) setSubs(types []client.EventType) {
	subs := make(map[client.EventType]bool, len(types))
	for _, t := range types {
		subs[t] = true
	}
	c.mu.Lock()
	c.subs = subs
	c.mu.Unlock()
}

func (c *feedConn) wants(evt client.EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		return true
	}
	return c.subs[evt]
}

// reply queues a control frame, dropping it when the connection is
// backed up. Replies carry no event_type so feed clients skip them.
func (c *feedConn) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// hub fans events out to connected dashboards and answers the feed's
// control frames (subscribe, ping).
type hub struct {
	mu    sync.RWMutex
	conns map[*feedConn]bool
}

func newHub() *hub {
	return &hub{conns: make(map[*feedConn]bool)}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newFeedConn(conn)
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()

	defer h.remove(c)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var act feedAction
		if err := json.Unmarshal(data, &act); err != nil {
			c.reply(map[string]string{"status": "error", "message": "malformed frame"})
			continue
		}
		switch act.Action {
		case "ping":
			c.reply(map[string]string{"status": "pong"})
		case "subscribe":
			c.setSubs(act.EventTypes)
			c.reply(map[string]any{"status": "subscribed", "event_types": act.EventTypes})
		default:
			c.reply(map[string]string{"status": "error", "message": "unknown action"})
		}
	}
}

func (h *hub) remove(c *feedConn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends one event to every connection subscribed to its type.
// A connection that cannot keep up is dropped.
func (h *hub) Broadcast(evt client.EventType, data any) {
	raw, err := json.Marshal(eventFrame{EventType: evt, Data: data})
	if err != nil {
		log.Printf("mockserver: marshal %s: %v", evt, err)
		return
	}

	h.mu.RLock()
	conns := make([]*feedConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.wants(evt) {
			continue
		}
		select {
		case c.send <- raw:
		default:
			log.Printf("mockserver: feed client too slow, dropping")
			h.remove(c)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*feedConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*feedConn]bool)
	h.mu.Unlock()
	for _, c := range conns {
		close(c.send)
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
