package client

import (
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay   = 1 * time.Second
	maxReconnectAttempts = 5
	writeTimeout         = 10 * time.Second
	readTimeout          = 60 * time.Second
	pingInterval         = 30 * time.Second
)

// ConnState is the event feed connection state.
type ConnState string

const (
	StateClosed       ConnState = "closed"
	StateConnecting   ConnState = "connecting"
	StateOpen         ConnState = "open"
	StateReconnecting ConnState = "reconnecting"
)

// EventHandler receives one decoded event.
type EventHandler func(Event)

// ErrNotConnected is returned by Subscribe when the feed is not open.
var ErrNotConnected = errors.New("event feed not connected")

// EventClient maintains a single connection to the /ws event feed and
// fans decoded events out to handlers by type. Unexpected drops trigger
// linear backoff (1s, 2s, ... for up to 5 attempts); after that the
// feed stays closed until Connect is called again.
type EventClient struct {
	api       *Client
	dialer    *websocket.Dialer
	baseDelay time.Duration

	mu       sync.Mutex
	state    ConnState
	conn     *websocket.Conn
	gen      int // bumped by Connect/Disconnect; stale goroutines exit
	attempts int
	retry    *time.Timer
	handlers map[EventType][]handlerEntry
	nextID   int
	lastSub  []EventType
	watchers map[int]func(ConnState)

	writeMu sync.Mutex // serialises conn writes (subscribe, ping, close)
}

type handlerEntry struct {
	id int
	fn EventHandler
}

// NewEventClient derives the feed endpoint from the REST client's base
// URL and shares its cookie jar and bearer token.
func NewEventClient(api *Client) *EventClient {
	return &EventClient{
		api: api,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Jar:              api.http.Jar,
		},
		baseDelay: reconnectBaseDelay,
		state:     StateClosed,
		handlers:  make(map[EventType][]handlerEntry),
	}
}

// feedURL converts the REST base URL into the ws endpoint, carrying the
// bearer token as a query parameter when one is set. Cookie-mode auth
// rides on the shared jar instead.
func (c *EventClient) feedURL() string {
	base := c.api.BaseURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	u := base + "/ws"
	if token := c.api.Token(); token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

// Connect opens the feed. It is a no-op while the connection is open or
// a dial is already in flight. An explicit call resets the attempt
// counter, so a feed that gave up can be restarted.
func (c *EventClient) Connect() {
	c.mu.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.mu.Unlock()

	c.notifyState(StateConnecting)
	go c.dial(gen)
}

// Disconnect closes the feed and cancels any scheduled reconnect. A
// disconnect is a hard stop: the feed stays closed until the next
// explicit Connect.
func (c *EventClient) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	conn := c.conn
	c.conn = nil
	c.attempts = 0
	changed := c.state != StateClosed
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	if changed {
		c.notifyState(StateClosed)
	}
}

// Subscribe declares interest in the given event types. When the feed
// is open the declaration is sent immediately and replayed after every
// reconnect; otherwise nothing is sent and ErrNotConnected is returned.
func (c *EventClient) Subscribe(types ...EventType) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	if open {
		c.lastSub = append([]EventType(nil), types...)
	}
	c.mu.Unlock()
	if !open || conn == nil {
		return ErrNotConnected
	}
	return c.sendSubscribe(conn, types)
}

// On registers a handler for one event type and returns the function
// that unregisters it. Multiple handlers per type all fire.
func (c *EventClient) On(t EventType, fn EventHandler) (off func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[t] = append(c.handlers[t], handlerEntry{id: id, fn: fn})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.handlers[t]
		for i, e := range entries {
			if e.id == id {
				c.handlers[t] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
	}
}

// OnStateChange registers an observer for state transitions. The
// returned function unregisters it.
func (c *EventClient) OnStateChange(fn func(ConnState)) func() {
	c.mu.Lock()
	if c.watchers == nil {
		c.watchers = make(map[int]func(ConnState))
	}
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// State returns the current connection state.
func (c *EventClient) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *EventClient) dial(gen int) {
	conn, _, err := c.dialer.Dial(c.feedURL(), nil)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return // superseded by Disconnect or a newer Connect
	}
	if err != nil {
		c.mu.Unlock()
		c.scheduleReconnect(gen, err)
		return
	}
	c.conn = conn
	c.attempts = 0
	c.state = StateOpen
	sub := append([]EventType(nil), c.lastSub...)
	c.mu.Unlock()

	c.notifyState(StateOpen)
	if len(sub) > 0 {
		if err := c.sendSubscribe(conn, sub); err != nil {
			log.Printf("ws: resubscribe failed: %v", err)
		}
	}
	go c.readLoop(conn, gen)
	go c.pingLoop(conn, gen)
}

// scheduleReconnect runs after a failed dial or an unexpected close.
func (c *EventClient) scheduleReconnect(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.attempts >= maxReconnectAttempts {
		c.state = StateClosed
		c.retry = nil
		c.mu.Unlock()
		c.notifyState(StateClosed)
		log.Printf("ws: giving up after %d attempts: %v", maxReconnectAttempts, cause)
		return
	}
	c.attempts++
	delay := c.reconnectDelay()
	c.state = StateReconnecting
	c.retry = time.AfterFunc(delay, func() { c.dial(gen) })
	c.mu.Unlock()

	c.notifyState(StateReconnecting)
	log.Printf("ws: %v (reconnect %d/%d in %v)", cause, c.attempts, maxReconnectAttempts, delay)
}

// reconnectDelay is linear in the attempt number: 1s, 2s, 3s, 4s, 5s.
func (c *EventClient) reconnectDelay() time.Duration {
	return c.baseDelay * time.Duration(c.attempts)
}

func (c *EventClient) readLoop(conn *websocket.Conn, gen int) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.mu.Lock()
			stale := gen != c.gen
			if !stale && c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if stale {
				return
			}
			c.scheduleReconnect(gen, err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var env eventEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("ws: malformed message: %v", err)
			continue
		}
		if env.EventType == "" {
			continue // control reply (pong, subscription ack)
		}
		evt, err := decodeEvent(env)
		if err != nil {
			if !errors.Is(err, errUnknownEvent) {
				log.Printf("ws: dropping event: %v", err)
			}
			continue
		}
		c.dispatch(evt)
	}
}

// dispatch invokes handlers on the read goroutine, preserving arrival
// order. Events with no registered handler are dropped.
func (c *EventClient) dispatch(evt Event) {
	c.mu.Lock()
	entries := append([]handlerEntry(nil), c.handlers[evt.Type]...)
	c.mu.Unlock()
	for _, e := range entries {
		e.fn(evt)
	}
}

// pingLoop sends the backend's application-level heartbeat. The pong
// reply resets the read deadline like any other inbound message.
func (c *EventClient) pingLoop(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		stale := gen != c.gen || c.conn != conn
		c.mu.Unlock()
		if stale {
			return
		}
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := conn.WriteJSON(map[string]string{"action": "ping"})
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (c *EventClient) sendSubscribe(conn *websocket.Conn, types []EventType) error {
	msg := struct {
		Action     string      `json:"action"`
		EventTypes []EventType `json:"event_types"`
	}{Action: "subscribe", EventTypes: types}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (c *EventClient) notifyState(s ConnState) {
	c.mu.Lock()
	fns := make([]func(ConnState), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
