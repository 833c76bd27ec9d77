package inspect

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	historySize    = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	clientSendSize = 32
)

// Event is one redacted issuance notification. It deliberately carries
// only routing facts; asserted attribute values never appear here.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	RequestID string    `json:"requestId"`
	Audience  string    `json:"audience"`
	ACSURL    string    `json:"acsUrl"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed broadcasts issuance events to subscribed WebSocket clients and
// keeps a short in-memory history for late joiners.
type Feed struct {
	mu      sync.RWMutex
	clients map[*client]bool
	history []Event

	inspector *Inspector
}

// NewFeed creates an empty feed. inspector may be nil to disable the
// token inspection endpoint.
func NewFeed(inspector *Inspector) *Feed {
	return &Feed{
		clients:   make(map[*client]bool),
		inspector: inspector,
	}
}

// RegisterRoutes mounts the feed and inspector endpoints.
func (f *Feed) RegisterRoutes(r chi.Router) {
	r.Get("/ws/issuance", f.handleWebSocket)
	r.Get("/api/issuance/recent", f.handleRecent)
	if f.inspector != nil {
		r.Post("/api/inspect/token", f.handleInspect)
	}
}

// PublishIssuance records and broadcasts one issuance.
func (f *Feed) PublishIssuance(requestID, audience, acsURL string) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      "saml.issuance",
		RequestID: requestID,
		Audience:  audience,
		ACSURL:    acsURL,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.history = append(f.history, event)
	if len(f.history) > historySize {
		f.history = f.history[len(f.history)-historySize:]
	}
	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, skip
		}
	}
	f.mu.Unlock()
}

// Recent returns a copy of the retained event history.
func (f *Feed) Recent() []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Event, len(f.history))
	copy(out, f.history)
	return out
}

func (f *Feed) handleRecent(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": f.Recent()})
}

func (f *Feed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}

	f.mu.Lock()
	f.clients[c] = true
	f.mu.Unlock()

	go c.writePump()
	go f.readPump(c)

	for _, event := range f.Recent() {
		if data, err := json.Marshal(event); err == nil {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

func (f *Feed) unregister(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// readPump drains client frames so pongs are processed; the feed is
// broadcast-only.
func (f *Feed) readPump(c *client) {
	defer func() {
		f.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

type inspectRequest struct {
	Token string `json:"token"`
}

func (f *Feed) handleInspect(w http.ResponseWriter, r *http.Request) {
	var req inspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := f.inspector.Inspect(req.Token)
	if err != nil {
		core.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	core.WriteJSON(w, http.StatusOK, result)
}
