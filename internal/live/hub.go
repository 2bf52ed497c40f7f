package live

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is the envelope for every frame pushed to watchers.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one WebSocket watcher of one session.
type Connection struct {
	SessionID string
	UserID    int64
	Send      chan []byte
}

type sessionMessage struct {
	SessionID string
	Message   *Message
}

// Hub fans assessment events out to everyone watching a session. Watchers
// register keyed by session ID; a session can have any number of them (the
// test-taker's own client plus proctor or teacher dashboards).
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Connection]struct{}

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *sessionMessage
}

func NewHub() *Hub {
	h := &Hub{
		watchers:   make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *sessionMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.watchers[conn.SessionID] == nil {
				h.watchers[conn.SessionID] = make(map[*Connection]struct{})
			}
			h.watchers[conn.SessionID][conn] = struct{}{}
			h.mu.Unlock()
			log.Printf("[live] user %d watching session %s", conn.UserID, conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.watchers[conn.SessionID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.watchers, conn.SessionID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, _ := json.Marshal(msg.Message)
			h.mu.RLock()
			for conn := range h.watchers[msg.SessionID] {
				select {
				case conn.Send <- data:
				default:
					// Slow watcher — drop the frame rather than block the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a watcher.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a watcher and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToSession pushes one frame to every watcher of the session.
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[live] marshal %s payload: %v", msgType, err)
		return
	}
	h.broadcast <- &sessionMessage{
		SessionID: sessionID,
		Message:   &Message{Type: msgType, Payload: data},
	}
}
