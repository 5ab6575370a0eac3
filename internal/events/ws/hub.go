// Package ws pushes committed ride events to WebSocket clients watching a
// particular ride.
//
// Go Learning Note — One Writer per Connection:
// gorilla/websocket allows at most one concurrent writer per connection. Each
// client therefore gets its own buffered channel and a single goroutine that
// drains it; Publish only ever does non-blocking sends into those channels.
package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ridehail/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type client struct {
	rideID string
	conn   *websocket.Conn
	send   chan events.Event
}

// Hub tracks clients by ride id. It implements events.Publisher.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish queues event for every client watching its ride. A client whose
// buffer is full is disconnected instead of blocking the caller.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients[event.RideID] {
		select {
		case c.send <- event:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("[WS] dropping slow client on ride %s", c.rideID)
		h.unregister(c)
	}
	return nil
}

// Subscribers returns how many clients currently watch rideID.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[rideID])
}

// Serve upgrades the request and streams events for rideID until the client
// goes away. Authorization is the caller's job.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, rideID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed for ride %s: %v", rideID, err)
		return
	}

	c := &client{rideID: rideID, conn: conn, send: make(chan events.Event, sendBuffer)}
	h.register(c)
	log.Printf("[WS] client subscribed to ride %s", rideID)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.rideID] == nil {
		h.clients[c.rideID] = make(map[*client]struct{})
	}
	h.clients[c.rideID][c] = struct{}{}
}

// unregister is idempotent; closing send stops the write pump.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.clients[c.rideID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.clients, c.rideID)
	}
	close(c.send)
}

// readPump discards client messages; it exists to process pongs and notice
// disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				log.Printf("[WS] write failed on ride %s: %v", c.rideID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
