package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/app"
)

const (
	writeWait = time.Second

	// updateBuffer bounds how far the writer may fall behind the frame loop.
	updateBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SnapshotFunc returns the latest update for newly connected clients.
type SnapshotFunc func() app.Update

// LiveHub pushes every session update to connected websocket clients.
// Publish only queues the update; a single broadcast goroutine owns all
// writes to registered connections.
type LiveHub struct {
	snapshot SnapshotFunc
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	logger   *zap.Logger

	updates   chan app.Update
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLiveHub creates a hub and starts its broadcast goroutine. snapshot may be nil.
func NewLiveHub(snapshot SnapshotFunc, logger *zap.Logger) *LiveHub {
	h := &LiveHub{
		snapshot: snapshot,
		clients:  make(map[*websocket.Conn]bool),
		logger:   logger,
		updates:  make(chan app.Update, updateBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	// Send the current state before the client joins the broadcast set.
	if h.snapshot != nil {
		if msg, err := json.Marshal(h.snapshot()); err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish implements app.Sink. It never blocks: when the writer is behind,
// the update is dropped and the next one supersedes it.
func (h *LiveHub) Publish(u app.Update) {
	select {
	case <-h.quit:
		return
	default:
	}
	select {
	case h.updates <- u:
	default:
	}
}

// broadcast writes queued updates to every client until Close.
func (h *LiveHub) broadcast() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return
		case u := <-h.updates:
			h.send(u)
		}
	}
}

func (h *LiveHub) send(u app.Update) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	msg, err := json.Marshal(u)
	if err != nil {
		h.logger.Error("failed to encode update", zap.Error(err))
		return
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(conn)
			conn.Close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast goroutine and disconnects every client.
// It is safe to call more than once.
func (h *LiveHub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
		<-h.done
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *LiveHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
