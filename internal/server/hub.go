package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// conn is one player's websocket. coder/websocket allows a single
// concurrent writer, so every write goes through the per-conn mutex.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, b)
}

// Hub tracks which player sockets belong to which room. It carries no
// game state; the round owns that.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uuid.UUID]*conn
	log   *logrus.Entry
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]map[uuid.UUID]*conn),
		log:   logrus.WithField("component", "hub"),
	}
}

// Register attaches a player's socket to a room, replacing any previous
// socket for the same player. The replaced socket, if any, is returned
// so the caller can close it.
func (h *Hub) Register(roomID, playerID uuid.UUID, ws *websocket.Conn) *websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[uuid.UUID]*conn)
		h.rooms[roomID] = room
	}
	var old *websocket.Conn
	if prev := room[playerID]; prev != nil {
		old = prev.ws
	}
	room[playerID] = &conn{ws: ws}
	return old
}

// Unregister detaches a player's socket. It is a no-op if the stored
// socket is not ws (a reconnect already replaced it).
func (h *Hub) Unregister(roomID, playerID uuid.UUID, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	if room == nil {
		return
	}
	if cur := room[playerID]; cur != nil && cur.ws == ws {
		delete(room, playerID)
	}
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// snapshot returns the current conns for a room without holding the lock
// during writes.
func (h *Hub) snapshot(roomID uuid.UUID) map[uuid.UUID]*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[roomID]
	out := make(map[uuid.UUID]*conn, len(room))
	for id, c := range room {
		out[id] = c
	}
	return out
}

// Broadcast sends v to every socket in the room.
func (h *Hub) Broadcast(roomID uuid.UUID, v any) {
	for playerID, c := range h.snapshot(roomID) {
		if err := c.writeJSON(v); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"room": roomID, "player": playerID,
			}).Debug("broadcast write failed")
		}
	}
}

// SendTo sends v to one player in the room, if connected.
func (h *Hub) SendTo(roomID, playerID uuid.UUID, v any) {
	room := h.snapshot(roomID)
	c := room[playerID]
	if c == nil {
		return
	}
	if err := c.writeJSON(v); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"room": roomID, "player": playerID,
		}).Debug("direct write failed")
	}
}

// BroadcastExcept sends v to every socket in the room but one.
func (h *Hub) BroadcastExcept(roomID, excludedID uuid.UUID, v any) {
	for playerID, c := range h.snapshot(roomID) {
		if playerID == excludedID {
			continue
		}
		if err := c.writeJSON(v); err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{
				"room": roomID, "player": playerID,
			}).Debug("broadcast write failed")
		}
	}
}
