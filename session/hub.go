package session

import (
	"encoding/json"
	"sync"

	"github.com/djkaif/Scribble-bot/game"
	"github.com/djkaif/Scribble-bot/shared/logger"
)

// sender is the part of Client the hub needs; tests swap in fakes.
type sender interface {
	Enqueue(data []byte)
}

// Hub tracks live connections and which room each one joined. It is
// the only place the connection-to-room mapping lives.
type Hub struct {
	locker  sync.Mutex
	clients map[string]sender
	roomOf  map[string]string
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]sender),
		roomOf:  make(map[string]string),
	}
}

func (h *Hub) Register(id string, c sender) {
	h.locker.Lock()
	defer h.locker.Unlock()
	h.clients[id] = c
}

// Unregister forgets a connection and returns the room it was in, if
// any, so the caller can run the leave.
func (h *Hub) Unregister(id string) (string, bool) {
	h.locker.Lock()
	defer h.locker.Unlock()
	delete(h.clients, id)
	room, ok := h.roomOf[id]
	delete(h.roomOf, id)
	return room, ok
}

func (h *Hub) SetRoom(id, roomID string) {
	h.locker.Lock()
	defer h.locker.Unlock()
	h.roomOf[id] = roomID
}

func (h *Hub) RoomOf(id string) (string, bool) {
	h.locker.Lock()
	defer h.locker.Unlock()
	room, ok := h.roomOf[id]
	return room, ok
}

// Dispatch writes each outgoing packet to its connection. Packets for
// connections that already vanished are dropped; one bad recipient
// never stops the rest.
func (h *Hub) Dispatch(out []game.Outgoing) {
	for _, o := range out {
		data, err := json.Marshal(o.Packet)
		if err != nil {
			logger.Criticalf("[Hub] Failed to marshal %s packet: %v", o.Packet.Type, err)
			continue
		}
		h.locker.Lock()
		c := h.clients[o.To]
		h.locker.Unlock()
		if c == nil {
			continue
		}
		c.Enqueue(data)
	}
}
