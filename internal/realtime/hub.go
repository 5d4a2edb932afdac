// Package realtime streams match snapshots to websocket viewers. Each match is
// a room; the first viewer subscribes the room to repository changes and the
// last one to leave drops the subscription.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gameday-service/internal/config"
	"github.com/maxviazov/gameday-service/internal/model"
	"github.com/maxviazov/gameday-service/internal/repository"
)

// Message types sent to viewers.
const (
	TypeSnapshot = "match.snapshot"
	TypeUpdated  = "match.updated"
	TypeReverted = "match.reverted"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is the envelope written to every socket.
type Message struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
	Payload any    `json:"payload"`
}

// Source is the subscription side of the match repository.
type Source interface {
	Subscribe(ctx context.Context, id string, onChange repository.ChangeFunc) (repository.Unsubscribe, error)
}

type room struct {
	clients     map[*Client]struct{}
	unsubscribe repository.Unsubscribe
}

type Hub struct {
	source         Source
	sendBuffer     int
	maxMessageSize int64

	mu    sync.RWMutex
	rooms map[string]*room
	log   zerolog.Logger
}

func NewHub(source Source, cfg config.RealtimeConfig, logger zerolog.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}
	return &Hub{
		source:         source,
		sendBuffer:     cfg.SendBuffer,
		maxMessageSize: int64(cfg.MaxMessageSize),
		rooms:          make(map[string]*room),
		log:            logger.With().Str("module", "realtime").Str("component", "hub").Logger(),
	}
}

// Join adds conn to the match room. The pumps are not running until Start.
func (h *Hub) Join(ctx context.Context, matchID string, conn *websocket.Conn) (*Client, error) {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		room: matchID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[matchID]
	if !ok {
		unsubscribe, err := h.source.Subscribe(ctx, matchID, func(m model.Match) {
			h.BroadcastToRoom(matchID, Message{Type: TypeUpdated, MatchID: matchID, Payload: m})
		})
		if err != nil {
			return nil, err
		}
		r = &room{clients: make(map[*Client]struct{}), unsubscribe: unsubscribe}
		h.rooms[matchID] = r
		h.log.Debug().Str("match_id", matchID).Msg("room opened")
	}
	r.clients[c] = struct{}{}
	h.log.Debug().Str("match_id", matchID).Int("clients", len(r.clients)).Msg("client joined")
	return c, nil
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	r, ok := h.rooms[c.room]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := r.clients[c]; !member {
		h.mu.Unlock()
		return
	}
	delete(r.clients, c)
	c.closeSend()
	var unsubscribe repository.Unsubscribe
	if len(r.clients) == 0 {
		delete(h.rooms, c.room)
		unsubscribe = r.unsubscribe
	}
	remaining := len(r.clients)
	h.mu.Unlock()

	// outside the hub lock; the repository may be delivering to this room right now
	if unsubscribe != nil {
		unsubscribe()
		h.log.Debug().Str("match_id", c.room).Msg("room closed")
		return
	}
	h.log.Debug().Str("match_id", c.room).Int("clients", remaining).Msg("client left")
}

// BroadcastToRoom sends msg to every viewer of roomID. Slow viewers whose
// buffers are full miss the message rather than blocking the caller.
func (h *Hub) BroadcastToRoom(roomID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	data, err := marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("match_id", roomID).Msg("marshal message failed")
		return
	}
	for c := range r.clients {
		if !c.enqueue(data) {
			h.log.Warn().Str("match_id", roomID).Msg("client send buffer full, message dropped")
		}
	}
}

// RoomSize reports how many viewers are watching matchID.
func (h *Hub) RoomSize(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[matchID]; ok {
		return len(r.clients)
	}
	return 0
}

// Close disconnects every viewer and drops all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for _, r := range rooms {
		for c := range r.clients {
			c.closeSend()
		}
		r.unsubscribe()
	}
}

func marshal(msg Message) ([]byte, error) { return json.Marshal(msg) }
