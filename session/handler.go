package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/djkaif/Scribble-bot/codes"
	"github.com/djkaif/Scribble-bot/game"
	"github.com/djkaif/Scribble-bot/shared/logger"
)

// Handler is the protocol adapter between connections and the game
// store. Its only state beyond its collaborators is the hub's
// connection-to-room mapping.
type Handler struct {
	store    *game.Store
	registry *codes.Registry
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(store *game.Store, registry *codes.Registry, hub *Hub) *Handler {
	return &Handler{
		store:    store,
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The router's origin middleware already gates requests.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/rooms", h.CreateRoomHandler)
	r.POST("/rooms/:id/codes", h.IssueCodeHandler)
	r.GET("/scores", h.ScoresHandler)
	r.GET("/ws", h.WebsocketHandler)
}

type createRoomRequest struct {
	Channel        string `json:"channel" binding:"required"`
	DrawerIdentity string `json:"drawerIdentity"`
}

func (h *Handler) CreateRoomHandler(ctx *gin.Context) {
	var req createRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	roomID := h.store.CreateRoom(req.Channel, req.DrawerIdentity)
	ctx.JSON(http.StatusCreated, gin.H{"roomId": roomID})
}

type issueCodeRequest struct {
	Identity    string `json:"identity" binding:"required"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) IssueCodeHandler(ctx *gin.Context) {
	roomID := ctx.Param("id")
	if !h.store.RoomExists(roomID) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": rejectionMessage(game.ErrRoomNotFound)})
		return
	}

	var req issueCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Identity
	}

	code, err := h.registry.Issue(req.Identity, roomID, req.DisplayName)
	if err != nil {
		ctx.JSON(http.StatusTooManyRequests, gin.H{"error": rejectionMessage(err)})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":      code.Value,
		"expiresAt": code.ExpiresAt.UnixMilli(),
	})
}

func (h *Handler) ScoresHandler(ctx *gin.Context) {
	channel := ctx.Query("channel")
	summary, ok := h.store.ScoresSummary(channel)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no rooms for channel"})
		return
	}
	ctx.String(http.StatusOK, summary)
}

func (h *Handler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warningf("[Session] Websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(uuid.NewString(), conn)
	h.hub.Register(client.ID(), client)
	go client.WritePump()

	client.ReadPump(
		func(raw []byte) { h.handleMessage(client, raw) },
		func() { h.disconnect(client) },
	)
}

// inboundEnvelope is the one frame shape clients send; Type selects
// which fields matter.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Room string          `json:"room,omitempty"`
	Code string          `json:"code,omitempty"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (h *Handler) handleMessage(c *Client, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Debugf("[Session %s] Dropping malformed frame: %v", c.ID(), err)
		return
	}

	switch env.Type {
	case "join":
		if !c.AllowCommand() {
			return
		}
		// One room per connection; a member has to disconnect before
		// joining elsewhere, or its old membership would leak.
		if _, already := h.hub.RoomOf(c.ID()); already {
			h.hub.Dispatch([]game.Outgoing{{
				To:     c.ID(),
				Packet: game.MakePacketJoinError("Already in a game"),
			}})
			return
		}
		out, err := h.store.Join(c.ID(), env.Room, env.Code)
		if err != nil {
			h.hub.Dispatch([]game.Outgoing{{
				To:     c.ID(),
				Packet: game.MakePacketJoinError(rejectionMessage(err)),
			}})
			return
		}
		h.hub.SetRoom(c.ID(), env.Room)
		h.hub.Dispatch(out)

	case "chat":
		if !c.AllowCommand() {
			return
		}
		room, ok := h.hub.RoomOf(c.ID())
		if !ok {
			return
		}
		h.hub.Dispatch(h.store.Guess(c.ID(), room, env.Text))

	case "voteSkip":
		if !c.AllowCommand() {
			return
		}
		room, ok := h.hub.RoomOf(c.ID())
		if !ok {
			return
		}
		h.hub.Dispatch(h.store.VoteSkip(c.ID(), room))

	case "draw", "startPath", "endPath":
		room, ok := h.hub.RoomOf(c.ID())
		if !ok {
			return
		}
		h.relayStroke(c.ID(), room, env.Type, env.Data)
	}
}

// relayStroke forwards a drawing event to the room's other members
// without interpreting it; this channel carries no game logic.
func (h *Handler) relayStroke(conn, roomID, kind string, data json.RawMessage) {
	peers := h.store.Peers(roomID, conn)
	out := make([]game.Outgoing, 0, len(peers))
	for _, peer := range peers {
		out = append(out, game.Outgoing{To: peer, Packet: game.MakePacketStroke(kind, data)})
	}
	h.hub.Dispatch(out)
}

func (h *Handler) disconnect(c *Client) {
	room, ok := h.hub.Unregister(c.ID())
	if ok {
		h.hub.Dispatch(h.store.Leave(c.ID(), room))
	}
	c.CloseSend()
}

// RunTicker drives the store's per-second tick until stop closes.
func (h *Handler) RunTicker(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.hub.Dispatch(h.store.Tick())
		case <-stop:
			return
		}
	}
}

// rejectionMessage maps typed rejections to the short user-facing
// strings the frontend shows.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "Game not found"
	case errors.Is(err, game.ErrRoomFull):
		return "Room full"
	case errors.Is(err, codes.ErrCooldownActive):
		return "Cooldown active"
	case errors.Is(err, codes.ErrInvalidCode):
		return "Invalid code"
	case errors.Is(err, codes.ErrCodeExpired):
		return "Code expired"
	case errors.Is(err, codes.ErrCodeAlreadyUsed):
		return "Code already used"
	default:
		return "Unknown error"
	}
}
