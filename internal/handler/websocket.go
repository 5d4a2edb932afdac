package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/maxviazov/gameday-service/internal/realtime"
	"github.com/maxviazov/gameday-service/internal/service"
	"github.com/maxviazov/gameday-service/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers are read-only; any origin may watch.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocketHandler lets spectators follow a match live.
type WebSocketHandler struct {
	svc service.MatchService
	hub *realtime.Hub
}

func NewWebSocketHandler(svc service.MatchService, hub *realtime.Hub) *WebSocketHandler {
	return &WebSocketHandler{svc: svc, hub: hub}
}

func (h *WebSocketHandler) Register(r *gin.RouterGroup) {
	r.GET("/matches/:"+paramMatchID+"/ws", h.serve)
}

// serve upgrades the request, sends the current snapshot and then streams
// every change to the match until the viewer goes away.
func (h *WebSocketHandler) serve(c *gin.Context) {
	// resolve before upgrading so unknown matches get a normal JSON 404
	mc, ok := loadController(c, h.svc)
	if !ok {
		return
	}
	snap := mc.Snapshot()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return
	}
	client, err := h.hub.Join(c.Request.Context(), snap.ID, conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, closeReason(err)))
		_ = conn.Close()
		return
	}
	client.Send(realtime.Message{Type: realtime.TypeSnapshot, MatchID: snap.ID, Payload: snap})
	client.Start()
}

func closeReason(err error) string {
	_, payload := response.MapError(err)
	return payload.Error
}
