package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/boardnight/server/realtime"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin is handled by the CORS middleware on the REST
			// surface; the websocket endpoint accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the connection and attaches it to the room named by the
// URL (a game night id or tournament id).
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "roomID")
	if room == "" {
		badRequestResponse(w, r, errors.New("room id is required"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "room", room, "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, room)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}
