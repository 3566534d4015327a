package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/notify"
	"github.com/evn/attendance_backendl/internal/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub *notify.Hub
}

func NewWSHandler(hub *notify.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve upgrades the connection and subscribes the caller to their alerts.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade for staff %s: %v", staffID, err)
		return
	}
	client := notify.NewClient(staffID, conn)
	h.hub.Register(client)
	go h.hub.WritePump(client)
	go h.hub.ReadPump(client)
}
