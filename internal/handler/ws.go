package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"qrorder/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StaffEventsHandler subscribes a dashboard to order events until the socket closes.
func StaffEventsHandler(hub *events.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		hub.AddClient(conn)
		slog.Info("dashboard connected", "clients", hub.ClientsCount())
		defer func() {
			hub.RemoveClient(conn)
			slog.Info("dashboard disconnected", "clients", hub.ClientsCount())
		}()

		// Dashboards only listen; reading detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
