package handler

import (
	"log"
	"net/http"

	"wablast/internal/service"
	"wablast/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// upgrader untuk Gorilla
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: production: batasi origin
		return true
	},
}

// WebSocketHandler meng-handle subscriber baru di route /ws.
// Subscriber langsung menerima snapshot state semua session aktif,
// lalu setiap transisi berikutnya.
func WebSocketHandler(hub *ws.Hub, registry *service.SessionRegistry) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return err
		}

		client := ws.NewClient(hub, conn)
		hub.Register(client)

		// Initial current-state event per session, hanya ke subscriber ini
		for _, mgr := range registry.All() {
			status := mgr.GetStatus()
			client.Queue(ws.WsEvent{
				Event: ws.EventConnectionStatusChanged,
				Data: ws.ConnectionStatusData{
					SessionID:   status.SessionID,
					State:       string(status.State),
					IsConnected: status.IsConnected,
					PhoneNumber: status.PhoneNumber,
					LastSeenAt:  status.LastSeenAt,
				},
			})
		}

		go client.WritePump()
		go client.ReadPump()

		return nil
	}
}
