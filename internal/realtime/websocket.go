// internal/realtime/websocket.go
package realtime

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// Serve pumps hub frames for userID onto conn and blocks until the peer
// disconnects or the hub stops. Inbound frames are only read to keep the
// connection alive.
func (h *Hub) Serve(conn *websocket.Conn, userID uuid.UUID) {
	client := NewClient(userID)
	if !h.RegisterClient(client) {
		_ = conn.Close()
		return
	}
	defer h.UnregisterClient(client)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Debug().Err(err).Str("client", client.ID).Msg("websocket write")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug().Err(err).Str("user_id", userID.String()).Msg("websocket closed")
			return
		}
	}
}
