package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // mirror the permissive CORS policy
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.hub.Register(conn); err != nil {
		slog.Warn("Failed to register with relay hub", "error", err)
		return nil
	}

	// read pump, blocks until the connection closes
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.hub.Relay(conn, msg)
	}

	s.hub.Unregister(conn)

	return nil
}
