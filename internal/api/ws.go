package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// The relay carries only end-to-end encrypted signaling payloads on
// secret-derived topic names, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.ServeConn(conn)
}
