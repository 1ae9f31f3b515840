package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	// wsWriteTimeout bounds each outbound WebSocket write.
	wsWriteTimeout = 10 * time.Second

	// pingText is the liveness probe clients send as a text message.
	pingText = "ping"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream carries no credentials and sessions are opaque UUIDs;
	// cross-origin dashboards are expected consumers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pongMessage answers a client ping.
type pongMessage struct {
	Type string `json:"type"`
}

// serveWebSocket handles GET /ws/{sessionID}. The subscription delivers a
// connected event immediately, then live session events as JSON. A text
// "ping" is answered with {"type":"pong"}.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	logger := s.logger.With().Str("session_id", sessionID).Logger()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := s.broadcaster.Subscribe(sessionID)
	defer sub.Close()

	// All writes go through the writer goroutine; gorilla connections
	// support only one concurrent writer.
	pongs := make(chan struct{}, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer conn.Close()
		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(event); err != nil {
					logger.Debug().Err(err).Msg("websocket write failed")
					return
				}
			case <-pongs:
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(pongMessage{Type: "pong"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType == websocket.TextMessage && string(payload) == pingText {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}

	sub.Close()
	<-done
	logger.Debug().Msg("websocket closed")
}
