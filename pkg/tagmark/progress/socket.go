package progress

import (
	"fmt"
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mikepea/tagmark/pkg/tagmark/logger"
)

// TokenValidator resolves a bearer token to a user id
type TokenValidator func(token string) (uint, error)

type socketHandlers struct {
	hub      *Hub
	validate TokenValidator
}

// NewSocketServer builds the socket.io server that feeds the hub. Clients
// authenticate with a "token" query parameter.
func NewSocketServer(hub *Hub, validate TokenValidator) *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	h := &socketHandlers{hub: hub, validate: validate}
	server.OnConnect("/", h.onConnect)
	server.OnDisconnect("/", h.onDisconnect)
	server.OnError("/", func(s socketio.Conn, err error) {
		logger.Log.Warn().Err(err).Msg("socket error")
	})

	return server
}

func (h *socketHandlers) onConnect(s socketio.Conn) error {
	u := s.URL()
	token := u.Query().Get("token")
	if token == "" {
		logger.Log.Info().Str("socket_id", s.ID()).Msg("socket rejected: no token")
		return fmt.Errorf("authentication required")
	}

	userID, err := h.validate(token)
	if err != nil {
		logger.Log.Info().Str("socket_id", s.ID()).Msg("socket rejected: invalid token")
		return fmt.Errorf("invalid token")
	}

	if err := h.hub.Register(userID, s); err != nil {
		logger.Log.Info().Str("socket_id", s.ID()).Uint("user_id", userID).Msg("socket rejected: duplicate connection")
		return err
	}

	s.SetContext(userID)
	logger.Log.Info().Str("socket_id", s.ID()).Uint("user_id", userID).Msg("socket connected")
	return nil
}

func (h *socketHandlers) onDisconnect(s socketio.Conn, reason string) {
	userID, ok := s.Context().(uint)
	if !ok {
		return
	}
	h.hub.Unregister(userID, s)
	logger.Log.Info().Str("socket_id", s.ID()).Uint("user_id", userID).Str("reason", reason).Msg("socket disconnected")
}
