package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/partydraw/partydraw-backend/internal"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound message budget per connection; drawing streams are bursty.
const (
	inboundRate  = 50
	inboundBurst = 100
)

// HandleWebSocket upgrades the connection, assigns the next player id, and
// runs the read loop. One goroutine per connection, strictly sequential, so
// a single sender's messages are processed in arrival order.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := s.nextPlayerID()
	player := internal.NewPlayer(id, internal.NewWSChannel(conn))
	if name := r.URL.Query().Get("name"); name != "" {
		player.SetName(name)
	}

	connLog := s.log.With().Str("conn_id", uuid.NewString()).Int("player_id", id).Logger()
	connLog.Info().Str("remote", r.RemoteAddr).Msg("player connected")

	go s.readLoop(player, conn, connLog)
}

// readLoop blocks on the websocket, decodes each frame, and routes it. A
// read error is the only disconnect signal; LEAVE semantics apply then.
func (s *Server) readLoop(player *internal.Player, conn *websocket.Conn, log zerolog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(inboundRate), inboundBurst)

	defer func() {
		s.router.Disconnect(player)
		if err := player.Close(); err != nil {
			log.Debug().Err(err).Msg("closing connection")
		}
		log.Info().Msg("player disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("read failed")
			return
		}
		if !limiter.Allow() {
			log.Warn().Msg("inbound rate exceeded, dropping message")
			continue
		}

		var msg internal.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed frames never kill the worker; the sender gets a 400.
			log.Debug().Err(err).Msg("malformed frame")
			s.router.SendDecodeError(player)
			continue
		}
		s.router.Route(player, msg)
	}
}
