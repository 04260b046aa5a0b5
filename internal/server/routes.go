package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Response is the envelope for the plain HTTP endpoints.
type Response struct {
	StatusCode int `json:"status_code"`
	Data       any `json:"data"`
}

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HealthHandler)
	r.HandleFunc("/rooms-available", s.RoomsAvailableHandler)
	r.HandleFunc("/ws", s.HandleWebSocket)

	return r
}

// corsMiddleware opens the HTTP surface to browser clients; websocket
// upgrades skip the preflight handling.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{
		StatusCode: http.StatusOK,
		Data:       "ok",
	})
}

// RoomsAvailableHandler lists the ids of rooms that are still joinable, i.e.
// rooms with no round running.
func (s *Server) RoomsAvailableHandler(w http.ResponseWriter, r *http.Request) {
	ids := []int{}
	for _, room := range s.registry.Rooms() {
		if room.Joinable() {
			ids = append(ids, room.ID())
		}
	}

	status := http.StatusOK
	var data any = ids
	if len(ids) == 0 {
		status = http.StatusNotFound
		data = "no joinable rooms available"
	}
	s.writeJSON(w, status, Response{StatusCode: status, Data: data})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}
