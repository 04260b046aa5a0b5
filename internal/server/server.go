package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/partydraw/partydraw-backend/internal/game"
	"github.com/rs/zerolog"
)

// Config is everything the process reads at startup. Values come from flags
// in cmd/server with environment fallbacks.
type Config struct {
	Port      int
	WordsFile string
}

// ConfigFromEnv fills defaults from the environment (PORT, WORDS_FILE).
func ConfigFromEnv() Config {
	cfg := Config{Port: 8080, WordsFile: "words.txt"}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if v := os.Getenv("WORDS_FILE"); v != "" {
		cfg.WordsFile = v
	}
	return cfg
}

// Server owns the HTTP surface and the shared game collaborators. Player
// ids are handed out from a monotonically increasing counter at accept time.
type Server struct {
	cfg       Config
	log       zerolog.Logger
	registry  *game.Registry
	scheduler *game.Scheduler
	router    *game.Router
	nextID    atomic.Int64
}

func New(cfg Config, log zerolog.Logger) *Server {
	registry := game.NewRegistry(log)
	scheduler := game.NewScheduler(log)
	words := game.LoadWordBank(cfg.WordsFile, log)
	return &Server{
		cfg:       cfg,
		log:       log.With().Str("component", "server").Logger(),
		registry:  registry,
		scheduler: scheduler,
		router:    game.NewRouter(registry, scheduler, words, log),
	}
}

// HTTPServer builds the listening server on the configured port.
func (s *Server) HTTPServer() *http.Server {
	// No read/write timeouts: connections upgrade to long-lived websockets.
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s.RegisterRoutes(),
		IdleTimeout: time.Minute,
	}
}

// Shutdown cancels every outstanding round timer.
func (s *Server) Shutdown() {
	s.scheduler.Stop()
}

func (s *Server) nextPlayerID() int {
	return int(s.nextID.Add(1))
}
