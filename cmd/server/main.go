// Command server runs the party-game backend: players connect over a
// websocket, join numbered rooms, and play draw-and-guess or telephone
// rounds.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/partydraw/partydraw-backend/internal/server"
	"github.com/rs/zerolog"
)

var (
	port      = flag.Int("port", 0, "listening port (overrides PORT)")
	wordsFile = flag.String("words", "", "word list file (overrides WORDS_FILE)")
	debug     = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	// Optional; env vars may come from the real environment instead.
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if *debug || os.Getenv("DEBUG") == "true" {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	cfg := server.ConfigFromEnv()
	if *port > 0 {
		cfg.Port = *port
	}
	if *wordsFile != "" {
		cfg.WordsFile = *wordsFile
	}

	srv := server.New(cfg, log)
	httpSrv := srv.HTTPServer()

	go func() {
		log.Info().Int("port", cfg.Port).Msg("game server started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	srv.Shutdown()
}
