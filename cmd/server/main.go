package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// swagger spec
	_ "chessroom/docs"

	httpapi "chessroom/internal/api/http"
	"chessroom/internal/api/ws"
	"chessroom/internal/config"
	"chessroom/internal/protocol"
	"chessroom/internal/rules"
	"chessroom/internal/session"
)

// @title Chessroom API
// @version 1.0
// @description Session coordination server for two-player chess over WebSockets
// @contact.name Backend Team
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	registry := session.NewRegistry(rules.StartingPosition)
	engine := rules.NewChessEngine()
	hub := ws.NewHub(cfg.AllowedOrigins)
	handler := protocol.NewHandler(registry, engine, hub)
	router := httpapi.NewRouter(cfg, registry, hub, handler)

	sweeper := session.NewSweeper(registry, cfg.SweepInterval, cfg.SessionMaxAge)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
