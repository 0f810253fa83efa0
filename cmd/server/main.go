package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/huddlechat/huddle-server/internal/server"
)

func main() {
	log.Println("Starting Huddle server...")

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	server.SetConfig(cfg)

	registry := server.NewRegistry()
	mux := server.SetupRoutes(registry)
	httpServer := server.CreateServer(cfg.Port, mux)

	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Stop accepting connections first, then drain the live sessions.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.ShutdownServer(httpServer, cfg.ShutdownTimeout)
			},
			"room-registry": func(ctx context.Context) error {
				return registry.Shutdown(cfg.ShutdownTimeout)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Huddle server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
