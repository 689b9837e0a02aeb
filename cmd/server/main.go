package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"todo-list/backend/internal/config"
	"todo-list/backend/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Error during cleanup: %v", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
