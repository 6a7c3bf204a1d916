package main

import (
	"log"

	"opsdashboard/internal/config"
	"opsdashboard/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	srv := server.New(cfg)
	log.Printf("Ops dashboard server listening on port %s", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
