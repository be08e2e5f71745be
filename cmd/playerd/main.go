package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/database"
	"github.com/mantonx/playerd/internal/server"
)

func main() {
	fmt.Println("playerd - video playback service")

	configPath := os.Getenv("PLAYERD_CONFIG_PATH")
	if configPath == "" {
		if _, err := os.Stat("./playerd.yaml"); err == nil {
			configPath = "./playerd.yaml"
		}
	}

	if err := config.Load(configPath); err != nil {
		log.Printf("Warning: failed to load configuration from %s: %v, using defaults", configPath, err)
	} else if configPath != "" {
		log.Printf("Configuration loaded from %s", configPath)
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	router, err := server.SetupRouter()
	if err != nil {
		log.Fatalf("Failed to set up server: %v", err)
	}

	cfg := config.Get()
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		// Modules dispose all playback sessions here, so no engine process
		// outlives the daemon.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("Starting playerd on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
