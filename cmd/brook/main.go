// Command brook runs the live streaming engine: RTMP ingest, HTTP-FLV and
// WebSocket-FLV playback, optional HLS segmenting, webhooks, and the admin
// API.
package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"brook/internal/config"
	"brook/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (built-in defaults when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	if err := srv.WaitForSignal(); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}

	slog.Info("server shut down cleanly")
}
