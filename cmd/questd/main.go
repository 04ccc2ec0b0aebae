// questd runs a quest scene and serves it to browser clients over WebSocket.
//
// Usage:
//
//	go run ./cmd/questd -config data/engine.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/questengine/internal/config"
	"github.com/lawnchairsociety/questengine/internal/journal"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/npc"
	"github.com/lawnchairsociety/questengine/internal/server"
	"github.com/lawnchairsociety/questengine/internal/text"
	"github.com/lawnchairsociety/questengine/internal/world"

	_ "github.com/lib/pq"
)

func main() {
	configFile := flag.String("config", "data/engine.yaml", "Path to engine config YAML file")
	sceneFile := flag.String("scene", "", "Path to scene YAML file or directory (overrides config)")
	textFile := flag.String("text", "", "Path to text YAML file (overrides config)")
	address := flag.String("addr", "", "WebSocket listen address (overrides config)")
	strict := flag.Bool("strict", false, "Refuse to start when the scene has validation errors")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configFile, err)
	}
	if *sceneFile != "" {
		cfg.World.ScenePath = *sceneFile
	}
	if *textFile != "" {
		cfg.World.TextPath = *textFile
	}
	if *address != "" {
		cfg.WebSocket.Address = *address
	}

	// Initialize logger first (before any logging)
	if err := logger.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting quest engine", "config", *configFile)

	if len(cfg.WebSocket.AllowedOrigins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", cfg.WebSocket.AllowedOrigins)
	}

	txt, err := text.LoadOrDefault(cfg.World.TextPath)
	if err != nil {
		logger.Warning("Failed to load text, using defaults", "path", cfg.World.TextPath, "error", err)
	}

	scene, err := npc.LoadScene(cfg.World.ScenePath)
	if err != nil {
		logger.Error("Failed to load scene", "path", cfg.World.ScenePath, "error", err)
		os.Exit(1)
	}
	if gaps := scene.Validate(); len(gaps) > 0 {
		for _, gap := range gaps {
			logger.Warning("Scene validation", "error", gap)
		}
		if *strict {
			logger.Error("Scene has validation errors", "count", len(gaps))
			os.Exit(1)
		}
	}

	deps := world.Deps{Text: txt}
	hub := server.NewHub()
	deps.Sink = hub

	var j *journal.Journal
	if cfg.Journal.Enabled {
		j, err = journal.Open(cfg.Journal)
		if err != nil {
			logger.Error("Failed to open journal", "driver", cfg.Journal.Driver, "error", err)
			os.Exit(1)
		}
		deps.Recorder = j
	}

	w := world.New(cfg, scene, deps)

	ctx, cancel := context.WithCancel(context.Background())
	worldDone := make(chan error, 1)
	go func() { worldDone <- w.Run(ctx) }()

	srv := server.New(cfg, w, hub)
	go func() {
		if err := srv.ListenAndServe(cfg.WebSocket.Address); err != nil {
			log.Fatalf("WebSocket server error: %v", err)
		}
	}()

	logger.Info("Quest engine running", "address", cfg.WebSocket.Address, "scene", cfg.World.ScenePath)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warning("HTTP shutdown incomplete", "error", err)
	}

	cancel()
	if err := <-worldDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("World stopped with error", "error", err)
	}
	if j != nil {
		if err := j.Close(); err != nil {
			logger.Error("Failed to close journal", "error", err)
		}
	}
	logger.Info("Quest engine stopped")
}
