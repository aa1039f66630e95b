// Package main is the entry point for the rotator daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/oszuidwest/zwfm-rotator/internal/config"
	"github.com/oszuidwest/zwfm-rotator/internal/control"
	"github.com/oszuidwest/zwfm-rotator/internal/database"
	"github.com/oszuidwest/zwfm-rotator/internal/repository"
	"github.com/oszuidwest/zwfm-rotator/internal/rotation"
	"github.com/oszuidwest/zwfm-rotator/internal/schedule"
	"github.com/oszuidwest/zwfm-rotator/internal/state"
	"github.com/oszuidwest/zwfm-rotator/internal/watcher"
	"github.com/oszuidwest/zwfm-rotator/pkg/logger"
	"github.com/oszuidwest/zwfm-rotator/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	runMigrations := flag.Bool("migrate", false, "apply database migrations and exit")
	reshuffle := flag.Int64("reshuffle", 0, "generate a fresh cycle order for the given playlist id and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Log configuration (without sensitive data)
	log.Printf("Database config: Host=%s, Port=%d, User=%s, Database=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Database)
	log.Printf("Station timezone: %s, watcher interval: %s", cfg.Station.Timezone, cfg.Watcher.Interval)

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("zwfm-rotator %s (%s, built %s)", version.Version, version.Commit, version.BuildTime)

	// Connect to database
	conn, err := database.NewConn(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("Failed to close database connection: %v", err)
		}
	}()

	if *runMigrations {
		if err := database.Migrate(conn.DB(), cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("Failed to run migrations: %v", err)
		}
		logger.Info("Migrations applied")
		return
	}

	// Wire repositories and services
	playlistSongs := repository.NewPlaylistSongs(conn)
	schedules := repository.NewSchedules(conn)
	history := repository.NewHistory(conn)
	settings := repository.NewSettings(conn)

	engine := rotation.NewEngine(playlistSongs, history, settings, cfg.Rotation)

	if *reshuffle > 0 {
		if err := engine.GenerateCycleOrder(context.Background(), *reshuffle); err != nil {
			logger.Fatal("Failed to reshuffle playlist %d: %v", *reshuffle, err)
		}
		return
	}

	resolver, err := schedule.NewResolver(schedules, cfg.Station.Timezone)
	if err != nil {
		logger.Fatal("Failed to create schedule resolver: %v", err)
	}

	stateStore := state.NewStore(conn)
	controlClient := control.NewClient(cfg.Control)

	// Start boundary watcher
	boundaryWatcher := watcher.New(conn, resolver, stateStore, controlClient, cfg.Watcher.Interval)
	boundaryWatcher.Start()
	defer boundaryWatcher.Stop()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	boundaryWatcher.Stop()
	logger.Info("Rotator exited")
}
