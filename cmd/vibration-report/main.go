package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rotor-data/vibration.report/internal/api"
	"github.com/rotor-data/vibration.report/internal/classify"
	"github.com/rotor-data/vibration.report/internal/config"
	"github.com/rotor-data/vibration.report/internal/db"
	"github.com/rotor-data/vibration.report/internal/model"
	"github.com/rotor-data/vibration.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	modelDir      = flag.String("models", "./models", "Directory of classifier artifacts")
	dbFile        = flag.String("db", "predictions.db", "Path to the prediction history database")
	migrationsDir = flag.String("migrations", "./migrations", "Directory of schema migrations")
	configFile    = flag.String("config", "", "Optional tuning config JSON file")
)

func main() {
	flag.Parse()

	log.Printf("vibration-report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	// The migrate subcommand manages schema versions and exits.
	if flag.Arg(0) == "migrate" {
		if err := runMigrate(flag.Arg(1)); err != nil {
			log.Fatalf("migrate %s: %v", flag.Arg(1), err)
		}
		return
	}

	registry, err := model.LoadRegistry(*modelDir)
	if err != nil {
		log.Fatalf("failed to load model registry: %v", err)
	}
	if registry.Len() == 0 {
		log.Printf("warning: no classifier artifacts found in %s", *modelDir)
	}
	for _, key := range registry.Keys() {
		log.Printf("loaded model %s", key)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	pipeline := classify.NewPipeline(registry, tuning.GetMinWindowSamples())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(pipeline, database, tuning).ServeMux()
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}

func runMigrate(action string) error {
	database, err := db.NewDB(*dbFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	switch action {
	case "up":
		return database.MigrateUp(*migrationsDir)
	case "down":
		return database.MigrateDown(*migrationsDir)
	case "status":
		version, dirty, err := database.MigrateVersion(*migrationsDir)
		if err != nil {
			return err
		}
		latest, err := db.GetLatestMigrationVersion(*migrationsDir)
		if err != nil {
			return err
		}
		fmt.Printf("current version: %d (dirty: %v)\nlatest version:  %d\n", version, dirty, latest)
		return nil
	default:
		fmt.Fprintln(os.Stderr, "usage: vibration-report migrate [up|down|status]")
		return fmt.Errorf("unknown migrate action %q", action)
	}
}
