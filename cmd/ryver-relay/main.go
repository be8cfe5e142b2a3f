// ryver-relay is a lightweight sidecar that drains alert matches produced by
// an upstream rules engine and posts them to a Ryver topic, team or forum.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryvertools/ryver-relay/internal/config"
	"github.com/ryvertools/ryver-relay/internal/notifier"
	"github.com/ryvertools/ryver-relay/internal/reader"
	"github.com/ryvertools/ryver-relay/internal/relay"
	"github.com/ryvertools/ryver-relay/internal/scheduler"
	"github.com/ryvertools/ryver-relay/internal/server"
)

var (
	// Version information (set at build time via -ldflags)
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	runOnce := flag.Bool("once", false, "Run one dispatch and exit (skip scheduler)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ryver-relay %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("ryver-relay %s starting...", version)

	// Initialize match queue reader
	dbReader, err := reader.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize match queue reader: %v", err)
	}
	defer dbReader.Close()

	// Test database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := dbReader.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	cancel()
	log.Println("Database connection established")

	// Initialize notifier
	var notify notifier.Notifier
	switch cfg.Notifier.Type {
	case "ryver":
		notify, err = notifier.NewRyverNotifier(&cfg.Ryver)
		if err != nil {
			log.Fatalf("Failed to initialize Ryver notifier: %v", err)
		}
	case "console":
		notify = notifier.NewConsoleNotifier()
	default:
		log.Fatalf("Unknown notifier type: %s", cfg.Notifier.Type)
	}
	log.Printf("Notifier initialized: %s", notify.Name())

	// Initialize relay
	rel := relay.New(cfg, dbReader)

	dispatchTimeout, err := cfg.Relay.DispatchTimeoutParsed()
	if err != nil {
		dispatchTimeout = scheduler.DefaultDispatchTimeout
	}

	// Run-once mode
	if *runOnce {
		log.Println("Running single dispatch (--once mode)")

		dispatchCtx, dispatchCancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer dispatchCancel()

		batch, err := rel.Collect(dispatchCtx)
		if err != nil {
			log.Fatalf("Collection failed: %v", err)
		}
		if batch == nil {
			log.Println("No pending matches, exiting")
			return
		}

		if err := notify.Send(dispatchCtx, batch); err != nil {
			log.Fatalf("Notification failed: %v", err)
		}
		if err := rel.Ack(dispatchCtx, batch); err != nil {
			log.Fatalf("Failed to acknowledge batch: %v", err)
		}

		log.Println("Dispatch complete, exiting")
		return
	}

	// Initialize health server
	healthServer := server.New(&cfg.Server, dbReader, notify)
	if err := healthServer.Start(); err != nil {
		log.Fatalf("Failed to start health server: %v", err)
	}

	// Initialize scheduler (cron interpreted in configured timezone; Location set by config.Validate)
	sched := scheduler.New(rel, notify, cfg.Schedule.Location)
	sched.SetDispatchTimeout(dispatchTimeout)
	if err := sched.Schedule(cfg.Schedule.Cron); err != nil {
		log.Fatalf("Failed to schedule job: %v", err)
	}
	sched.Start()
	log.Printf("Scheduler started with cron: %s (timezone: %s)", cfg.Schedule.Cron, cfg.Schedule.Timezone)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop scheduler
	schedCtx := sched.Stop()
	select {
	case <-schedCtx.Done():
	case <-shutdownCtx.Done():
	}

	// Stop health server
	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping health server: %v", err)
	}

	log.Println("Shutdown complete")
}
