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

	"github.com/api-client/net-store/internal/logger"
	"github.com/api-client/net-store/pkg/backup"
	"github.com/api-client/net-store/pkg/config"
	"github.com/api-client/net-store/pkg/metrics"
	"github.com/api-client/net-store/pkg/reindex"
	"github.com/api-client/net-store/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	runReindex := flag.Bool("reindex", false, "Rebuild secondary indexes and shared links, then exit")
	runBackup := flag.Bool("backup", false, "Export a snapshot, then exit")
	runInit := flag.Bool("init", false, "Write a default config file, then exit")
	forceInit := flag.Bool("force", false, "Overwrite an existing config file (with -init)")
	flag.Parse()

	if *runInit {
		path, err := config.InitConfig(*forceInit)
		if err != nil {
			log.Fatalf("Failed to initialize configuration: %v", err)
		}
		fmt.Printf("Configuration written to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger from config, with CLI override
	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("net-store - multi-tenant persistence server")
	logger.Info("Log level set to: %s", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics collection enabled")
	}

	kvStore, err := config.CreateKVStore(ctx, &cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open key-value store: %v", err)
	}
	logger.Info("Key-value store opened: type=%s", cfg.Store.Type)

	// Maintenance modes run against the opened store and exit
	if *runReindex {
		report, err := reindex.New(kvStore).Run(ctx)
		if err != nil {
			log.Fatalf("Reindex failed: %v", err)
		}
		logger.Info("Reindex complete: %d history rows, %d index rows, %d shared links",
			report.HistoryRows, report.IndexRows, report.SharedLinks)
		closeStore(kvStore.Close)
		return
	}
	if *runBackup {
		target, err := config.CreateBackupTarget(ctx, &cfg.Backup)
		if err != nil {
			log.Fatalf("Failed to create backup target: %v", err)
		}
		name, err := backup.NewExporter(kvStore, target).Export(ctx)
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		logger.Info("Backup complete: %s", name)
		closeStore(kvStore.Close)
		return
	}

	var storeMetrics *metrics.StoreMetrics
	if cfg.Metrics.Enabled {
		storeMetrics = metrics.NewStoreMetrics()
	}

	st, err := store.New(kvStore, store.Options{
		Secret:     cfg.Security.Secret,
		Metrics:    storeMetrics,
		SingleUser: cfg.Server.SingleUser,
	})
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Store is running. Press Ctrl+C to stop.")
	<-sigChan

	logger.Info("Shutdown signal received, closing store...")
	done := make(chan error, 1)
	go func() { done <- st.Close() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Store close error: %v", err)
			os.Exit(1)
		}
		logger.Info("Store closed cleanly")
	case <-time.After(cfg.Server.ShutdownTimeout):
		logger.Error("Shutdown timed out after %v", cfg.Server.ShutdownTimeout)
		os.Exit(1)
	}
}

// closeStore closes the key-value store, logging instead of failing on
// error; maintenance modes have already done their work at this point.
func closeStore(close func() error) {
	if err := close(); err != nil {
		logger.Error("Failed to close key-value store: %v", err)
	}
}
