package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/camwatch/internal/alert"
	"github.com/yourusername/camwatch/internal/api"
	"github.com/yourusername/camwatch/internal/api/ws"
	"github.com/yourusername/camwatch/internal/camera"
	"github.com/yourusername/camwatch/internal/capture"
	"github.com/yourusername/camwatch/internal/core"
	"github.com/yourusername/camwatch/internal/motion"
	"github.com/yourusername/camwatch/internal/storage"
	"github.com/yourusername/camwatch/internal/watch"
	"github.com/yourusername/camwatch/pkg/logger"
	"go.uber.org/zap"
)

var version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("camwatch %s\n", version)
		os.Exit(0)
	}

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(logger.LogConfig{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	log := logger.Log
	log.Info("Starting camwatch",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	store, err := core.NewStore(cfg.Storage.RuntimeFile, cfg.DetectionDefaults(), log)
	if err != nil {
		log.Fatal("Failed to open runtime store", zap.Error(err))
	}

	registry := camera.NewRegistry(store, log)

	var events *storage.EventRepository
	var db *storage.DB
	if cfg.Storage.DatabasePath != "" {
		db, err = storage.New(cfg.Storage.DatabasePath, log)
		if err != nil {
			log.Fatal("Failed to open event database", zap.Error(err))
		}
		defer db.Close()
		events = storage.NewEventRepository(db, log)
	}

	notifier, err := alert.NewTelegramNotifier(cfg.Telegram, log)
	if err != nil {
		log.Fatal("Failed to configure notifier", zap.Error(err))
	}

	source := capture.NewSource(log)
	settings := motion.NewSettings(store, log)
	detector := motion.NewDetector(settings, log)
	dispatcher := alert.NewDispatcher(notifier, log)

	hub := ws.NewHub(log)
	go hub.Run()

	watcher := watch.New(watch.Config{
		Registry:   registry,
		Source:     source,
		Detector:   detector,
		Settings:   settings,
		Dispatcher: dispatcher,
		Events:     events,
		Sink:       hub,
		Logger:     log,
	})
	watcher.Start()

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Server.HTTPPort,
		Production: cfg.Server.Production,
		Logger:     log,
		Watcher:    watcher,
		Events:     events,
		Hub:        hub,
	})
	if err := apiServer.Start(); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info("Shutting down", zap.String("signal", sig.String()))

	if err := apiServer.Stop(); err != nil {
		log.Error("API server shutdown error", zap.Error(err))
	}
	watcher.Stop()

	log.Info("Shutdown complete")
}
