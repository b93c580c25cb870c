package main

import (
	"os"
	"os/signal"
	"syscall"

	"sonata/internal/config"
	"sonata/internal/engine"
	"sonata/internal/library"
	"sonata/internal/media"
	"sonata/internal/player"
	"sonata/internal/playlist"
	"sonata/internal/session"
	"sonata/internal/store"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Optional .env for local overrides (SONATA_CONFIG, library path).
	_ = godotenv.Load()

	configPath := os.Getenv("SONATA_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	applyLogging(logger, cfg.Logging)

	// Check if music directory exists
	if _, err := os.Stat(cfg.Library.Path); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Library.Path).Fatal("Music directory does not exist. Please create it and add your music files.")
	}

	// Open the blob store backing playlists, session and library cache
	blobs, err := openStore(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error opening storage")
	}
	defer blobs.Close()

	// Wire the library scan pipeline
	source := media.NewFilesystemSource(cfg.Library.Path, cfg.Library.SupportedFormats, logger)
	scanner := media.NewScanner(source, media.KeywordClassifier{}, cfg.Library.PageSize, logger)
	lib := library.NewManager(scanner, blobs, logger)

	playlists := playlist.NewStore(blobs, logger)
	sessions := session.NewManager(blobs, logger)

	factory := engine.NewBeepFactory(logger)
	eng := engine.New(factory.New, logger)

	svc := player.NewService(lib, playlists, eng, sessions, logger)

	// Scan the music library
	if cfg.Library.ScanOnStartup {
		tracks, err := lib.Reload()
		if err != nil {
			logger.WithError(err).Fatal("Error scanning music library")
		}
		if len(tracks) == 0 {
			logger.WithField("supported_formats", cfg.Library.SupportedFormats).Warn("No supported audio files found in music directory")
		} else {
			logger.WithField("track_count", len(tracks)).Info("Music library scanned")
		}
	}

	// Resume where the last run left off, paused
	if err := svc.Restore(); err != nil {
		logger.WithError(err).Warn("Could not restore previous session")
	}

	// Watch the library for changes
	if cfg.Library.WatchForChanges {
		watcher, err := lib.Watch(cfg.Library.Path)
		if err != nil {
			logger.WithError(err).Warn("Could not watch music directory")
		} else {
			defer watcher.Close()
		}
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	logger.Info("Sonata is ready")

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	svc.Shutdown()
}

// applyLogging reconfigures the startup logger from the config file.
func applyLogging(logger *logrus.Logger, cfg config.Logging) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stderr")
		} else {
			logger.SetOutput(file)
		}
	}
}

// openStore picks the persistence backend from config.
func openStore(cfg config.Storage, logger *logrus.Logger) (store.Store, error) {
	if cfg.Backend == "sqlite" {
		return store.NewSQLiteStore(cfg.SQLitePath, logger)
	}
	return store.NewFileStore(cfg.Dir, logger)
}
