package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"

	"greenroom/internal/clients"
	"greenroom/internal/config"
	"greenroom/internal/db"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/provider"
	"greenroom/internal/services"
	"greenroom/internal/storage"
	"greenroom/internal/tools"
	"greenroom/internal/tools/catalog"
)

// runtime is the shared wiring every long-running command builds: the
// database, the tool registry, the services, and the external clients.
type runtime struct {
	cfg        *config.Config
	database   db.Database
	repos      *repositories.Repositories
	registry   *tools.Registry
	base       *tools.RunContext
	executor   *services.ExecutorService
	dispatcher *services.DispatcherService
	logger     *logging.Logger

	embeddedNATS *storage.EmbeddedNATS
	natsConn     *nats.Conn
	artifacts    storage.ArtifactStore
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.Debug)

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		database: database,
		repos:    repositories.New(database),
		logger:   logger,
	}

	if err := rt.initArtifactStore(); err != nil {
		rt.Close()
		return nil, err
	}

	var completion provider.CompletionClient
	if cfg.AIAPIKey != "" {
		completion, err = provider.New(provider.Config{
			Provider: cfg.AIProvider,
			Model:    cfg.AIModel,
			APIKey:   cfg.AIAPIKey,
			BaseURL:  cfg.AIBaseURL,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
	} else {
		logger.Debug("No AI API key configured; idea_brief is unavailable")
	}

	rt.base = &tools.RunContext{
		Repos:            rt.repos,
		Artifacts:        rt.artifacts,
		Completion:       completion,
		Search:           clients.NewSearchClient(cfg.SearchAPIURL, cfg.SearchAPIKey),
		Transcripts:      clients.NewTranscriptClient(cfg.TranscriptAPIURL, cfg.TranscriptAPIKey),
		Images:           clients.NewImageClient(cfg.ImageAPIURL, cfg.ImageAPIKey),
		Logger:           logger,
		BatchMaxItems:    cfg.BatchMaxItems,
		BatchConcurrency: cfg.BatchConcurrency,
	}

	rt.registry = tools.NewRegistry()
	catalog.Register(rt.registry)

	rt.executor = services.NewExecutorService(rt.registry, rt.repos, rt.base, telemetryService, logger)
	rt.dispatcher = services.NewDispatcherService(rt.registry, rt.repos, telemetryService, logger)

	return rt, nil
}

// initArtifactStore picks the artifact backend: an external NATS object
// store, an embedded one (nats_url "embedded"), or the local filesystem.
func (rt *runtime) initArtifactStore() error {
	natsURL := rt.cfg.NATSURL

	if natsURL == "embedded" {
		rt.embeddedNATS = storage.NewEmbeddedNATS(storage.EmbeddedNATSConfig{})
		if err := rt.embeddedNATS.Start(); err != nil {
			return err
		}
		natsURL = rt.embeddedNATS.ClientURL()
		rt.logger.Info("Embedded NATS server started at %s", natsURL)
	}

	if natsURL != "" {
		conn, err := nats.Connect(natsURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
		}
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to open JetStream context: %w", err)
		}

		store, err := storage.NewNATSArtifactStore(js, storage.Config{
			BucketName:      rt.cfg.ArtifactBucket,
			MaxArtifactSize: storage.DefaultConfig().MaxArtifactSize,
		})
		if err != nil {
			conn.Close()
			return err
		}

		rt.natsConn = conn
		rt.artifacts = store
		return nil
	}

	dir := rt.cfg.ArtifactDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to determine home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".local", "share", "greenroom", "artifacts")
	}

	store, err := storage.NewLocalArtifactStore(dir)
	if err != nil {
		return err
	}
	rt.artifacts = store
	return nil
}

func (rt *runtime) Close() {
	if rt.artifacts != nil {
		rt.artifacts.Close()
	}
	if rt.natsConn != nil {
		rt.natsConn.Close()
	}
	if rt.embeddedNATS != nil {
		rt.embeddedNATS.Shutdown()
	}
	if rt.database != nil {
		rt.database.Close()
	}
}
