package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/api"
	"github.com/rahulm/onebox/internal/classify"
	"github.com/rahulm/onebox/internal/config"
	"github.com/rahulm/onebox/internal/embedding"
	"github.com/rahulm/onebox/internal/index"
	"github.com/rahulm/onebox/internal/ingest"
	"github.com/rahulm/onebox/internal/llm"
	"github.com/rahulm/onebox/internal/mail"
	"github.com/rahulm/onebox/internal/notify"
	"github.com/rahulm/onebox/internal/reply"
	"github.com/rahulm/onebox/internal/storage"
	"github.com/rahulm/onebox/internal/vector"
)

var (
	version     = "dev"
	configPath  = flag.String("config", "config.yaml", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("onebox-server version %s\n", version)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting onebox server")

	// Search index. Schema provisioning is the one fatal store condition.
	indexDB, err := storage.Open(cfg.Storage.IndexPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open index storage")
	}
	defer indexDB.Close()

	searchIndex := index.New(indexDB, logger)
	if err := searchIndex.EnsureSchema(); err != nil {
		logger.WithError(err).Fatal("Failed to provision index schema")
	}

	// Vector store with the fixed knowledge corpus.
	vectorDB, err := storage.Open(cfg.Storage.VectorPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open vector storage")
	}
	defer vectorDB.Close()

	embedder := embedding.New()
	vectors := vector.New(vectorDB, logger)
	if err := vectors.Seed(embedder); err != nil {
		logger.WithError(err).Fatal("Failed to seed knowledge collection")
	}

	model := llm.NewGemini(cfg.AI.GeminiAPIKey, llm.WithModel(cfg.AI.Model))
	classifier := classify.New(model, searchIndex, classify.DefaultPromptConfig(), logger)
	notifier := notify.New(cfg.Notify.SlackWebhookURL, cfg.Notify.WebhookURL, logger)
	replies := reply.New(embedder, vectors, model, searchIndex, logger)
	pipeline := ingest.New(searchIndex, classifier, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := mail.NewWatcher(
		cfg.ValidAccounts(logger),
		pipeline,
		time.Duration(cfg.Sync.WindowDays)*24*time.Hour,
		cfg.Sync.MaxBackfill,
		logger,
	)
	watcher.Start(ctx)

	server := api.NewServer(searchIndex, classifier, replies, logger)

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.ListenAddr).Info("HTTP API listening")
		if err := server.Start(cfg.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown failed")
	}

	// Let in-flight classification tasks settle before closing the stores.
	pipeline.Wait()

	logger.Info("Shutting down onebox server")
}
