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

	"walletbridge/internal/config"
	"walletbridge/internal/constants"
	"walletbridge/internal/database"
	"walletbridge/internal/metrics"
	"walletbridge/internal/service"
	"walletbridge/internal/storage"
	"walletbridge/pkg/apns"
	"walletbridge/pkg/applepass"
	"walletbridge/pkg/googlewallet"

	"github.com/sirupsen/logrus"
)

var configPath = flag.String("config", "config.json", "Path to configuration file")

// The worker drains one job batch and exits. Deployments run it from
// cron or a container scheduler; the long-running server covers the
// polling case.
func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Worker error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LogLevel != "" {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	registry := metrics.NewRegistry()

	timeout := time.Duration(cfg.GoogleWallet.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = constants.DefaultHTTPTimeoutSec * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	apiClient := googlewallet.NewAPIClient(cfg.GoogleWallet.APIBaseURL, cfg.GoogleWallet.APIToken, httpClient, logger)

	links, err := googlewallet.NewSaveLinkBuilder(
		cfg.GoogleWallet.IssuerEmail,
		cfg.GoogleWallet.Origins,
		cfg.GoogleWallet.SaveLinkBaseURL,
		cfg.GoogleWallet.PrivateKeyPath,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize save link builder: %w", err)
	}

	qr := googlewallet.NewQRGenerator(
		cfg.GoogleWallet.ShortenerURL,
		cfg.GoogleWallet.QRRenderURL,
		cfg.GoogleWallet.QRFallbackURL,
		httpClient, logger, registry,
	)

	synchronizer := googlewallet.NewSynchronizer(googlewallet.Config{
		IssuerID:    cfg.GoogleWallet.IssuerID,
		IssuerEmail: cfg.GoogleWallet.IssuerEmail,
		Origins:     cfg.GoogleWallet.Origins,
	}, apiClient, links, qr, logger)

	signer, err := applepass.NewSigner(cfg.ApplePass)
	if err != nil {
		return fmt.Errorf("failed to initialize pass signer: %w", err)
	}
	images := applepass.NewImageFetcher(nil, logger, registry)
	builder := applepass.NewBuilder(cfg.ApplePass, signer, images, logger)

	pusher, err := apns.NewClient(cfg.APNS, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize push client: %w", err)
	}

	artifacts, err := storage.NewArtifactStore(cfg.Artifacts.Dir, cfg.Artifacts.PublicBaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	orchestrator := service.NewOrchestrator(db, synchronizer, builder, artifacts, logger, registry)
	dispatcher := service.NewDispatcher(db, orchestrator, pusher, cfg.Jobs, logger, registry)

	processed, err := dispatcher.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("job batch failed: %w", err)
	}

	logger.WithField("processed", processed).Info("Worker batch complete")
	return nil
}
