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
	"walletbridge/internal/models"
	"walletbridge/internal/service"
	"walletbridge/internal/storage"
	"walletbridge/internal/tracing"
	"walletbridge/pkg/apns"
	"walletbridge/pkg/applepass"
	"walletbridge/pkg/googlewallet"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("WalletBridge %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting WalletBridge")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	registry := metrics.NewRegistry()

	orchestrator, dispatcher, artifacts, err := buildServices(cfg, db, registry, logger)
	if err != nil {
		return err
	}

	server := NewServer(db, orchestrator, dispatcher, artifacts, registry, cfg, logger)

	if cfg.Jobs.PollIntervalSec > 0 {
		scheduler := service.NewScheduler(dispatcher, cfg.Jobs.PollIntervalSec, logger)
		go scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info("WalletBridge stopped")
	return nil
}

// buildServices wires both provider clients, the orchestrator and the
// dispatcher from configuration.
func buildServices(cfg *models.Config, db *database.Database, registry *metrics.Registry, logger *logrus.Logger) (*service.Orchestrator, *service.Dispatcher, *storage.ArtifactStore, error) {
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
		return nil, nil, nil, fmt.Errorf("failed to initialize save link builder: %w", err)
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
		return nil, nil, nil, fmt.Errorf("failed to initialize pass signer: %w", err)
	}

	imageTimeout := time.Duration(cfg.ApplePass.ImageTimeoutSec) * time.Second
	if imageTimeout == 0 {
		imageTimeout = constants.DefaultImageFetchSec * time.Second
	}
	images := applepass.NewImageFetcher(&http.Client{Timeout: imageTimeout}, logger, registry)
	builder := applepass.NewBuilder(cfg.ApplePass, signer, images, logger)

	pusher, err := apns.NewClient(cfg.APNS, nil, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize push client: %w", err)
	}

	artifacts, err := storage.NewArtifactStore(cfg.Artifacts.Dir, cfg.Artifacts.PublicBaseURL, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	orchestrator := service.NewOrchestrator(db, synchronizer, builder, artifacts, logger, registry)
	dispatcher := service.NewDispatcher(db, orchestrator, pusher, cfg.Jobs, logger, registry)

	return orchestrator, dispatcher, artifacts, nil
}
