// cmd/deal-wizard/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"deal-wizard/internal/api"
	commonaws "deal-wizard/internal/common/aws"
	"deal-wizard/internal/common/camunda"
	"deal-wizard/internal/common/config"
	"deal-wizard/internal/common/database"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/observability"
	"deal-wizard/internal/session"
	"deal-wizard/internal/steps/documents"
	financialsync "deal-wizard/internal/steps/financial-sync"
	geometrycapture "deal-wizard/internal/steps/geometry-capture"
	"deal-wizard/internal/steps/lookups"
	neighborselection "deal-wizard/internal/steps/neighbor-selection"
	"deal-wizard/internal/steps/optimization"
	"deal-wizard/internal/steps/submission"
	proformaready "deal-wizard/internal/workers/proforma-ready"
)

const sweepInterval = time.Minute

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting deal wizard...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	// --- Redis (lookup cache, optional) ---
	rdb := database.NewRedis(cfg.Database.Redis)
	cache := rdb.GetClient()
	if err := retryWithBackoff(func() error { return rdb.Ping(ctx) }, 3, time.Second, zapLog, "Redis connection"); err != nil {
		zapLog.Warn("lookup cache disabled", zap.Error(err))
		cache = nil
	}
	defer rdb.Close()

	// --- Elasticsearch (neighbor lookup) ---
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch client init failed", zap.Error(err))
	}
	if err := retryWithBackoff(func() error { return es.Ping(ctx) }, 5, 2*time.Second, zapLog, "Elasticsearch connection"); err != nil {
		zapLog.Warn("elasticsearch unreachable, neighbor lookups will degrade", zap.Error(err))
	}

	// --- Zeebe (onboarding process + pro forma intake, optional) ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe unavailable", zap.Error(err))
		}
		defer zeebe.Close()
	}

	// --- AWS ---
	financialCfg := financialsync.DefaultConfig()
	financialCfg.SNSEnabled = cfg.Integrations.AWS.SNSEnabled
	financialCfg.DesignTopicARN = cfg.Integrations.AWS.DesignTopicARN

	var publisher financialsync.Publisher = financialsync.NewLogPublisher(log)
	if financialCfg.SNSEnabled {
		snsClient, err := commonaws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		publisher = financialsync.NewSNSPublisher(snsClient, financialCfg.DesignTopicARN).
			WithTimeout(financialCfg.PublishTimeout)
	}

	var notifier submission.Notifier
	if cfg.Integrations.AWS.SESEnabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		notifier = submission.NewSESNotifier(sesClient, cfg.Integrations.AWS.FromEmail, cfg.Integrations.AWS.NotifyEmail)
	}

	// --- Wizard collaborators ---
	geocoder := geometrycapture.NewHTTPGeocoder(&geometrycapture.Config{
		GeocoderURL:     cfg.Collaborators.Geocoder.BaseURL,
		GeocoderAPIKey:  cfg.Collaborators.Geocoder.APIKey,
		GeocoderTimeout: config.GetDuration(cfg.Collaborators.Geocoder.Timeout),
	})

	documentsCfg := documents.DefaultConfig()
	documentsCfg.BaseURL = cfg.Collaborators.Documents.BaseURL
	documentsCfg.APIKey = cfg.Collaborators.Documents.APIKey
	documentsCfg.Timeout = config.GetDuration(cfg.Collaborators.Documents.Timeout)
	if cfg.Server.MaxUploadMB > 0 {
		documentsCfg.MaxFileSize = int64(cfg.Server.MaxUploadMB) << 20
	}
	uploader := documents.NewBatchUploader(documents.NewHTTPUploader(documentsCfg), log)

	optimizer := optimization.NewHTTPOptimizer(&optimization.Config{
		OptimizerURL:     cfg.Collaborators.Optimizer.BaseURL,
		OptimizerAPIKey:  cfg.Collaborators.Optimizer.APIKey,
		OptimizerTimeout: config.GetDuration(cfg.Collaborators.Optimizer.Timeout),
	})

	neighborCfg := neighborselection.DefaultConfig()
	neighborCfg.Index = cfg.Database.Elasticsearch.ParcelsIndex
	neighborCfg.RadiusMeters = cfg.Wizard.NeighborRadiusMeters
	neighborCfg.Limit = cfg.Wizard.NeighborLimit
	finder := neighborselection.NewESFinder(es.Client, neighborCfg)

	lookupCfg := lookups.DefaultConfig()
	lookupCfg.CacheTTL = config.GetDuration(cfg.Wizard.LookupCacheTTL)
	lookupSvc := lookups.NewService(lookupCfg, pg.GetDB(), cache, log)

	submissionCfg := submission.DefaultConfig()
	if cfg.Camunda.OnboardingProcessID != "" {
		submissionCfg.OnboardingProcessID = cfg.Camunda.OnboardingProcessID
	}
	submissionCfg.ProcessEnabled = zeebe != nil && cfg.Camunda.ProcessEnabled
	submissionCfg.EmailEnabled = notifier != nil && cfg.Integrations.AWS.NotifyEmail != ""
	submissionCfg.FromEmail = cfg.Integrations.AWS.FromEmail
	submissionCfg.NotifyEmail = cfg.Integrations.AWS.NotifyEmail

	var process submission.ProcessStarter
	if zeebe != nil {
		process = zeebe
	}
	submitter := submission.NewSubmitter(
		submissionCfg,
		submission.NewPostgresRepository(pg.GetDB(), log),
		process,
		notifier,
		obs,
		log,
	)

	manager := session.NewManager(&session.Dependencies{
		Geocoder:  geocoder,
		Lookups:   lookupSvc,
		Uploader:  uploader,
		Finder:    finder,
		Optimizer: optimizer,
		Submitter: submitter,
	}, publisher, config.GetDuration(cfg.Wizard.SessionTTL), log)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go sweepSessions(sweepCtx, manager, sweepInterval, zapLog)

	// --- Pro forma intake worker ---
	var proformaWorker *camunda.JobWorker
	if zeebe != nil && config.IsWorkerEnabled(cfg, config.ProformaReadyWorker) {
		handler, err := proformaready.NewHandler(proformaready.HandlerOptions{
			AppConfig:     cfg,
			Sink:          manager,
			Observability: obs,
			Logger:        log,
		})
		if err != nil {
			zapLog.Fatal("failed to create proforma-ready handler", zap.Error(err))
		}
		proformaWorker = camunda.NewWorker(zeebe.GetClient(), proformaready.TaskType, handler.Config().MaxJobsActive, handler, log)
	}

	// --- HTTP API, health & metrics ---
	checks := map[string]api.ReadinessCheck{
		"postgres":      pg.Ping,
		"elasticsearch": es.Ping,
	}
	if cache != nil {
		checks["redis"] = rdb.Ping
	}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}

	server := api.NewServer(api.Options{
		Manager:     manager,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		Checks:      checks,
		Logger:      log,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	stopSweep()
	if proformaWorker != nil {
		proformaWorker.Stop()
	}

	zapLog.Info("Deal wizard stopped gracefully", zap.Int("sessionsDropped", manager.Len()))
}

// sweepSessions discards idle sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, manager *session.Manager, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := manager.Sweep(); n > 0 {
				log.Info("Expired sessions removed", zap.Int("count", n))
			}
		}
	}
}
