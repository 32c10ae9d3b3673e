package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/auth"
	"github.com/draftmill-inc/draftmill-client/pkg/cache"
	"github.com/draftmill-inc/draftmill-client/pkg/clients/processing"
	"github.com/draftmill-inc/draftmill-client/pkg/clients/rest"
	"github.com/draftmill-inc/draftmill-client/pkg/clients/supabase"
	"github.com/draftmill-inc/draftmill-client/pkg/config"
	"github.com/draftmill-inc/draftmill-client/pkg/logging"
	"github.com/draftmill-inc/draftmill-client/pkg/services"
	"github.com/draftmill-inc/draftmill-client/pkg/session"
)

// Version is set at build time via ldflags
var Version = "dev"

// app is the composed client: one backend behind the repository contracts,
// with every service wired against it. Backend selection happens here and
// nowhere else.
type app struct {
	Auth      *auth.Manager
	Templates services.TemplateService
	Reports   services.ReportService
	Schedules services.ScheduleService
	Generator *services.Generator
	Watcher   *services.ReportWatcher
	Cache     *cache.Store
	Session   *session.Store
	// Processing is nil when no processing backend is configured.
	Processing *processing.Client
}

func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := session.NewStore(cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	var (
		authAPI   auth.API
		reports   services.ReportRepository
		templates services.TemplateRepository
		schedules services.ScheduleRepository
		setHook   func(func())
	)

	switch cfg.Backend {
	case config.BackendSupabase:
		client := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.Bucket, store, logger)
		authAPI = client
		reports = client
		templates = client.Templates()
		schedules = client.Schedules()
		setHook = client.SetAuthRejectedHook
	default:
		client := rest.NewClient(cfg.REST.BaseURL, cfg.REST.Timeout, store, logger)
		authAPI = client
		reports = client
		templates = client.Templates()
		schedules = client.Schedules()
		setHook = client.SetAuthRejectedHook
	}

	authManager := auth.NewManager(authAPI, store, logger)
	setHook(authManager.OnAuthRejected)

	var procClient *processing.Client
	var trigger services.ProcessingTrigger
	if cfg.ProcessingConfigured() {
		procClient = processing.NewClient(cfg.ProcessingBaseURL, store, logger)
		trigger = procClient
	}

	caches := cache.NewStore()

	return &app{
		Auth:       authManager,
		Templates:  services.NewTemplateService(templates, logger),
		Reports:    services.NewReportService(reports, caches, logger),
		Schedules:  services.NewScheduleService(schedules, caches, logger),
		Generator:  services.NewGenerator(reports, trigger, caches, logger),
		Watcher:    services.NewReportWatcher(reports, cfg.PollInterval, logger),
		Cache:      caches,
		Session:    store,
		Processing: procClient,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("backend", cfg.Backend),
		zap.Bool("processing_configured", cfg.ProcessingConfigured()),
		zap.Duration("poll_interval", cfg.PollInterval))

	application, err := buildApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to compose client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve the persisted session before anything renders: rehydrate the
	// snapshot, then confirm against the backend.
	application.Auth.Initialize(ctx)
	state := application.Auth.Current()
	logger.Info("session resolved", zap.Bool("authenticated", state.IsAuthenticated))

	if application.Processing != nil {
		if err := application.Processing.Health(ctx); err != nil {
			logger.Warn("processing backend unreachable", zap.Error(err))
		} else {
			logger.Info("processing backend healthy")
		}
	}

	logger.Info("draftmill client ready", zap.String("version", Version))
	<-ctx.Done()
	logger.Info("shutting down")
}
