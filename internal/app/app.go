package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remivoice/remi/internal/eventlog"
	"github.com/remivoice/remi/internal/gcal"
	"github.com/remivoice/remi/internal/httpapi"
	"github.com/remivoice/remi/internal/jobs"
	"github.com/remivoice/remi/internal/llm"
	"github.com/remivoice/remi/internal/notifications"
	"github.com/remivoice/remi/internal/session"
	"github.com/remivoice/remi/internal/store"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool
	store    *store.Store
	eventLog *eventlog.Logger
	events   session.EventStore // nil when the calendar mirror is unconfigured
	llm      *llm.OpenAIClient
	apns     *notifications.APNsClient
	notifier *jobs.ReminderNotifierJob
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := store.New(db)
	el := eventlog.New(db)

	// Migrations are applied externally by the CI deploy job (docker exec psql).
	// No automatic migration runner at startup.

	var llmClient *llm.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		llmClient = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
	} else {
		logger.Println("app: OPENAI_API_KEY not set, assistant replies disabled")
	}

	// Calendar mirror, nil when unconfigured.
	var events session.EventStore
	gc, err := gcal.NewClient(ctx, gcal.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		TokenFile:    cfg.GoogleTokenFile,
		CalendarID:   cfg.GoogleCalendarID,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if gc != nil {
		events = gc
	}

	apnsClient, err := notifications.NewAPNsClient(notifications.APNsConfig{
		KeyPath:    cfg.APNsKeyPath,
		KeyID:      cfg.APNsKeyID,
		TeamID:     cfg.APNsTeamID,
		BundleID:   cfg.APNsBundleID,
		Production: cfg.APNsProduction,
	}, logger)
	if err != nil {
		logger.Printf("Warning: APNs client initialization failed: %v", err)
	}

	notifier := jobs.NewReminderNotifierJob(s, apnsClient, logger, cfg.NotifierInterval)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    s,
		eventLog: el,
		events:   events,
		llm:      llmClient,
		apns:     apnsClient,
		notifier: notifier,
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		DeepgramAPIKey:  a.cfg.DeepgramAPIKey,
		OpenAIAPIKey:    a.cfg.OpenAIAPIKey,
		STTLanguage:     a.cfg.STTLanguage,
		STTModel:        a.cfg.STTModel,
		STTSampleRate:   a.cfg.STTSampleRate,
		JWTSecret:       a.cfg.JWTSecret,
		JWTExpiry:       a.cfg.JWTExpiry,
		ProvisioningKey: a.cfg.ProvisioningKey,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.store, a.eventLog, a.events, a.llm)
}

// StartJobs starts the background due-reminder notifier.
func (a *App) StartJobs() {
	a.notifier.Start()
}

func (a *App) Close() error {
	if a.notifier != nil {
		a.notifier.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
