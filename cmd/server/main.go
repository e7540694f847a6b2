package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/focusnest/gamification-service/internal/achievement"
	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/clock"
	"github.com/focusnest/gamification-service/internal/config"
	"github.com/focusnest/gamification-service/internal/control"
	"github.com/focusnest/gamification-service/internal/dashboard"
	"github.com/focusnest/gamification-service/internal/focusapi"
	"github.com/focusnest/gamification-service/internal/history"
	"github.com/focusnest/gamification-service/internal/httpapi"
	"github.com/focusnest/gamification-service/internal/metrics"
	"github.com/focusnest/gamification-service/internal/settings"
	"github.com/focusnest/gamification-service/internal/task"
	sharedauth "github.com/focusnest/gamification-service/shared/auth"
	"github.com/focusnest/gamification-service/shared/logging"
	sharedserver "github.com/focusnest/gamification-service/shared/server"
	"github.com/focusnest/gamification-service/shared/telemetry"
)

const serviceName = "gamification-service"

type repositories struct {
	settings settings.Repository
	history  history.Repository
}

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)
	tm := telemetry.NewMetrics(serviceName)

	repos, cleanup, err := newRepositories(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("repository init error: %w", err))
	}
	defer cleanup()

	sysClock := clock.NewSystemClock()

	settingsService, err := settings.NewService(repos.settings, sysClock, settings.Defaults{
		BaseURL: cfg.Backend.BaseURL,
	})
	if err != nil {
		panic(fmt.Errorf("settings service init error: %w", err))
	}

	// Each owner may point the dashboard at their own backend.
	backend := focusapi.NewClient(settingsService, cfg.Backend.Timeout, focusapi.WithMetrics(tm))

	normalizer, err := activity.NewNormalizer(cfg.Backend.Location, activity.NewUUIDGenerator())
	if err != nil {
		panic(fmt.Errorf("normalizer init error: %w", err))
	}
	calc := metrics.New(sysClock, cfg.Backend.DisplayLocation)

	achievements, err := achievement.LoadCatalog(cfg.Catalog.AchievementsPath)
	if err != nil {
		panic(fmt.Errorf("achievement catalog error: %w", err))
	}
	tasks, err := task.LoadCatalog(cfg.Catalog.TasksPath)
	if err != nil {
		panic(fmt.Errorf("task catalog error: %w", err))
	}

	dashboardService, err := dashboard.NewService(backend, normalizer, calc, dashboard.Options{
		Achievements: achievements,
		Tasks:        tasks,
		History:      repos.history,
		Metrics:      tm,
		Logger:       logger,
		Clock:        sysClock,
	})
	if err != nil {
		panic(fmt.Errorf("dashboard service init error: %w", err))
	}

	controlService, err := control.NewService(backend, logger)
	if err != nil {
		panic(fmt.Errorf("control service init error: %w", err))
	}

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := sharedserver.NewRouter(serviceName, sharedserver.RouterOptions{Logger: logger, Metrics: tm}, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))

			httpapi.RegisterRoutes(r, dashboardService, settingsService, controlService, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("gamification service configured",
		"datastore", string(cfg.DataStore),
		"backend", cfg.Backend.BaseURL,
		"achievements", len(achievements),
		"tasks", len(tasks),
	)

	if err := sharedserver.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepositories(ctx context.Context, cfg config.Config) (repositories, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return repositories{}, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		var (
			client *firestore.Client
			err    error
		)
		if cfg.Firestore.DatabaseID != "" {
			client, err = firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.DatabaseID)
		} else {
			client, err = firestore.NewClient(ctx, cfg.GCPProjectID)
		}
		if err != nil {
			return repositories{}, nil, fmt.Errorf("firestore client: %w", err)
		}

		repos := repositories{
			settings: settings.NewFirestoreRepository(client),
			history:  history.NewFirestoreRepository(client),
		}
		cleanup := func() {
			_ = client.Close()
		}
		return repos, cleanup, nil
	default:
		repos := repositories{
			settings: settings.NewMemoryRepository(),
			history:  history.NewMemoryRepository(),
		}
		return repos, func() {}, nil
	}
}
