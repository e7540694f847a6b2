package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/focusnest/gamification-service/internal/activity"
	"github.com/focusnest/gamification-service/internal/focusapi"
	sharedauth "github.com/focusnest/gamification-service/shared/auth"
	"github.com/focusnest/gamification-service/shared/envconfig"
)

// Config encapsulates the runtime configuration for the gamification service.
type Config struct {
	Port         string    `validate:"required,numeric"`
	LogLevel     string    `validate:"omitempty,oneof=debug info warn warning error"`
	GCPProjectID string
	DataStore    DataStore `validate:"oneof=memory firestore"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Backend      BackendConfig
	Catalog      CatalogConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps settings and history in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores settings and history in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	EmulatorHost string
	DatabaseID   string
}

// BackendConfig describes the focus tracker backend.
type BackendConfig struct {
	BaseURL string `validate:"required,http_url"`
	// UTCOffset is the fixed zone the backend writes timestamps in.
	UTCOffset string `validate:"required"`
	// DisplayTimezone buckets calendar days for streaks and trends.
	DisplayTimezone string
	Timeout         time.Duration `validate:"gt=0"`

	Location        *time.Location `validate:"-"`
	DisplayLocation *time.Location `validate:"-"`
}

// CatalogConfig points at optional catalog override files.
type CatalogConfig struct {
	AchievementsPath string
	TasksPath        string
}

// Load reads environment variables into Config with validation. A .env file
// in the working directory is honoured when present.
func Load() (Config, error) {
	if err := envconfig.LoadDotEnv(); err != nil {
		return Config{}, err
	}

	timeout, err := envconfig.GetDuration("BACKEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		LogLevel:     strings.ToLower(envconfig.Get("LOG_LEVEL", "info")),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:    DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		Auth: AuthConfig{
			Mode:     sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(sharedauth.ModeNoop)))),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
			DatabaseID:   envconfig.Get("FIRESTORE_DATABASE", ""),
		},
		Backend: BackendConfig{
			BaseURL:         strings.TrimRight(envconfig.Get("BACKEND_BASE_URL", focusapi.DefaultBaseURL), "/"),
			UTCOffset:       envconfig.Get("BACKEND_UTC_OFFSET", "+08:00"),
			DisplayTimezone: envconfig.Get("DISPLAY_TIMEZONE", "Local"),
			Timeout:         timeout,
		},
		Catalog: CatalogConfig{
			AchievementsPath: envconfig.Get("ACHIEVEMENT_CATALOG_PATH", ""),
			TasksPath:        envconfig.Get("TASK_CATALOG_PATH", ""),
		},
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.DataStore == DataStoreFirestore && cfg.GCPProjectID == "" {
		return fmt.Errorf("gcp project id required when datastore=firestore")
	}

	switch cfg.Auth.Mode {
	case sharedauth.ModeClerk:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
		}
	case sharedauth.ModeNoop:
		// no-op
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	loc, err := activity.FixedOffset(cfg.Backend.UTCOffset)
	if err != nil {
		return fmt.Errorf("BACKEND_UTC_OFFSET: %w", err)
	}
	cfg.Backend.Location = loc

	display, err := time.LoadLocation(cfg.Backend.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	cfg.Backend.DisplayLocation = display

	return nil
}
