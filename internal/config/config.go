// Package config loads badgify settings from the environment.
//
// Settings come from BADGIFY_* variables. Before reading them, Load
// sources .env.<BADGIFY_ENV> if present, otherwise .env; variables already
// set in the process win over both files. CLI flags override the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/roach88/badgify/internal/badge"
)

// Defaults.
const (
	DefaultDBPath     = "badgify.db"
	DefaultRecipesDir = "recipes"
	DefaultBatchSize  = 500
	DefaultIDsLimit   = 1000
	DefaultWorkers    = 1
	DefaultLockTTL    = 5 * time.Minute
	DefaultSchedule   = "@every 1h"
)

// Config holds every badgify setting.
type Config struct {
	// Env selects the .env.<Env> file. Default "development".
	Env string

	// DBPath is the SQLite file holding badges and awards.
	DBPath string `validate:"required"`

	// RecipesDir holds the *.cue recipe files.
	RecipesDir string `validate:"required"`

	// UserDBDriver and UserDBDSN open the database membership queries run on.
	// Empty driver means the badge database is used.
	UserDBDriver string `validate:"omitempty,oneof=sqlite3 postgres"`
	UserDBDSN    string `validate:"required_with=UserDBDriver"`

	BatchSize int `validate:"min=1"`
	IDsLimit  int `validate:"min=1,max=30000"`
	Workers   int `validate:"min=1,max=64"`

	// AutoDenormalize keeps holder counts current as awards change.
	AutoDenormalize bool

	// SalvageDuplicates replays a batch rejected for a duplicate pair row by row.
	SalvageDuplicates bool

	// RevokeStale deletes awards of users who no longer qualify.
	RevokeStale bool

	// RedisURL selects the Redis lock backend. Empty means in-process locks.
	RedisURL string        `validate:"omitempty,url"`
	LockTTL  time.Duration `validate:"min=1s"`

	// Schedule is the cron spec used by `badgify schedule`.
	Schedule string `validate:"required"`

	LogLevel string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Load reads configuration using .env files from the working directory.
func Load() (*Config, error) {
	return LoadDir(".")
}

// LoadDir reads configuration using .env files from dir.
func LoadDir(dir string) (*Config, error) {
	env := getEnv("BADGIFY_ENV", "development")

	envFile := filepath.Join(dir, ".env."+env)
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(filepath.Join(dir, ".env")); err == nil {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	r := &envReader{}
	cfg := &Config{
		Env:               env,
		DBPath:            getEnv("BADGIFY_DB", DefaultDBPath),
		RecipesDir:        getEnv("BADGIFY_RECIPES", DefaultRecipesDir),
		UserDBDriver:      getEnv("BADGIFY_USER_DB_DRIVER", ""),
		UserDBDSN:         getEnv("BADGIFY_USER_DB_DSN", ""),
		BatchSize:         r.intVar("BADGIFY_BATCH_SIZE", DefaultBatchSize),
		IDsLimit:          r.intVar("BADGIFY_IDS_LIMIT", DefaultIDsLimit),
		Workers:           r.intVar("BADGIFY_WORKERS", DefaultWorkers),
		AutoDenormalize:   r.boolVar("BADGIFY_AUTO_DENORMALIZE", true),
		SalvageDuplicates: r.boolVar("BADGIFY_SALVAGE_DUPLICATES", true),
		RevokeStale:       r.boolVar("BADGIFY_REVOKE", false),
		RedisURL:          getEnv("BADGIFY_REDIS_URL", ""),
		LockTTL:           r.durationVar("BADGIFY_LOCK_TTL", DefaultLockTTL),
		Schedule:          getEnv("BADGIFY_SCHEDULE", DefaultSchedule),
		LogLevel:          strings.ToLower(getEnv("BADGIFY_LOG_LEVEL", "info")),
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
// Errors wrap badge.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", badge.ErrInvalidConfiguration, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			problems = append(problems, fmt.Sprintf("%s failed %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", badge.ErrInvalidConfiguration, strings.Join(problems, "; "))
}

// Level returns the slog level matching LogLevel.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether Env is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables, keeping the first parse failure.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %w", badge.ErrInvalidConfiguration, key, value, err)
	}
}

func (r *envReader) intVar(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (r *envReader) boolVar(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return b
}

func (r *envReader) durationVar(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return d
}
