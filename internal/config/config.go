package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

// Config represents runtime configuration derived from environment variables.
// It is loaded once in main and passed into every component that needs
// credentials or tunables; nothing reads the environment after startup.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Platforms PlatformsConfig
	Ingestion IngestionConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string
}

// PlatformsConfig carries provider API credentials and host overrides.
type PlatformsConfig struct {
	TikTokAPIKey     string
	TikTokBaseURL    string
	InstagramAPIKey  string
	InstagramBaseURL string
	YouTubeAPIKey    string
	YouTubeBaseURL   string
}

// IngestionConfig carries the sweep and batch tunables.
type IngestionConfig struct {
	PollInterval   time.Duration
	SweepWidth     int
	AccountTimeout time.Duration
	Cadence        models.Cadence
	BatchMax       int
	ChunkSize      int
	RequestDelay   time.Duration
	TikTokPages    int
	InstagramPages int
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultPollInterval   = 5 * time.Minute
	defaultSweepWidth     = 3
	defaultAccountTimeout = 90 * time.Second
	defaultBatchMax       = 50
	defaultChunkSize      = 5
	defaultRequestDelay   = 500 * time.Millisecond
	defaultTikTokPages    = 3
	defaultInstagramPages = 5
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", defaultPort),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Platforms: PlatformsConfig{
			TikTokAPIKey:     os.Getenv("TIKTOK_API_KEY"),
			TikTokBaseURL:    os.Getenv("TIKTOK_API_BASE_URL"),
			InstagramAPIKey:  os.Getenv("INSTAGRAM_API_KEY"),
			InstagramBaseURL: os.Getenv("INSTAGRAM_API_BASE_URL"),
			YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
			YouTubeBaseURL:   os.Getenv("YOUTUBE_API_BASE_URL"),
		},
		Ingestion: IngestionConfig{
			PollInterval:   defaultPollInterval,
			SweepWidth:     defaultSweepWidth,
			AccountTimeout: defaultAccountTimeout,
			Cadence:        models.CadenceManual,
			BatchMax:       defaultBatchMax,
			ChunkSize:      defaultChunkSize,
			RequestDelay:   defaultRequestDelay,
			TikTokPages:    defaultTikTokPages,
			InstagramPages: defaultInstagramPages,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SWEEP_POLL_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SWEEP_POLL_INTERVAL_SECONDS: %w", err)
		}
		cfg.Ingestion.PollInterval = d
	}

	if v := os.Getenv("SWEEP_WIDTH"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SWEEP_WIDTH: %w", err)
		}
		cfg.Ingestion.SweepWidth = n
	}

	if v := os.Getenv("SWEEP_ACCOUNT_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SWEEP_ACCOUNT_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Ingestion.AccountTimeout = d
	}

	if v := os.Getenv("SWEEP_CADENCE"); v != "" {
		switch models.Cadence(v) {
		case models.CadenceTesting, models.CadenceHourly, models.CadenceDaily, models.CadenceManual:
			cfg.Ingestion.Cadence = models.Cadence(v)
		default:
			return Config{}, fmt.Errorf("invalid SWEEP_CADENCE: must be one of testing, hourly, daily, manual")
		}
	}

	if v := os.Getenv("BATCH_MAX_URLS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BATCH_MAX_URLS: %w", err)
		}
		cfg.Ingestion.BatchMax = n
	}

	if v := os.Getenv("BATCH_CHUNK_SIZE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BATCH_CHUNK_SIZE: %w", err)
		}
		cfg.Ingestion.ChunkSize = n
	}

	if v := os.Getenv("REQUEST_DELAY_MS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REQUEST_DELAY_MS: %w", err)
		}
		cfg.Ingestion.RequestDelay = time.Duration(n) * time.Millisecond
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
