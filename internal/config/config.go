package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Data    DataConfig
	Index   IndexConfig
	Figures FiguresConfig
	Logging LoggingConfig
}

// DataConfig locates the source dataset on disk.
type DataConfig struct {
	MetadataPath    string
	ObservationsDir string
	ArchiveDir      string
}

// IndexConfig configures the SQLite observation index.
type IndexConfig struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
	BatchSize    int
}

// FiguresConfig configures chart output.
type FiguresConfig struct {
	OutputDir string
	Format    string
}

type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from environment variables, applying
// defaults for anything unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Data: DataConfig{
			MetadataPath:    getEnv("CORALDB_METADATA_PATH", "./data/metadata.csv"),
			ObservationsDir: getEnv("CORALDB_OBSERVATIONS_DIR", "./data/observations"),
			ArchiveDir:      getEnv("CORALDB_ARCHIVE_DIR", "./data/archive"),
		},
		Index: IndexConfig{
			Path:         getEnv("CORALDB_INDEX_PATH", "./coraldb.sqlite"),
			BusyTimeout:  getEnvDuration("CORALDB_INDEX_BUSY_TIMEOUT", 5*time.Second),
			MaxOpenConns: getEnvInt("CORALDB_INDEX_MAX_OPEN_CONNS", 1),
			BatchSize:    getEnvInt("CORALDB_INDEX_BATCH_SIZE", 1000),
		},
		Figures: FiguresConfig{
			OutputDir: getEnv("CORALDB_FIGURES_DIR", "./figures"),
			Format:    getEnv("CORALDB_FIGURES_FORMAT", "png"),
		},
		Logging: LoggingConfig{
			Level: getEnv("CORALDB_LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index batch size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.MaxOpenConns <= 0 {
		return fmt.Errorf("index max open connections must be positive, got %d", c.Index.MaxOpenConns)
	}
	switch c.Figures.Format {
	case "png", "svg", "pdf":
	default:
		return fmt.Errorf("unsupported figure format %q", c.Figures.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
