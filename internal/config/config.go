// Package config handles application configuration management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from built-in
// defaults, then an optional YAML file, then environment variables.
// Environment variables always win.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Station  StationConfig  `yaml:"station"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Control  ControlConfig  `yaml:"control"`
	Rotation RotationConfig `yaml:"rotation"`
	// LogLevel controls logging verbosity ("info" or "debug")
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`
}

// DatabaseConfig holds MySQL database connection parameters.
type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Database       string `yaml:"name"`
	MigrationsPath string `yaml:"migrations_path"`
}

// StationConfig holds station-wide broadcast settings.
type StationConfig struct {
	// Timezone is the IANA name of the station's local timezone.
	// All schedule times are interpreted in this zone.
	Timezone string `yaml:"timezone"`
}

// WatcherConfig holds schedule boundary watcher settings.
type WatcherConfig struct {
	// Interval is the poll interval between boundary checks.
	Interval time.Duration `yaml:"interval"`
}

// ControlConfig holds the audio engine remote-control connection parameters.
type ControlConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// BannerGrace is how long to drain the greeting banner the engine
	// sends on connect before issuing commands.
	BannerGrace time.Duration `yaml:"banner_grace"`
}

// RotationConfig holds separation gaps for the rotation engine.
type RotationConfig struct {
	ArtistGap   int `yaml:"artist_gap"`
	CategoryGap int `yaml:"category_gap"`
	TitleGap    int `yaml:"title_gap"`
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path skips the file stage.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is operator-supplied
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if _, err := time.LoadLocation(cfg.Station.Timezone); err != nil {
		return nil, fmt.Errorf("invalid station timezone %q: %w", cfg.Station.Timezone, err)
	}
	if cfg.Watcher.Interval <= 0 {
		return nil, fmt.Errorf("watcher interval must be positive, got %s", cfg.Watcher.Interval)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           3306,
			User:           "rotator",
			Password:       "rotator",
			Database:       "rotator",
			MigrationsPath: "migrations",
		},
		Station: StationConfig{
			Timezone: "Europe/Amsterdam",
		},
		Watcher: WatcherConfig{
			Interval: 30 * time.Second,
		},
		Control: ControlConfig{
			Host:        "localhost",
			Port:        1234,
			DialTimeout: 3 * time.Second,
			ReadTimeout: 3 * time.Second,
			BannerGrace: 500 * time.Millisecond,
		},
		Rotation: RotationConfig{
			ArtistGap:   3,
			CategoryGap: 1,
			TitleGap:    2,
		},
		LogLevel:    "info",
		Environment: "development",
	}
}

func applyEnv(cfg *Config) {
	cfg.Database.Host = getEnv("ROTATOR_DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("ROTATOR_DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("ROTATOR_DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("ROTATOR_DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("ROTATOR_DB_NAME", cfg.Database.Database)
	cfg.Database.MigrationsPath = getEnv("ROTATOR_MIGRATIONS_PATH", cfg.Database.MigrationsPath)

	cfg.Station.Timezone = getEnv("ROTATOR_STATION_TIMEZONE", cfg.Station.Timezone)
	cfg.Watcher.Interval = getEnvDuration("ROTATOR_WATCHER_INTERVAL", cfg.Watcher.Interval)

	cfg.Control.Host = getEnv("ROTATOR_CONTROL_HOST", cfg.Control.Host)
	cfg.Control.Port = getEnvInt("ROTATOR_CONTROL_PORT", cfg.Control.Port)
	cfg.Control.DialTimeout = getEnvDuration("ROTATOR_CONTROL_DIAL_TIMEOUT", cfg.Control.DialTimeout)
	cfg.Control.ReadTimeout = getEnvDuration("ROTATOR_CONTROL_READ_TIMEOUT", cfg.Control.ReadTimeout)
	cfg.Control.BannerGrace = getEnvDuration("ROTATOR_CONTROL_BANNER_GRACE", cfg.Control.BannerGrace)

	cfg.Rotation.ArtistGap = getEnvInt("ROTATOR_ARTIST_GAP", cfg.Rotation.ArtistGap)
	cfg.Rotation.CategoryGap = getEnvInt("ROTATOR_CATEGORY_GAP", cfg.Rotation.CategoryGap)
	cfg.Rotation.TitleGap = getEnvInt("ROTATOR_TITLE_GAP", cfg.Rotation.TitleGap)

	cfg.LogLevel = getEnv("ROTATOR_LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = getEnv("ROTATOR_ENV", cfg.Environment)
}

// getEnv returns the value of the environment variable key, or defaultValue if unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
