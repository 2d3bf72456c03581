package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string         `yaml:"port"`
	PublicBaseURL string         `yaml:"public_base_url"`
	UploadDir     string         `yaml:"upload_dir"`
	LogLevel      string         `yaml:"log_level"`
	Database      DatabaseConfig `yaml:"database"`
	JWT           JWTConfig      `yaml:"jwt"`
	Metrics       MetricsConfig  `yaml:"metrics"`
	CORSOrigin    string         `yaml:"cors_origin"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	TTL      time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Port:          "8008",
		PublicBaseURL: "http://localhost:8008",
		UploadDir:     "uploads",
		LogLevel:      "info",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "project-management.db",
		},
		JWT: JWTConfig{
			Secret:   "development-insecure-secret-change-me",
			Issuer:   "project-management-api",
			Audience: "project-management-clients",
			TTL:      24 * time.Hour,
		},
		Metrics:    MetricsConfig{Enabled: true},
		CORSOrigin: "*",
	}
}

// Load builds the config from defaults, then the optional YAML file, then
// local.env (skipped when ENVIRONMENT=PROD), then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if os.Getenv("ENVIRONMENT") != "PROD" {
		if err := godotenv.Load("local.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load local.env: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("APP_PORT", cfg.Port)
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", cfg.PublicBaseURL), "/")
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)
	cfg.JWT.Audience = getEnv("JWT_AUDIENCE", cfg.JWT.Audience)

	if v := os.Getenv("JWT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_TTL: %w", err)
		}
		cfg.JWT.TTL = ttl
	}
	if v := os.Getenv("DB_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_DEBUG: %w", err)
		}
		cfg.Database.Debug = b
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("port is required")
	case c.JWT.Secret == "":
		return errors.New("jwt secret is required")
	case c.JWT.TTL <= 0:
		return errors.New("jwt ttl must be positive")
	case c.Database.Driver == "postgres" && c.Database.DSN == "":
		return errors.New("postgres driver needs DB_DSN")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
