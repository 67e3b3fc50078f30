package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/smith3v/memory-pairs/pkg/logger"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Auth     AuthConfig     `json:"auth"`
	Game     GameConfig     `json:"game"`
	Logging  LoggingConfig  `json:"logging"`
}

type ServerConfig struct {
	Bind      string `json:"bind" env:"MEMORY_BIND"`
	Port      int    `json:"port" env:"MEMORY_PORT"`
	Prefix    string `json:"prefix" env:"MEMORY_PREFIX"`
	PublicURL string `json:"public_url" env:"MEMORY_PUBLIC_URL"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" env:"MEMORY_DB_DRIVER"`
	Host     string `json:"host" env:"MEMORY_DB_HOST"`
	User     string `json:"user" env:"MEMORY_DB_USER"`
	Password string `json:"password" env:"MEMORY_DB_PASSWORD"`
	DBName   string `json:"dbname" env:"MEMORY_DB_NAME"`
	Port     int    `json:"port" env:"MEMORY_DB_PORT"`
	SSLMode  string `json:"sslmode" env:"MEMORY_DB_SSLMODE"`
	Path     string `json:"path" env:"MEMORY_DB_PATH"`
}

type TelegramConfig struct {
	Token string `json:"token" env:"MEMORY_TELEGRAM_TOKEN"`
}

type AuthConfig struct {
	JWTSecret       string `json:"jwt_secret" env:"MEMORY_JWT_SECRET"`
	TokenTTLMinutes int    `json:"token_ttl_minutes" env:"MEMORY_TOKEN_TTL_MINUTES"`
}

type GameConfig struct {
	SessionTTLMinutes    int `json:"session_ttl_minutes" env:"MEMORY_SESSION_TTL_MINUTES"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes" env:"MEMORY_SWEEP_INTERVAL_MINUTES"`
}

type LoggingConfig struct {
	Level     string `json:"level" env:"MEMORY_LOG_LEVEL"`
	File      string `json:"file" env:"MEMORY_LOG_FILE"`
	Format    string `json:"format" env:"MEMORY_LOG_FORMAT"`
	GormLevel string `json:"gorm_level" env:"MEMORY_GORM_LOG_LEVEL"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func (g GameConfig) SessionTTL() time.Duration {
	return time.Duration(g.SessionTTLMinutes) * time.Minute
}

func (g GameConfig) SweepInterval() time.Duration {
	return time.Duration(g.SweepIntervalMinutes) * time.Minute
}

var AppConfig = Default()

// Default returns the settings used when neither the config file nor the
// environment provide a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Path:    "memory-pairs.db",
		},
		Auth: AuthConfig{
			TokenTTLMinutes: 24 * 60,
		},
		Game: GameConfig{
			SessionTTLMinutes:    120,
			SweepIntervalMinutes: 5,
		},
		Logging: LoggingConfig{
			Level:     "info",
			GormLevel: "warn",
		},
	}
}

// LoadConfig builds AppConfig from defaults, the JSON file at filename, a
// .env file in the working directory and finally MEMORY_* environment
// variables. An empty filename skips the JSON file.
func LoadConfig(filename string) error {
	cfg := Default()

	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			logger.Error("failed to open config file", "error", err)
			return err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			logger.Error("failed to decode config file", "error", err)
			return err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load .env file", "error", err)
		return err
	}

	if err := env.Parse(&cfg); err != nil {
		logger.Error("failed to parse environment overrides", "error", err)
		return fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	AppConfig = cfg
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port))
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("auth.token_ttl_minutes must be positive"))
	}
	if c.Game.SessionTTLMinutes <= 0 {
		errs = append(errs, errors.New("game.session_ttl_minutes must be positive"))
	}
	if c.Game.SweepIntervalMinutes <= 0 {
		errs = append(errs, errors.New("game.sweep_interval_minutes must be positive"))
	}
	return errors.Join(errs...)
}
