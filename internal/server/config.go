// Package server provides configuration helpers that define runtime defaults,
// validation, and the layered loading of settings for the chat service.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

const (
	defaultAddr            = "localhost:8765"
	defaultMaxMessageSize  = 4096
	defaultMessageInterval = time.Second
	defaultHistoryPath     = "chat_history.db"
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// Config holds the server settings. Values are layered: defaults, then an
// optional TOML file, then CHAT_* environment variables.
type Config struct {
	Addr            string        `toml:"addr" env:"CHAT_ADDR"`
	AllowedOrigins  []string      `toml:"allowed_origins" env:"CHAT_ALLOWED_ORIGINS" envSeparator:","`
	MaxMessageSize  int64         `toml:"max_message_size" env:"CHAT_MAX_MESSAGE_SIZE"`
	MessageInterval time.Duration `toml:"message_interval" env:"CHAT_MESSAGE_INTERVAL"`
	HistoryPath     string        `toml:"history_path" env:"CHAT_HISTORY_PATH"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"CHAT_SHUTDOWN_TIMEOUT"`
	LogLevel        string        `toml:"log_level" env:"CHAT_LOG_LEVEL"`
	LogFormat       string        `toml:"log_format" env:"CHAT_LOG_FORMAT"`
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Addr:            defaultAddr,
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  defaultMaxMessageSize,
		MessageInterval: defaultMessageInterval,
		HistoryPath:     defaultHistoryPath,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}

// LoadConfig builds a Config from defaults, the TOML file at path (skipped
// when path is empty) and the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if strings.TrimSpace(path) != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg = sanitizeConfig(cfg)
	return &cfg, nil
}

// sanitizeConfig replaces unusable values with defaults.
func sanitizeConfig(cfg Config) Config {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.MessageInterval <= 0 {
		cfg.MessageInterval = defaultMessageInterval
	}

	if strings.TrimSpace(cfg.HistoryPath) == "" {
		cfg.HistoryPath = defaultHistoryPath
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		cfg.LogLevel = defaultLogLevel
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		cfg.LogFormat = defaultLogFormat
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	return cfg
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg *Config) *log.Logger {
	logger := log.New()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}
