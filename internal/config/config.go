package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/courtside/internal/domain"
)

// Config is the resolved client configuration.
type Config struct {
	Server               string
	Username             string
	Admin                bool
	SkillLevel           domain.SkillLevel
	CommandTimeout       time.Duration
	NotificationDuration time.Duration
	LogLevel             slog.Level
	LogFile              string
}

const (
	defaultConfigPath          = "~/.config/courtside/config.toml"
	defaultLogFile             = "~/.local/state/courtside/courtside.log"
	defaultServer              = "127.0.0.1:3001"
	defaultCommandTimeoutSecs  = 10
	defaultNotificationSeconds = 3
)

// dotenvPath is read, when present, before the COURTSIDE_* overlay.
var dotenvPath = ".env"

// raw is the file and environment shape. Environment values win over the
// file; unset variables leave the file value alone.
type raw struct {
	Server                string `toml:"server" env:"COURTSIDE_SERVER"`
	Username              string `toml:"username" env:"COURTSIDE_USERNAME"`
	Admin                 bool   `toml:"admin" env:"COURTSIDE_ADMIN"`
	SkillLevel            string `toml:"skill_level" env:"COURTSIDE_SKILL_LEVEL"`
	CommandTimeoutSeconds int    `toml:"command_timeout_seconds" env:"COURTSIDE_COMMAND_TIMEOUT_SECONDS"`
	NotificationSeconds   int    `toml:"notification_seconds" env:"COURTSIDE_NOTIFICATION_SECONDS"`
	LogLevel              string `toml:"log_level" env:"COURTSIDE_LOG_LEVEL"`
	LogFile               string `toml:"log_file" env:"COURTSIDE_LOG_FILE"`
}

// Load reads the TOML config at path (or the default location), applies
// .env and COURTSIDE_* overrides, and fills defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var r raw
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		bytes, readErr := io.ReadAll(file)
		_ = file.Close()
		if readErr != nil {
			return Config{}, fmt.Errorf("read config: %w", readErr)
		}
		if err := toml.Unmarshal(bytes, &r); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
	}
	if _, err := env.UnmarshalFromEnviron(&r); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	return r.resolve()
}

func (r raw) resolve() (Config, error) {
	cfg := Config{
		Server:   strings.TrimSpace(r.Server),
		Username: strings.TrimSpace(r.Username),
		Admin:    r.Admin,
	}
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}

	cfg.SkillLevel = domain.SkillLevel(strings.ToLower(strings.TrimSpace(r.SkillLevel)))
	if cfg.SkillLevel == "" {
		cfg.SkillLevel = domain.SkillBeginner
	}
	if !cfg.SkillLevel.Valid() {
		return Config{}, fmt.Errorf("invalid skill_level %q", r.SkillLevel)
	}

	seconds := r.CommandTimeoutSeconds
	if seconds <= 0 {
		seconds = defaultCommandTimeoutSecs
	}
	cfg.CommandTimeout = time.Duration(seconds) * time.Second

	seconds = r.NotificationSeconds
	if seconds <= 0 {
		seconds = defaultNotificationSeconds
	}
	cfg.NotificationDuration = time.Duration(seconds) * time.Second

	level := strings.TrimSpace(r.LogLevel)
	if level == "" {
		level = "info"
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return Config{}, fmt.Errorf("invalid log_level %q", r.LogLevel)
	}

	logFile := strings.TrimSpace(r.LogFile)
	if logFile == "" {
		logFile = defaultLogFile
	}
	cfg.LogFile = mustExpand(logFile)

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
