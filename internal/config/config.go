package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the top-level helpdesk configuration.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Auth   AuthConfig   `json:"auth" yaml:"auth"`
	Log    LogConfig    `json:"log" yaml:"log"`
	Digest DigestConfig `json:"digest" yaml:"digest"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host          string `json:"host" yaml:"host"`
	Port          int    `json:"port" yaml:"port"`
	AllowedOrigin string `json:"allowed_origin,omitempty" yaml:"allowed_origin,omitempty"`
	DisableGzip   bool   `json:"disable_gzip,omitempty" yaml:"disable_gzip,omitempty"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// AuthConfig holds account and session settings.
type AuthConfig struct {
	SessionTTL    string       `json:"session_ttl,omitempty" yaml:"session_ttl,omitempty"` // Go duration, default 720h
	EmailDomain   string       `json:"email_domain,omitempty" yaml:"email_domain,omitempty"`
	PurgeSchedule string       `json:"purge_schedule,omitempty" yaml:"purge_schedule,omitempty"`
	Admin         *AdminConfig `json:"admin,omitempty" yaml:"admin,omitempty"`
}

// TTL returns the parsed session lifetime. Call after Validate.
func (a AuthConfig) TTL() time.Duration {
	d, _ := time.ParseDuration(a.SessionTTL)
	return d
}

// AdminConfig seeds the first administrator account.
type AdminConfig struct {
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level     string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format    string `json:"format,omitempty" yaml:"format,omitempty"` // json or text
	BufferLen int    `json:"buffer_len,omitempty" yaml:"buffer_len,omitempty"`
}

// DigestConfig schedules the open-ticket digest and its sinks.
type DigestConfig struct {
	Schedule string          `json:"schedule,omitempty" yaml:"schedule,omitempty"` // cron expression
	Slack    *SlackConfig    `json:"slack,omitempty" yaml:"slack,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
}

// Enabled reports whether the digest has a schedule and somewhere to go.
func (d DigestConfig) Enabled() bool {
	return d.Schedule != "" && (d.Slack != nil || d.Telegram != nil)
}

// SlackConfig holds the incoming-webhook URL for the digest.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token  string `json:"token" yaml:"token"`
	ChatID int64  `json:"chat_id" yaml:"chat_id"`
}

// Load reads configuration from a .json, .jsonc or .yaml/.yml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from HELPDESK_* environment variables.
// When envFile exists it is loaded first; variables already set in the
// environment win over the file.
func LoadFromEnv(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:          getenv("HELPDESK_HOST", "0.0.0.0"),
			Port:          getenvInt("HELPDESK_PORT", 8080),
			AllowedOrigin: os.Getenv("HELPDESK_ALLOWED_ORIGIN"),
			DisableGzip:   getenvBool("HELPDESK_DISABLE_GZIP"),
		},
		Store: StoreConfig{Path: getenv("HELPDESK_DB_PATH", "helpdesk.db")},
		Auth: AuthConfig{
			SessionTTL:    os.Getenv("HELPDESK_SESSION_TTL"),
			EmailDomain:   os.Getenv("HELPDESK_EMAIL_DOMAIN"),
			PurgeSchedule: os.Getenv("HELPDESK_PURGE_SCHEDULE"),
		},
		Log: LogConfig{
			Level:  os.Getenv("HELPDESK_LOG_LEVEL"),
			Format: os.Getenv("HELPDESK_LOG_FORMAT"),
		},
		Digest: DigestConfig{Schedule: os.Getenv("HELPDESK_DIGEST_SCHEDULE")},
	}

	if email := os.Getenv("HELPDESK_ADMIN_EMAIL"); email != "" {
		cfg.Auth.Admin = &AdminConfig{
			Username: getenv("HELPDESK_ADMIN_USERNAME", "admin"),
			Email:    email,
			Password: os.Getenv("HELPDESK_ADMIN_PASSWORD"),
		}
	}
	if url := os.Getenv("HELPDESK_SLACK_WEBHOOK_URL"); url != "" {
		cfg.Digest.Slack = &SlackConfig{WebhookURL: url}
	}
	if token := os.Getenv("HELPDESK_TELEGRAM_TOKEN"); token != "" {
		cfg.Digest.Telegram = &TelegramConfig{Token: token}
		if id := os.Getenv("HELPDESK_TELEGRAM_CHAT_ID"); id != "" {
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config: HELPDESK_TELEGRAM_CHAT_ID: invalid integer %q", id)
			}
			cfg.Digest.Telegram.ChatID = n
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Store.Path == "" {
		c.Store.Path = "helpdesk.db"
	}
	if c.Auth.SessionTTL == "" {
		c.Auth.SessionTTL = "720h"
	}
	if c.Auth.PurgeSchedule == "" {
		c.Auth.PurgeSchedule = "@hourly"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.BufferLen == 0 {
		c.Log.BufferLen = 1000
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if d, err := time.ParseDuration(c.Auth.SessionTTL); err != nil || d <= 0 {
		errs = append(errs, fmt.Sprintf("auth.session_ttl %q is not a positive duration", c.Auth.SessionTTL))
	}
	if a := c.Auth.Admin; a != nil {
		if a.Email == "" {
			errs = append(errs, "auth.admin.email is required")
		}
		if len(a.Password) < 6 {
			errs = append(errs, "auth.admin.password must be at least 6 characters")
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Sprintf("log.format %q is not json or text", c.Log.Format))
	}
	if s := c.Digest.Slack; s != nil && s.WebhookURL == "" {
		errs = append(errs, "digest.slack.webhook_url is required")
	}
	if tg := c.Digest.Telegram; tg != nil {
		if tg.Token == "" {
			errs = append(errs, "digest.telegram.token is required")
		}
		if tg.ChatID == 0 {
			errs = append(errs, "digest.telegram.chat_id is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
