// Package config loads the service configuration from defaults, an optional
// YAML file, a .env file and MEMENTO_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type PostmarkConfig struct {
	ServerToken string `yaml:"server_token"`
	From        string `yaml:"from"`
}

type VAPIDConfig struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	Subscriber string `yaml:"subscriber"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

// BackupConfig enables encrypted snapshots of the SQLite file in an
// S3-compatible bucket. Backups are off while Bucket or Passphrase is empty.
type BackupConfig struct {
	Bucket        string `yaml:"bucket"`
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Prefix        string `yaml:"prefix"`
	Passphrase    string `yaml:"passphrase"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
}

func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.Passphrase != ""
}

type Config struct {
	Port   string `yaml:"port"`
	DBPath string `yaml:"db_path"`
	// EventsBackend selects where events and messages live: sqlite (same
	// file as accounts), postgres, or memory.
	EventsBackend string `yaml:"events_backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	BaseURL       string `yaml:"base_url"`
	// Timezone is the IANA zone that defines "today".
	Timezone     string `yaml:"timezone"`
	ReminderCron string `yaml:"reminder_cron"`
	CookieSecure bool   `yaml:"cookie_secure"`

	Gemini   GeminiConfig   `yaml:"gemini"`
	Postmark PostmarkConfig `yaml:"postmark"`
	VAPID    VAPIDConfig    `yaml:"vapid"`
	Telegram TelegramConfig `yaml:"telegram"`
	Backup   BackupConfig   `yaml:"backup"`
}

func Default() *Config {
	return &Config{
		Port:          "8080",
		DBPath:        "memento.db",
		EventsBackend: BackendSQLite,
		LogLevel:      "info",
		LogFormat:     "text",
		BaseURL:       "http://localhost:8080",
		Timezone:      "UTC",
		ReminderCron:  "0 8 * * *",
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
		},
		Postmark: PostmarkConfig{From: "reminders@memento.app"},
		Backup: BackupConfig{
			Region:        "us-east-1",
			Schedule:      "0 3 * * *",
			RetentionDays: 30,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// MEMENTO_CONFIG is consulted; a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("MEMENTO_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"MEMENTO_PORT":              &c.Port,
		"MEMENTO_DB_PATH":           &c.DBPath,
		"MEMENTO_EVENTS_BACKEND":    &c.EventsBackend,
		"MEMENTO_POSTGRES_DSN":      &c.PostgresDSN,
		"MEMENTO_LOG_LEVEL":         &c.LogLevel,
		"MEMENTO_LOG_FORMAT":        &c.LogFormat,
		"MEMENTO_BASE_URL":          &c.BaseURL,
		"MEMENTO_TIMEZONE":          &c.Timezone,
		"MEMENTO_REMINDER_CRON":     &c.ReminderCron,
		"MEMENTO_GEMINI_API_KEY":    &c.Gemini.APIKey,
		"MEMENTO_GEMINI_MODEL":      &c.Gemini.Model,
		"MEMENTO_GEMINI_BASE_URL":   &c.Gemini.BaseURL,
		"MEMENTO_POSTMARK_TOKEN":    &c.Postmark.ServerToken,
		"MEMENTO_POSTMARK_FROM":     &c.Postmark.From,
		"MEMENTO_VAPID_PUBLIC_KEY":  &c.VAPID.PublicKey,
		"MEMENTO_VAPID_PRIVATE_KEY": &c.VAPID.PrivateKey,
		"MEMENTO_VAPID_SUBSCRIBER":  &c.VAPID.Subscriber,
		"MEMENTO_TELEGRAM_TOKEN":    &c.Telegram.Token,
		"MEMENTO_BACKUP_BUCKET":     &c.Backup.Bucket,
		"MEMENTO_BACKUP_ENDPOINT":   &c.Backup.Endpoint,
		"MEMENTO_BACKUP_REGION":     &c.Backup.Region,
		"MEMENTO_BACKUP_ACCESS_KEY": &c.Backup.AccessKey,
		"MEMENTO_BACKUP_SECRET_KEY": &c.Backup.SecretKey,
		"MEMENTO_BACKUP_PREFIX":     &c.Backup.Prefix,
		"MEMENTO_BACKUP_PASSPHRASE": &c.Backup.Passphrase,
		"MEMENTO_BACKUP_SCHEDULE":   &c.Backup.Schedule,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	// plain GEMINI_API_KEY is accepted as a fallback
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if v, ok := os.LookupEnv("MEMENTO_COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEMENTO_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v, ok := os.LookupEnv("MEMENTO_BACKUP_RETENTION_DAYS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEMENTO_BACKUP_RETENTION_DAYS: %w", err)
		}
		c.Backup.RetentionDays = n
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.EventsBackend {
	case BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("events_backend postgres requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown events_backend %q", c.EventsBackend)
	}
	if c.Port == "" {
		return errors.New("port is empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.ReminderCron); err != nil {
		return fmt.Errorf("reminder_cron %q: %w", c.ReminderCron, err)
	}
	if c.Backup.Enabled() {
		if c.Backup.AccessKey == "" || c.Backup.SecretKey == "" {
			return errors.New("backup requires access_key and secret_key")
		}
		if c.EventsBackend != BackendSQLite {
			return fmt.Errorf("backup only covers the sqlite events backend, not %q", c.EventsBackend)
		}
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			return fmt.Errorf("backup schedule %q: %w", c.Backup.Schedule, err)
		}
		if c.Backup.RetentionDays < 0 {
			return errors.New("backup retention_days is negative")
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
