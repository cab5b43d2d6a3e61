// Package config extends the core configuration with the bot's storage,
// backup, metrics and presentation settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/notifybot/core/config"
)

// StorageConfig locates the two database files.
type StorageConfig struct {
	TicketsPath     string `yaml:"tickets_path" envconfig:"TICKETS_DB"`
	SubscribersPath string `yaml:"subscribers_path" envconfig:"SUBSCRIBERS_DB"`
	BusyTimeoutMS   int    `yaml:"busy_timeout_ms" envconfig:"DB_BUSY_TIMEOUT_MS"`
}

// BackupConfig controls snapshot placement, retention and the schedule.
type BackupConfig struct {
	Dir      string        `yaml:"dir" envconfig:"BACKUP_DIR"`
	Keep     int           `yaml:"keep" envconfig:"BACKUP_KEEP"`
	MaxAge   time.Duration `yaml:"max_age" envconfig:"BACKUP_MAX_AGE"`
	Schedule string        `yaml:"schedule" envconfig:"BACKUP_SCHEDULE"`
	OnStart  *bool         `yaml:"on_start" envconfig:"BACKUP_ON_START"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// BotConfig holds texts shown to users.
type BotConfig struct {
	Version   string `yaml:"version" envconfig:"BOT_VERSION"`
	AboutText string `yaml:"about_text" envconfig:"BOT_ABOUT_TEXT"`
}

// AppConfig is the full configuration file.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Storage StorageConfig `yaml:"storage"`
	Backup  BackupConfig  `yaml:"backup"`
	Metrics MetricsConfig `yaml:"metrics"`
	Bot     BotConfig     `yaml:"bot"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// BackupOnStart reports whether one backup runs when the bot starts.
func (c *AppConfig) BackupOnStart() bool {
	return c.Backup.OnStart == nil || *c.Backup.OnStart
}

// Load reads the YAML file, overlays the environment and applies defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := coreconfig.ReadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the core section and fills the defaults of the app sections.
func Normalize(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Storage.TicketsPath) == "" {
		cfg.Storage.TicketsPath = "tickets.db"
	}
	if strings.TrimSpace(cfg.Storage.SubscribersPath) == "" {
		cfg.Storage.SubscribersPath = "subscribers.db"
	}
	if cfg.Storage.TicketsPath == cfg.Storage.SubscribersPath {
		return fmt.Errorf("storage.tickets_path and storage.subscribers_path must differ")
	}
	if cfg.Storage.BusyTimeoutMS < 0 {
		return fmt.Errorf("storage.busy_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Backup.Dir) == "" {
		cfg.Backup.Dir = "backups"
	}
	if cfg.Backup.Keep == 0 {
		cfg.Backup.Keep = 5
	}
	if cfg.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep must be > 0")
	}
	if cfg.Backup.MaxAge == 0 {
		cfg.Backup.MaxAge = 5 * 7 * 24 * time.Hour
	}
	if cfg.Backup.MaxAge < 0 {
		return fmt.Errorf("backup.max_age must be > 0")
	}
	if strings.TrimSpace(cfg.Backup.Schedule) == "" {
		cfg.Backup.Schedule = "0 0 * * 0"
	}

	if strings.TrimSpace(cfg.Bot.AboutText) == "" {
		cfg.Bot.AboutText = "This bot sends you notifications about new content and fixes, and lets you contact support."
	}
	return nil
}
