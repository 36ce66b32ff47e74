package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Airtable   AirtableConfig   `yaml:"airtable"`
	Poller     PollerConfig     `yaml:"poller"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Events     EventsConfig     `yaml:"events"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the response cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// AirtableConfig describes the upstream base and the two tables the dashboard reads.
type AirtableConfig struct {
	BaseURL        string   `yaml:"base_url"`
	BaseID         string   `yaml:"base_id"`
	APIKey         string   `yaml:"api_key"`
	WorkOrders     TableRef `yaml:"work_orders"`
	Technicians    TableRef `yaml:"technicians"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	HTTPProxy      string   `yaml:"http_proxy"`
	PageSize       int      `yaml:"page_size"`
}

// TableRef points at one Airtable table and the view used to read it.
type TableRef struct {
	Table string `yaml:"table"`
	View  string `yaml:"view"`
}

// Timeout returns the per-request upstream timeout.
func (a AirtableConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PollerConfig controls the background snapshot refresh.
type PollerConfig struct {
	Enabled            bool          `yaml:"enabled"`
	IntervalSeconds    int           `yaml:"interval_seconds"`
	Interval           time.Duration `yaml:"-"`
	SnapshotTTLSeconds int           `yaml:"snapshot_ttl_seconds"`
	SnapshotTTL        time.Duration `yaml:"-"`
}

// DashboardConfig holds the map defaults shared by the HTTP scene and the CLI renderer.
type DashboardConfig struct {
	Timezone          string         `yaml:"timezone"`
	TechnicianOptions []string       `yaml:"technician_options"`
	Display           DisplayDefault `yaml:"display"`
}

// DisplayDefault is the initial state of the display toggles.
type DisplayDefault struct {
	ShowLabels      bool  `yaml:"show_labels"`
	ShowUnselected  bool  `yaml:"show_unselected"`
	ShowTechnicians bool  `yaml:"show_technicians"`
	AutoFit         *bool `yaml:"auto_fit"`
}

// Location resolves the configured dashboard time zone.
func (d DashboardConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// EventsConfig configures the AMQP event publisher.
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// LogConfig selects the log level and an optional log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Environment variables understood on top of the YAML file. The names are the
// ones existing dashboard deployments already export.
const (
	EnvAPIKey           = "AIRTABLE_API_KEY"
	EnvBaseID           = "AIRTABLE_BASE_ID"
	EnvWorkOrderTable   = "AIRTABLE_TABLE_NAME"
	EnvWorkOrderView    = "AIRTABLE_VIEW_ID"
	EnvTechnicianTable  = "AIRTABLE_SECOND_TABLE_NAME"
	EnvTechnicianView   = "AIRTABLE_SECOND_VIEW_ID"
	DefaultAirtableBase = "https://api.airtable.com/v0"
)

// Load reads the configuration from the given path. A missing file is not an
// error: defaults plus environment overrides are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // ignore missing .env

	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn().Str("path", path).Msg("config file not found; using defaults")
		case err != nil:
			return nil, err
		default:
			defer f.Close()
			decoder := yaml.NewDecoder(f)
			if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Airtable.APIKey, EnvAPIKey)
	override(&c.Airtable.BaseID, EnvBaseID)
	override(&c.Airtable.WorkOrders.Table, EnvWorkOrderTable)
	override(&c.Airtable.WorkOrders.View, EnvWorkOrderView)
	override(&c.Airtable.Technicians.Table, EnvTechnicianTable)
	override(&c.Airtable.Technicians.View, EnvTechnicianView)
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 30
	}

	if c.Airtable.BaseURL == "" {
		c.Airtable.BaseURL = DefaultAirtableBase
	}
	c.Airtable.BaseURL = strings.TrimRight(c.Airtable.BaseURL, "/")
	if c.Airtable.TimeoutSeconds <= 0 {
		c.Airtable.TimeoutSeconds = 30
	}

	if c.Poller.IntervalSeconds <= 0 {
		c.Poller.IntervalSeconds = 300
	}
	c.Poller.Interval = time.Duration(c.Poller.IntervalSeconds) * time.Second
	if c.Poller.SnapshotTTLSeconds <= 0 {
		c.Poller.SnapshotTTLSeconds = 3 * c.Poller.IntervalSeconds
	}
	c.Poller.SnapshotTTL = time.Duration(c.Poller.SnapshotTTLSeconds) * time.Second

	if c.Dashboard.Display.AutoFit == nil {
		autoFit := true
		c.Dashboard.Display.AutoFit = &autoFit
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == DriverSQLite {
		c.Database.DSN = "fieldmap.db"
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}

	if c.WorkerPool.Size <= 0 {
		log.Debug().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		c.WorkerPool.Size = 1
	}

	if c.Events.Exchange == "" {
		c.Events.Exchange = "fieldmap.events"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
