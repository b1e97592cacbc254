package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level sigtext configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Backend  BackendConfig  `yaml:"backend"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Inbox    InboxConfig    `yaml:"inbox"`
	KeysDir  string         `yaml:"keys_dir"`
	ScanDir  string         `yaml:"scan_rules_dir,omitempty"`
	LogLevel string         `yaml:"log_level"`
}

// BackendConfig points at the hosted verification backend. An empty URL
// means no backend is configured and verification runs in degraded local
// mode.
type BackendConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

// Configured reports whether a hosted backend is set up.
func (b BackendConfig) Configured() bool {
	return b.URL != ""
}

// CacheConfig controls the local offline mirror.
type CacheConfig struct {
	DBPath        string `yaml:"db_path"`
	SyncInterval  string `yaml:"sync_interval"`  // Go duration, default 5m
	RecentLimit   int    `yaml:"recent_limit"`   // verified messages per sync
	DemoDirectory bool   `yaml:"demo_directory"` // seed a demo org into an empty mirror
}

// SyncEvery returns the parsed sync interval.
func (c CacheConfig) SyncEvery() time.Duration {
	d, err := time.ParseDuration(c.SyncInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ServerConfig holds settings for the self-hosted verification server.
type ServerConfig struct {
	Bind        string          `yaml:"bind"` // default 127.0.0.1
	Port        int             `yaml:"port"`
	PostgresURL string          `yaml:"postgres_url"`
	RedisAddr   string          `yaml:"redis_addr,omitempty"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty"`
	APIKeys     []string        `yaml:"api_keys,omitempty"`
	Webhooks    []Webhook       `yaml:"webhooks,omitempty"`
	Tracing     bool            `yaml:"tracing,omitempty"`
}

// RateLimitConfig limits verification requests per claimed sender.
type RateLimitConfig struct {
	PerSender int `yaml:"per_sender"` // 0 disables limiting
	WindowS   int `yaml:"window_s"`
}

// Webhook defines an endpoint notified on verified-message inserts.
type Webhook struct {
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"` // verified, failed
}

// ExplorerConfig points at the blockchain explorer API.
type ExplorerConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

// InboxConfig configures the watched message inbox directory.
type InboxConfig struct {
	Dir         string `yaml:"dir"`
	MaxMsgBytes int64  `yaml:"max_msg_bytes"`
}

// Load reads and parses a sigtext config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply zero-value defaults after unmarshal
	if cfg.Cache.RecentLimit == 0 {
		cfg.Cache.RecentLimit = 100
	}
	if cfg.Inbox.MaxMsgBytes == 0 {
		cfg.Inbox.MaxMsgBytes = 64 * 1024
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Version: "1",
		Cache: CacheConfig{
			DBPath:       "sigtext.db",
			SyncInterval: "5m",
			RecentLimit:  100,
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8080,
			RateLimit: RateLimitConfig{
				WindowS: 60,
			},
		},
		Inbox: InboxConfig{
			MaxMsgBytes: 64 * 1024,
		},
		KeysDir:  "./keys",
		LogLevel: "info",
	}
}

// Save writes the config to a YAML file at the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks that the config is consistent.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Cache.DBPath == "" {
		return fmt.Errorf("cache.db_path is required")
	}
	if c.Cache.SyncInterval != "" {
		if _, err := time.ParseDuration(c.Cache.SyncInterval); err != nil {
			return fmt.Errorf("invalid sync_interval %q: %w", c.Cache.SyncInterval, err)
		}
	}
	for _, wh := range c.Server.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhook with empty url")
		}
		for _, ev := range wh.Events {
			switch ev {
			case "verified", "failed":
				// valid
			default:
				return fmt.Errorf("webhook %s has invalid event %q", wh.URL, ev)
			}
		}
	}
	return nil
}
