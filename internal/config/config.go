package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/fluxdna/timegate/internal/policy"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Store    StoreConfig   `yaml:"store"`
	Links    LinksConfig   `yaml:"links"`
	Policies []policy.Rule `yaml:"policies"`
	Audit    AuditConfig   `yaml:"audit"`
}

type ServerConfig struct {
	// Addr the HTTP server listens on.
	Addr string `yaml:"addr"`

	// BaseURL prefixes the holder-facing link URLs.
	BaseURL string `yaml:"base_url"`

	// SigningKey verifies operator JWTs on issue/revoke/admin routes.
	// Can also be provided via TIMEGATE_SIGNING_KEY.
	SigningKey string `yaml:"signing_key"`
}

// StoreConfig selects and configures the counter store backend.
// Type is one of "redis", "rest", "memory"; the remaining fields are
// backend-specific and decoded by the store package.
type StoreConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:",inline"`
}

type LinksConfig struct {
	// DefaultMaxClicks applies when an issue request omits the quota.
	DefaultMaxClicks int `yaml:"default_max_clicks"`

	// DefaultTTLHours applies when an issue request omits the lifetime.
	DefaultTTLHours float64 `yaml:"default_ttl_hours"`

	// AuditRetentionHours is how long terminal records stay inspectable
	// before the store evicts them.
	AuditRetentionHours float64 `yaml:"audit_retention_hours"`
}

func (l LinksConfig) DefaultTTL() time.Duration {
	return time.Duration(l.DefaultTTLHours * float64(time.Hour))
}

func (l LinksConfig) AuditRetention() time.Duration {
	return time.Duration(l.AuditRetentionHours * float64(time.Hour))
}

// AuditConfig holds configuration for the operator audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g. "file", "memory"
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SigningKey == "" {
		c.Server.SigningKey = os.Getenv("TIMEGATE_SIGNING_KEY")
	}

	if c.Store.Type == "" {
		return fmt.Errorf("store.type is required (redis, rest or memory)")
	}

	if c.Links.DefaultMaxClicks == 0 {
		c.Links.DefaultMaxClicks = 3
	}
	if c.Links.DefaultMaxClicks < 1 {
		return fmt.Errorf("links.default_max_clicks must be >= 1")
	}
	if c.Links.DefaultTTLHours == 0 {
		c.Links.DefaultTTLHours = 24
	}
	if c.Links.DefaultTTLHours < 0 {
		return fmt.Errorf("links.default_ttl_hours must be positive")
	}
	if c.Links.AuditRetentionHours == 0 {
		c.Links.AuditRetentionHours = 1
	}
	if c.Links.AuditRetentionHours < 0 {
		return fmt.Errorf("links.audit_retention_hours must be positive")
	}

	// compiling the policy rules here surfaces bad expressions at load time
	if _, err := policy.New(c.Policies); err != nil {
		return fmt.Errorf("validating policies: %w", err)
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "", "memory":
		case "file":
			if c.Audit.Path == "" {
				return fmt.Errorf("audit.path is required for the file auditor")
			}
		default:
			return fmt.Errorf("unknown audit type %q", c.Audit.Type)
		}
	}

	return nil
}
