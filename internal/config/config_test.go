package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timegate.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  base_url: "https://gate.example.com"
  signing_key: "secret"
store:
  type: rest
  url: "https://kv.example.com"
  token: "kv-token"
links:
  default_max_clicks: 5
  default_ttl_hours: 48
  audit_retention_hours: 2
policies:
  - kind: results
    max_clicks_limit: 10
    max_ttl_hours: 72
  - kind: document
    expr: "max_clicks <= 3"
audit:
  enabled: true
  type: file
  path: /var/log/timegate/audit.log
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" || cfg.Server.BaseURL != "https://gate.example.com" {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Store.Type != "rest" {
		t.Errorf("store type = %q", cfg.Store.Type)
	}
	if cfg.Store.Config["url"] != "https://kv.example.com" || cfg.Store.Config["token"] != "kv-token" {
		t.Errorf("inline store config not captured: %+v", cfg.Store.Config)
	}
	if cfg.Links.DefaultMaxClicks != 5 || cfg.Links.DefaultTTL() != 48*time.Hour {
		t.Errorf("unexpected link defaults: %+v", cfg.Links)
	}
	if cfg.Links.AuditRetention() != 2*time.Hour {
		t.Errorf("audit retention = %s", cfg.Links.AuditRetention())
	}
	if len(cfg.Policies) != 2 || cfg.Policies[0].Kind != "results" {
		t.Errorf("unexpected policies: %+v", cfg.Policies)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Type != "file" {
		t.Errorf("unexpected audit config: %+v", cfg.Audit)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
store:
  type: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Links.DefaultMaxClicks != 3 {
		t.Errorf("default max clicks = %d", cfg.Links.DefaultMaxClicks)
	}
	if cfg.Links.DefaultTTL() != 24*time.Hour {
		t.Errorf("default ttl = %s", cfg.Links.DefaultTTL())
	}
	if cfg.Links.AuditRetention() != time.Hour {
		t.Errorf("default audit retention = %s", cfg.Links.AuditRetention())
	}
}

func TestLoad_SigningKeyFromEnv(t *testing.T) {
	t.Setenv("TIMEGATE_SIGNING_KEY", "from-env")

	path := writeConfig(t, `
store:
  type: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.SigningKey != "from-env" {
		t.Errorf("signing key = %q, want env fallback", cfg.Server.SigningKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing store type", `
links:
  default_max_clicks: 3
`},
		{"negative default clicks", `
store:
  type: memory
links:
  default_max_clicks: -1
`},
		{"negative ttl", `
store:
  type: memory
links:
  default_ttl_hours: -24
`},
		{"bad policy expression", `
store:
  type: memory
policies:
  - kind: results
    expr: "max_clicks <=="
`},
		{"file audit without path", `
store:
  type: memory
audit:
  enabled: true
  type: file
`},
		{"unknown audit type", `
store:
  type: memory
audit:
  enabled: true
  type: syslog
`},
		{"not yaml", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
