package goAuthClient

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigYAMLOverlaysDefaults(t *testing.T) {
	doc := `
endpoints:
  base_url: https://auth.example.com
  renew_path: /v2/token/refresh
  trusted_origins: [https://api.example.com]
renewal:
  threshold: 0.75
  timeout: 5s
  reject_status_codes: [401, 419]
store:
  backend: redis
  redis_addr: 127.0.0.1:6379
`
	cfg, err := LoadConfigYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfigYAML failed: %v", err)
	}
	if cfg.Endpoints.RenewPath != "/v2/token/refresh" || cfg.Endpoints.LoginPath != "/auth/login" {
		t.Fatalf("unexpected endpoints %+v", cfg.Endpoints)
	}
	if len(cfg.Endpoints.TrustedOrigins) != 1 || cfg.Endpoints.TrustedOrigins[0] != "https://api.example.com" {
		t.Fatalf("unexpected trusted origins %v", cfg.Endpoints.TrustedOrigins)
	}
	if cfg.Renewal.Threshold != 0.75 || cfg.Renewal.Timeout != 5*time.Second {
		t.Fatalf("unexpected renewal %+v", cfg.Renewal)
	}
	if len(cfg.Renewal.RejectStatusCodes) != 2 || cfg.Renewal.RejectStatusCodes[1] != 419 {
		t.Fatalf("unexpected reject codes %v", cfg.Renewal.RejectStatusCodes)
	}
	if cfg.Store.Backend != StoreRedis || cfg.Store.RedisPrefix != "gac" {
		t.Fatalf("unexpected store %+v", cfg.Store)
	}
	if !cfg.Renewal.BackgroundEnabled {
		t.Fatal("unset keys keep their defaults")
	}
}

func TestLoadConfigYAMLEmptyIsDefault(t *testing.T) {
	cfg, err := LoadConfigYAML(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("LoadConfigYAML failed: %v", err)
	}
	if cfg.Renewal.Threshold != DefaultConfig().Renewal.Threshold {
		t.Fatal("expected defaults")
	}
}

func TestLoadConfigYAMLRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": "renewal:\n  treshold: 0.9\n",
		"invalid":     "renewal:\n  threshold: 1.5\n",
		"syntax":      "renewal: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfigYAML(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("http:\n  request_id_header: X-Correlation-ID\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.HTTP.RequestIDHeader != "X-Correlation-ID" {
		t.Fatalf("unexpected header %q", cfg.HTTP.RequestIDHeader)
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
