package goAuthClient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/renewal"
)

// Config defines a public type used by goAuthClient APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Endpoints EndpointConfig `yaml:"endpoints"`
	Renewal   RenewalConfig  `yaml:"renewal"`
	Store     StoreConfig    `yaml:"store"`
	HTTP      HTTPConfig     `yaml:"http"`
	Audit     AuditConfig    `yaml:"audit"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig locates the identity backend. LoginPath and RenewPath are never sent a
// bearer token.
//
// When BaseURL is set, the Transport attaches the bearer only to requests whose scheme
// and host match BaseURL or one of TrustedOrigins. Other requests, redirect hops
// included, are sent unchanged.
type EndpointConfig struct {
	BaseURL        string   `yaml:"base_url"`
	LoginPath      string   `yaml:"login_path"`
	RenewPath      string   `yaml:"renew_path"`
	LogoutPath     string   `yaml:"logout_path"` // empty disables the backend logout call
	TrustedOrigins []string `yaml:"trusted_origins"`
}

/*
====================================
RENEWAL CONFIG
====================================
*/

// RenewalConfig defines a public type used by goAuthClient APIs.
//
// RenewalConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RenewalConfig struct {
	// Threshold is the fraction of token lifetime after which a background renewal starts.
	Threshold float64 `yaml:"threshold"`
	// Timeout bounds a single backend renewal call.
	Timeout           time.Duration `yaml:"timeout"`
	BackgroundEnabled bool          `yaml:"background_enabled"`
	// RejectStatusCodes are the response codes treated as an authentication rejection.
	RejectStatusCodes []int `yaml:"reject_status_codes"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreBackend names a credential store implementation.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
	StoreSSM    StoreBackend = "ssm"
)

// StoreConfig defines a public type used by goAuthClient APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	Backend      StoreBackend `yaml:"backend"`
	RedisAddr    string       `yaml:"redis_addr"`
	RedisPrefix  string       `yaml:"redis_prefix"`
	Profile      string       `yaml:"profile"`
	SSMParameter string       `yaml:"ssm_parameter"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig controls the authorizing http.Client.
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	RequestIDHeader string        `yaml:"request_id_header"`
	// MaxReplayBodyBytes caps how much of a non-replayable body is buffered so the
	// request can be resent after a rejection. Larger bodies are streamed and not retried.
	MaxReplayBodyBytes int64 `yaml:"max_replay_body_bytes"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by goAuthClient APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig defines a public type used by goAuthClient APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointConfig{
			LoginPath:  "/auth/login",
			RenewPath:  "/auth/refresh",
			LogoutPath: "/auth/logout",
		},
		Renewal: RenewalConfig{
			Threshold:         renewal.DefaultThreshold,
			Timeout:           10 * time.Second,
			BackgroundEnabled: true,
			RejectStatusCodes: []int{401},
		},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisPrefix: "gac",
			Profile:     "default",
		},
		HTTP: HTTPConfig{
			Timeout:            30 * time.Second,
			RequestIDHeader:    "X-Request-ID",
			MaxReplayBodyBytes: 10 << 20,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Renewal.RejectStatusCodes = append([]int(nil), cfg.Renewal.RejectStatusCodes...)
	out.Endpoints.TrustedOrigins = append([]string(nil), cfg.Endpoints.TrustedOrigins...)
	return out
}

// Validate reports the first invalid field. Build calls it; risky but valid settings are
// left to Lint.
func (c *Config) Validate() error {
	// Endpoints
	if c.Endpoints.BaseURL != "" {
		u, err := url.Parse(c.Endpoints.BaseURL)
		if err != nil || u.Host == "" {
			return errors.New("Endpoints BaseURL must be an absolute URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Endpoints BaseURL scheme must be http or https")
		}
	}
	for _, raw := range c.Endpoints.TrustedOrigins {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("Endpoints TrustedOrigins entry %q must be an absolute http(s) URL", raw)
		}
	}
	if !strings.HasPrefix(c.Endpoints.LoginPath, "/") {
		return errors.New("Endpoints LoginPath must start with /")
	}
	if !strings.HasPrefix(c.Endpoints.RenewPath, "/") {
		return errors.New("Endpoints RenewPath must start with /")
	}
	if c.Endpoints.LogoutPath != "" && !strings.HasPrefix(c.Endpoints.LogoutPath, "/") {
		return errors.New("Endpoints LogoutPath must start with / or be empty")
	}
	if c.Endpoints.LoginPath == c.Endpoints.RenewPath {
		return errors.New("Endpoints LoginPath and RenewPath must differ")
	}

	// Renewal
	if c.Renewal.Threshold <= 0 || c.Renewal.Threshold >= 1 {
		return errors.New("Renewal Threshold must be in (0, 1)")
	}
	if c.Renewal.Timeout <= 0 {
		return errors.New("Renewal Timeout must be > 0")
	}
	if len(c.Renewal.RejectStatusCodes) == 0 {
		return errors.New("Renewal RejectStatusCodes must not be empty")
	}
	for _, code := range c.Renewal.RejectStatusCodes {
		if code < 400 || code > 599 {
			return errors.New("Renewal RejectStatusCodes must be 4xx or 5xx")
		}
	}

	// Store
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.Store.RedisPrefix) == "" {
			return errors.New("Store RedisPrefix must not be empty for the redis backend")
		}
	case StoreSSM:
		if !strings.HasPrefix(c.Store.SSMParameter, "/") {
			return errors.New("Store SSMParameter must be an absolute parameter name for the ssm backend")
		}
	default:
		return errors.New("Store Backend must be memory, redis or ssm")
	}

	// HTTP
	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}
	if c.HTTP.MaxReplayBodyBytes < 0 {
		return errors.New("HTTP MaxReplayBodyBytes must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
