package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAuthClient/credstore"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/renewal"
)

// Builder assembles a Client.
//
// Builder instances are intended to be configured during initialization and used once.
type Builder struct {
	config Config

	store   credstore.Store
	redis   redis.UniversalClient
	ssm     credstore.SSMAPI
	backend Backend
	base    http.RoundTripper

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder starting from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential store directly, overriding Config.Store.Backend.
func (b *Builder) WithStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithRedis supplies the client used by the redis store backend. Without it Build dials
// Config.Store.RedisAddr.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	b.config.Store.Backend = StoreRedis
	return b
}

// WithSSM supplies the Parameter Store API used by the ssm store backend. Without it
// Build loads the default AWS configuration.
func (b *Builder) WithSSM(api credstore.SSMAPI) *Builder {
	b.ssm = api
	b.config.Store.Backend = StoreSSM
	return b
}

// WithBackend replaces the HTTP backend, typically in tests.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPTransport sets the round tripper requests are finally sent over. It defaults to
// http.DefaultTransport.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the structured logger. Logging is discarded by default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for expiry decisions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled turns the in-process counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records renewal latency buckets. It has no effect unless metrics
// are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Client.
func (b *Builder) Build() (*Client, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context for store setup, which may contact Redis or AWS.
func (b *Builder) BuildContext(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.backend == nil && cfg.Endpoints.BaseURL == "" {
		return nil, errors.New("Endpoints BaseURL or a custom backend is required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	base := b.base
	if base == nil {
		base = http.DefaultTransport
	}

	store, err := b.buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	backend := b.backend
	if backend == nil {
		hb, err := NewHTTPBackend(cfg.Endpoints, &http.Client{Transport: base, Timeout: cfg.HTTP.Timeout})
		if err != nil {
			return nil, err
		}
		hb.requestIDHeader = cfg.HTTP.RequestIDHeader
		backend = hb
	}

	c := &Client{
		config:  cloneConfig(cfg),
		store:   store,
		backend: backend,
		policy:  renewal.Policy{Threshold: cfg.Renewal.Threshold, Now: now},
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		now:     now,
	}

	coordinator, err := renewal.NewCoordinator(renewal.Deps{
		RefreshToken: func(ctx context.Context) (string, error) {
			rec, err := store.Load(ctx)
			if err != nil || rec == nil {
				return "", err
			}
			return rec.RefreshToken, nil
		},
		Renew: backend.Renew,
		Persist: func(ctx context.Context, p credstore.Pair) error {
			rec := credstore.NewRecord(p)
			if rec.Claims == nil {
				return errors.New("renewed access token has undecodable claims")
			}
			return store.Save(ctx, rec)
		},
		Clear:      store.Clear,
		Timeout:    cfg.Renewal.Timeout,
		NewCycleID: uuid.NewString,
		OnStart: func(cycle string) {
			c.metrics.Inc(MetricRenewalStarted)
			c.logger.Debug("goAuthClient: renewal started", "cycle", cycle)
		},
		OnJoin: func(string) {
			c.metrics.Inc(MetricRenewalJoined)
		},
		OnSettle: c.onRenewalSettled,
	})
	if err != nil {
		return nil, err
	}
	c.coordinator = coordinator

	// Login and logout writes go through the coordinator so an in-flight renewal cannot
	// overwrite them.
	c.flowDeps = flows.Deps{
		Login: flows.LoginDeps{
			Login: backend.Login,
			Save: func(ctx context.Context, rec *credstore.Record) error {
				return coordinator.Supersede(ctx, func(ctx context.Context) error { return store.Save(ctx, rec) })
			},
		},
		Logout: flows.LogoutDeps{
			Load:   store.Load,
			Logout: backend.Logout,
			Clear:  coordinator.Clear,
		},
	}

	c.transport = newTransport(c, base)
	c.httpClient = &http.Client{Transport: c.transport, Timeout: cfg.HTTP.Timeout}
	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink, now)

	b.built = true
	return c, nil
}

func (b *Builder) buildStore(ctx context.Context, sc StoreConfig) (credstore.Store, error) {
	if b.store != nil {
		return b.store, nil
	}

	switch sc.Backend {
	case StoreRedis:
		client := b.redis
		if client == nil {
			if sc.RedisAddr == "" {
				return nil, errors.New("redis store requires a client or Store RedisAddr")
			}
			client = redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		}
		s := credstore.NewRedisStore(client, sc.RedisPrefix, sc.Profile)
		if err := s.Ping(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case StoreSSM:
		if b.ssm != nil {
			return credstore.NewSSMStore(b.ssm, sc.SSMParameter), nil
		}
		s, err := credstore.NewSSMStoreFromEnv(ctx, sc.SSMParameter)
		if err != nil {
			return nil, fmt.Errorf("ssm store: %w", err)
		}
		return s, nil
	default:
		return credstore.NewMemoryStore(), nil
	}
}
