package goAuthClient

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/credstore"
)

func newTestServer(t *testing.T, opts ...authtest.Option) *authtest.Server {
	t.Helper()
	srv := authtest.NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *authtest.Server) Config {
	cfg := DefaultConfig()
	cfg.Endpoints.BaseURL = srv.URL()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Renewal.Timeout = 2 * time.Second
	return cfg
}

func newTestClient(t *testing.T, srv *authtest.Server, configure func(*Builder)) *Client {
	t.Helper()
	b := New().WithConfig(testConfig(srv))
	if configure != nil {
		configure(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// seedSession stores a pair minted with explicit timing relative to now.
func seedSession(t *testing.T, c *Client, srv *authtest.Server, issuedAgo, expiresIn time.Duration) credstore.Pair {
	t.Helper()
	now := time.Now()
	pair, err := srv.SeedSession(authtest.DefaultUsername, now.Add(-issuedAgo), now.Add(expiresIn))
	if err != nil {
		t.Fatalf("SeedSession failed: %v", err)
	}
	if err := c.store.Save(context.Background(), credstore.NewRecord(pair)); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	return pair
}

func storedPair(t *testing.T, c *Client) credstore.Pair {
	t.Helper()
	rec, err := c.store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if rec == nil {
		return credstore.Pair{}
	}
	return rec.Pair
}

type stubBackend struct {
	login  func(ctx context.Context, username, password string) (credstore.Pair, error)
	renew  func(ctx context.Context, refresh string) (credstore.Pair, error)
	logout func(ctx context.Context, pair credstore.Pair) error
}

func (s stubBackend) Login(ctx context.Context, username, password string) (credstore.Pair, error) {
	return s.login(ctx, username, password)
}

func (s stubBackend) Renew(ctx context.Context, refresh string) (credstore.Pair, error) {
	return s.renew(ctx, refresh)
}

func (s stubBackend) Logout(ctx context.Context, pair credstore.Pair) error {
	if s.logout == nil {
		return nil
	}
	return s.logout(ctx, pair)
}
