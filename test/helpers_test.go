//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/credstore"
)

const testPrefix = "gac-it"

type integrationEnv struct {
	srv *authtest.Server
	mr  *miniredis.Miniredis
	rdb *redis.Client
}

func newIntegrationEnv(t *testing.T, opts ...authtest.Option) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	srv := authtest.NewServer(opts...)

	t.Cleanup(func() {
		srv.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return &integrationEnv{srv: srv, mr: mr, rdb: rdb}
}

func (e *integrationEnv) client(t *testing.T, profile string, trusted ...string) *goAuthClient.Client {
	t.Helper()

	cfg := goAuthClient.DefaultConfig()
	cfg.Endpoints.BaseURL = e.srv.URL()
	cfg.Endpoints.TrustedOrigins = trusted
	cfg.Store.RedisPrefix = testPrefix
	cfg.Store.Profile = profile
	cfg.Renewal.Timeout = 2 * time.Second
	cfg.Metrics.Enabled = true

	c, err := goAuthClient.New().WithConfig(cfg).WithRedis(e.rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// seed writes a pair with explicit timing straight into the profile's hash.
func (e *integrationEnv) seed(t *testing.T, profile string, issuedAgo, expiresIn time.Duration) credstore.Pair {
	t.Helper()

	now := time.Now()
	pair, err := e.srv.SeedSession(authtest.DefaultUsername, now.Add(-issuedAgo), now.Add(expiresIn))
	if err != nil {
		t.Fatalf("SeedSession failed: %v", err)
	}
	store := credstore.NewRedisStore(e.rdb, testPrefix, profile)
	if err := store.Save(context.Background(), credstore.NewRecord(pair)); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	return pair
}

func (e *integrationEnv) load(t *testing.T, profile string) *credstore.Record {
	t.Helper()
	rec, err := credstore.NewRedisStore(e.rdb, testPrefix, profile).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return rec
}

func key(profile string) string {
	return testPrefix + ":cred:" + profile
}
