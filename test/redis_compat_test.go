//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes always includes miniredis. Real Redis is added when REDIS_ADDR is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				if err := rdb.Ping(context.Background()).Err(); err != nil {
					t.Skipf("redis at %s unreachable: %v", addr, err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}
	return modes
}

func TestRedisCompatSessionLifecycle(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			srv := authtest.NewServer(authtest.WithAccessTTL(time.Minute))
			defer srv.Close()

			cfg := goAuthClient.DefaultConfig()
			cfg.Endpoints.BaseURL = srv.URL()
			cfg.Store.RedisPrefix = "gac-compat"
			cfg.Store.Profile = fmt.Sprintf("p-%d", time.Now().UnixNano())

			c, err := goAuthClient.New().WithConfig(cfg).WithRedis(rdb).Build()
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			defer c.Close()

			ctx := context.Background()
			if _, err := c.Login(ctx, authtest.DefaultUsername, authtest.DefaultPassword); err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			first, err := c.AccessToken(ctx)
			if err != nil {
				t.Fatalf("AccessToken failed: %v", err)
			}
			renewed, err := c.Renew(ctx)
			if err != nil {
				t.Fatalf("Renew failed: %v", err)
			}
			if renewed == first {
				t.Fatal("expected a new access token after renewal")
			}
			got, err := c.AccessToken(ctx)
			if err != nil || got != renewed {
				t.Fatalf("expected renewed token from store, got %v", err)
			}

			if err := c.Logout(ctx); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
			if _, err := c.AccessToken(ctx); !errors.Is(err, goAuthClient.ErrNoRefreshToken) {
				t.Fatalf("expected ErrNoRefreshToken after logout, got %v", err)
			}
		})
	}
}
