package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
)

func main() {
	var (
		profiles     = flag.Int("profiles", 4, "number of independent client sessions")
		concurrency  = flag.Int("concurrency", 64, "concurrent workers per profile")
		ops          = flag.Int("ops", 20000, "requests per profile")
		accessTTL    = flag.Duration("access-ttl", 2*time.Second, "access token lifetime issued by the test backend")
		renewLatency = flag.Duration("renew-latency", 20*time.Millisecond, "artificial renewal latency on the test backend")
		redisAddr    = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix       = flag.String("prefix", "gac-load", "credential key prefix")
		verbose      = flag.Bool("v", false, "log renewal activity")
	)
	flag.Parse()

	if *profiles <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "profiles, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv := authtest.NewServer(
		authtest.WithAccessTTL(*accessTTL),
		authtest.WithRenewLatency(*renewLatency),
	)
	defer srv.Close()

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	clients := make([]*goAuthClient.Client, *profiles)
	for i := range clients {
		cfg := goAuthClient.DefaultConfig()
		cfg.Endpoints.BaseURL = srv.URL()
		cfg.Store.RedisPrefix = *prefix
		cfg.Store.Profile = fmt.Sprintf("profile-%d", i)
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true

		c, err := goAuthClient.New().WithConfig(cfg).WithRedis(rdb).WithLogger(logger).Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build client %d failed: %v\n", i, err)
			os.Exit(1)
		}
		defer c.Close()
		if _, err := c.Login(ctx, authtest.DefaultUsername, authtest.DefaultPassword); err != nil {
			fmt.Fprintf(os.Stderr, "login %d failed: %v\n", i, err)
			os.Exit(1)
		}
		clients[i] = c
	}

	fmt.Printf("running %d profiles x %d workers, %d requests each...\n", *profiles, *concurrency, *ops)
	stats := runPhase(ctx, clients, srv.URL()+authtest.PathWhoAmI, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("request", stats)
	for i, c := range clients {
		snap := c.MetricsSnapshot()
		fmt.Printf("profile-%d: renewals=%d joined=%d background=%d retried=%d rejected=%d\n",
			i,
			snap.Counters[goAuthClient.MetricRenewalStarted],
			snap.Counters[goAuthClient.MetricRenewalJoined],
			snap.Counters[goAuthClient.MetricBackgroundRenewal],
			snap.Counters[goAuthClient.MetricRequestRetried],
			snap.Counters[goAuthClient.MetricAuthorizationRejected],
		)
	}
	fmt.Printf("backend: renew_calls=%d refresh_reuse=%d rejections=%d\n", srv.RenewCalls(), srv.Reuses(), srv.Rejections())
	if srv.Reuses() > 0 {
		os.Exit(1)
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(ctx context.Context, clients []*goAuthClient.Client, url string, ops, concurrency int) phaseStats {
	var (
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops*len(clients))
	)

	start := time.Now()
	var g errgroup.Group
	for _, c := range clients {
		var cursor atomic.Int64
		hc := c.HTTPClient()
		for w := 0; w < concurrency; w++ {
			g.Go(func() error {
				local := make([]time.Duration, 0, ops/concurrency+1)
				for cursor.Add(1) <= int64(ops) {
					t0 := time.Now()
					if err := call(ctx, hc, url); err != nil {
						failures.Add(1)
					}
					local = append(local, time.Since(t0))
				}
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

func call(ctx context.Context, hc *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
