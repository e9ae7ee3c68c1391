// Command siteguard-loadtest measures CheckLimit and session verification
// throughput against Redis (or an embedded miniredis when no address is given).
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/siteguard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		identifiers int
		sessions    int
		concurrency int
		ops         int
		redisAddr   string
	)

	flagSet := pflag.NewFlagSet("siteguard-loadtest", pflag.ContinueOnError)
	flagSet.IntVar(&identifiers, "identifiers", 10000, "distinct client identifiers for CheckLimit")
	flagSet.IntVar(&sessions, "sessions", 1000, "distinct session cookies to verify")
	flagSet.IntVar(&concurrency, "concurrency", 256, "concurrent workers")
	flagSet.IntVar(&ops, "ops", 200000, "operations per phase")
	flagSet.StringVar(&redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR or an embedded miniredis is used")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if identifiers <= 0 || sessions <= 0 || concurrency <= 0 || ops <= 0 {
		return errors.New("identifiers, sessions, concurrency, and ops must be > 0")
	}

	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
	}
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", redisAddr)
	} else {
		fmt.Printf("using redis at %s\n", redisAddr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{redisAddr}})
	defer client.Close()

	cfg := siteguard.DefaultConfig()
	cfg.Session.Secret = []byte("loadtest-secret-loadtest-secret-!")
	// Large limits keep the limiter on the admit path, which does the most work.
	cfg.RateLimit.ShortLimit = ops
	cfg.RateLimit.DailyLimit = ops + 1

	engine, err := siteguard.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	ctx := context.Background()

	ids := make([]string, identifiers)
	for i := range ids {
		ids[i] = fmt.Sprintf("198.51.%d.%d", (i/256)%256, i%256)
	}

	cookies := make([]*http.Cookie, sessions)
	for i := range cookies {
		rec := httptest.NewRecorder()
		if _, err := engine.CreateSession(ctx, rec, siteguard.Identity{
			ID:   fmt.Sprintf("u%d", i),
			Role: siteguard.RoleCandidate,
		}); err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
		cookies[i] = rec.Result().Cookies()[0]
	}

	limitStats := runPhase(ops, concurrency, func(r *rand.Rand) bool {
		res := engine.CheckLimit(ctx, ids[r.IntN(len(ids))])
		return res.Success && !res.Degraded
	})
	sessionStats := runPhase(ops, concurrency, func(r *rand.Rand) bool {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[r.IntN(len(cookies))])
		return engine.GetSession(req) != nil
	})

	fmt.Println("---- results ----")
	printStats("check-limit", limitStats)
	printStats("get-session", sessionStats)
	return nil
}

// runPhase spreads ops calls of op over concurrency workers. op reports success.
func runPhase(ops, concurrency int, op func(*rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func(worker uint64) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), worker))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for cursor.Add(1) <= int64(ops) {
				t0 := time.Now()
				ok := op(r)
				local = append(local, time.Since(t0))
				if !ok {
					failures.Add(1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(uint64(w))
	}
	wg.Wait()

	return computeStats(time.Since(start), latencies, failures.Load())
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

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	slices.Sort(samples)
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

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
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
