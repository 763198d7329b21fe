// Command sessiongate-loadtest measures issue and validate throughput of the
// engine against Redis (or an embedded miniredis).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 20000, "number of tokens to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "validate operations")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "token key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := sessiongate.DefaultConfig()
	cfg.Store.RedisPrefix = *prefix
	cfg.RateLimit.RedisPrefix = *prefix + "-rl"
	cfg.Token.Lifetime = time.Hour
	// Limits would reject the load itself.
	cfg.RateLimit.General.Limit = 0
	cfg.RateLimit.Issuance.Limit = 0

	engine, err := sessiongate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := sessiongate.WithClientIP(context.Background(), "198.51.100.1")

	issued, issueStats := runIssuePhase(ctx, engine, *tokens, *concurrency)
	if len(issued) == 0 {
		fmt.Fprintln(os.Stderr, "no tokens issued")
		os.Exit(1)
	}
	validateStats := runValidatePhase(ctx, engine, issued, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("validate", validateStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("latency buckets (<=250us ... >50ms): %v\n", snap.Histograms[sessiongate.MetricValidateLatency])
}

func runIssuePhase(ctx context.Context, engine *sessiongate.Engine, n, concurrency int) ([]string, phaseStats) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, n)
		issued    = make([]string, 0, n)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > n {
					return
				}
				t0 := time.Now()
				tok, err := engine.Issue(ctx)
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err != nil {
					failures++
				} else {
					issued = append(issued, tok.Token)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return issued, computeStats(time.Since(start), latencies, failures)
}

func runValidatePhase(ctx context.Context, engine *sessiongate.Engine, issued []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				tok := issued[r.Intn(len(issued))]
				t0 := time.Now()
				_, err := engine.Validate(ctx, tok)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, atomic.LoadInt64(&failures))
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
	return samples[(len(samples)-1)*p/100]
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
