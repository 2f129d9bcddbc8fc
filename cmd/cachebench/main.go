// Command cachebench runs a synthetic request workload against one cache
// profile and exposes optional Prometheus and pprof endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/IvanBrykalov/respcache/cache"
	"github.com/IvanBrykalov/respcache/config"
	cacheotel "github.com/IvanBrykalov/respcache/metrics/otel"
	pmet "github.com/IvanBrykalov/respcache/metrics/prom"
	"github.com/IvanBrykalov/respcache/persist"
)

// response is the cached payload: roughly what an API handler would store.
type response struct {
	Status int               `json:"status"`
	Header map[string]string `json:"header"`
	Body   string            `json:"body"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cachebench:", err)
		os.Exit(1)
	}
}

func run() error {
	// ---- Flags ----
	var (
		configPath = flag.String("config", "", "YAML profiles file (empty = built-in profiles)")
		cacheName  = flag.String("cache", cache.ProfileAPI, "profile to exercise")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys       = flag.Int("keys", 100_000, "keyspace size")
		valueBytes = flag.Int("value-bytes", 2048, "response body size")
		zipfS      = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		persistDir  = flag.String("persist-dir", "", "persist to files under dir (empty = in-memory store)")
		metricsAddr = flag.String("http", "", "serve /metrics and /debug/pprof at addr (e.g. :8080); empty = disabled")
		otelName    = flag.String("otel", "none", "route cache metrics through OpenTelemetry: stdout | otlp | prometheus | none")
		logLevel    = flag.String("log-level", "info", "debug | info | warn | error")
	)
	flag.Parse()
	if err := checkWorkload(*keys, *zipfS, *readPct); err != nil {
		return err
	}

	// ---- Logging ----
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid -log-level %q: %w", *logLevel, err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	// ---- Persistence ----
	var store persist.Store = persist.NewMemoryStore(0)
	if *persistDir != "" {
		fs, err := persist.NewFSStore(osfs.New(*persistDir), "entries")
		if err != nil {
			return err
		}
		store = fs
	}

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	var factory func(string) cache.Metrics
	if *otelName != "none" {
		reader, err := cacheotel.NewReader(ctx, *otelName, reg)
		if err != nil {
			return err
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()
		rec, err := cacheotel.New(mp.Meter("github.com/IvanBrykalov/respcache"))
		if err != nil {
			return err
		}
		factory = rec.For
	} else {
		factory = pmet.New(reg, "respcache", "bench").For
	}

	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Info("metrics: serving", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Error("metrics: server stopped", "err", err)
			}
		}()
	}

	// ---- Build caches ----
	opts := []cache.ManagerOption{cache.WithManagerLogger(log), cache.WithMetricsFactory(factory)}
	m, err := buildManager(*configPath, *cacheName, store, log, opts)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err := m.Restore(ctx); err != nil {
		log.Warn("restore failed", "err", err)
	}

	c, ok := m.Cache(*cacheName)
	if !ok {
		return fmt.Errorf("unknown cache %q (have %s)", *cacheName, strings.Join(m.Names(), ", "))
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}
	body := strings.Repeat("a", *valueBytes)

	// ---- Load generation ----
	var reads, writes, fetches, total uint64
	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, 1, keysMax)

			for {
				select {
				case <-runCtx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				k := "GET /items/" + strconv.FormatUint(localZipf.Uint64(), 10)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					_, err := cache.GetOrFetch(runCtx, c, k, func(context.Context) (response, error) {
						atomic.AddUint64(&fetches, 1)
						return response{Status: 200, Header: map[string]string{"content-type": "text/plain"}, Body: body}, nil
					}, 0)
					if err != nil && runCtx.Err() == nil {
						log.Warn("fetch failed", "key", k, "err", err)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					c.Set(k, response{Status: 200, Body: body})
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)
	swept := c.Sweep()

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	st := c.Stats()
	cfg := c.Config()

	fmt.Printf("cache=%s strategy=%s ttl=%v max=%dMB compress=%v persist=%v workers=%d keys=%d dur=%v seed=%d\n",
		c.Name(), cfg.Policy.Name(), cfg.TTL, cfg.MaxSizeMB, cfg.Compress, cfg.Persist, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  fetches=%d\n",
		ops, float64(ops)/elapsed.Seconds(), atomic.LoadUint64(&reads), atomic.LoadUint64(&writes), atomic.LoadUint64(&fetches))
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", st.Hits, st.Misses, st.HitRate)
	fmt.Printf("entries=%d  size=%d/%d bytes  evictions=%d  expirations=%d  swept=%d\n",
		st.EntryCount, st.TotalSize, st.MaxSize, st.Evictions, st.Expirations, swept)
	return nil
}

// checkWorkload rejects flag values the Zipf generator cannot serve.
func checkWorkload(keys int, zipfS float64, readPct int) error {
	if keys < 1 {
		return fmt.Errorf("-keys must be at least 1, got %d", keys)
	}
	if zipfS <= 1 {
		return fmt.Errorf("-zipf_s must be greater than 1, got %v", zipfS)
	}
	if readPct < 0 || readPct > 100 {
		return fmt.Errorf("-reads must be within [0, 100], got %d", readPct)
	}
	return nil
}

// buildManager registers the built-in profiles, or every profile in the
// file at path. With a file, name must be one of its profiles.
func buildManager(path, name string, store persist.Store, log *slog.Logger, opts []cache.ManagerOption) (*cache.Manager, error) {
	if path == "" {
		return cache.NewDefaultManager(store, opts...)
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	p, ok := f.Profile(name)
	if !ok {
		return nil, fmt.Errorf("profile %q not found in %s", name, path)
	}
	log.Info("config: using profile", "file", path, "cache", p.Name,
		"ttl_ms", p.TTLMS, "max_size_mb", p.MaxSizeMB, "strategy", p.Strategy)
	cfgs, err := f.Configs()
	if err != nil {
		return nil, err
	}
	m := cache.NewManager(opts...)
	for _, cfg := range cfgs {
		if cfg.Persist {
			cfg.Store = store
		}
		if _, err := m.Register(cfg); err != nil {
			_ = m.Close()
			return nil, err
		}
	}
	return m, nil
}
