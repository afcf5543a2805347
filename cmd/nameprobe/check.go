package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nameprobe/nameprobe/pkg/batch"
	"github.com/nameprobe/nameprobe/pkg/cache"
	"github.com/nameprobe/nameprobe/pkg/checker"
	"github.com/nameprobe/nameprobe/pkg/config"
	"github.com/nameprobe/nameprobe/pkg/pool"
	"github.com/nameprobe/nameprobe/pkg/ratelimit"
	"github.com/nameprobe/nameprobe/pkg/telemetry"
)

var (
	flagInput       string
	flagOutput      string
	flagRedis       string
	flagMetricsAddr string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check identifiers from a file and write results",
	Long: `check reads one identifier per line from the input file, resolves
each against the validation endpoint, and writes one delimited result
record per identifier. Interrupting the run (SIGINT/SIGTERM) writes the
results completed so far.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&flagInput, "input", "i", "",
		"input file with one identifier per line (required)")
	checkCmd.Flags().StringVarP(&flagOutput, "output", "o", "",
		"output file for result records (default: stdout)")
	checkCmd.Flags().StringVar(&flagRedis, "redis", "",
		"Redis address for the shared cache tier (overrides config)")
	checkCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on (e.g. :9090); disabled when empty")
	if err := checkCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("mark --input required: %v", err))
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("component", "cli").Logger()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagRedis != "" {
		cfg.RedisAddr = flagRedis
	}

	identifiers, err := loadIdentifiers(flagInput)
	if err != nil {
		return fmt.Errorf("load identifiers: %w", err)
	}
	if len(identifiers) == 0 {
		logger.Warn().Str("input", flagInput).Msg("Input file contains no identifiers")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagMetricsAddr != "" {
		go serveMetrics(flagMetricsAddr)
	}

	p := pool.New(pool.Config{
		Size:                cfg.PoolSize,
		TotalTimeout:        cfg.TotalTimeout,
		ConnectTimeout:      cfg.ConnectTimeout,
		ReadTimeout:         cfg.ReadTimeout,
		MaxIdleConns:        pool.DefaultConfig().MaxIdleConns,
		MaxIdleConnsPerHost: pool.DefaultConfig().MaxIdleConnsPerHost,
		KeepAlive:           pool.DefaultConfig().KeepAlive,
	})
	defer p.Close()

	ctrl := ratelimit.New(ratelimit.Config{
		MinConcurrency:     cfg.MinConcurrency,
		MaxConcurrency:     cfg.MaxConcurrency,
		InitialConcurrency: cfg.InitialConcurrency,
		BaseDelay:          cfg.BaseDelay,
		MaxDelay:           cfg.MaxDelay,
		BackoffFactor:      cfg.BackoffFactor,
	})

	store := cache.NewStore(cfg.CacheTTL, cfg.CacheCapacity)

	dispatcher := checker.NewDispatcher(checker.Config{
		APIURL:        cfg.APIURL,
		ReferenceDate: cfg.ReferenceDate,
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
	}, p, ctrl, store)

	if cfg.RedisAddr != "" {
		if client := connectRedis(ctx, cfg.RedisAddr); client != nil {
			defer client.Close()
			dispatcher.SetSharedStore(cache.NewRedisStore(client, cfg.CacheTTL))
		}
	}

	sink := telemetry.NewThrottled(telemetry.NewLoggerSink(), cfg.ProgressInterval)
	orchestrator := batch.New(batch.Config{
		BatchSize: cfg.BatchSize,
		ChunkSize: cfg.ChunkSize,
	}, dispatcher, ctrl, sink)

	logger.Info().
		Int("identifiers", len(identifiers)).
		Str("endpoint", cfg.APIURL).
		Msg("Starting check run")

	results, runErr := orchestrator.Process(ctx, identifiers)

	if err := writeResults(flagOutput, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	counts := make(map[checker.Outcome]int)
	for _, res := range results {
		counts[res.Outcome]++
	}
	summary := logger.Info()
	for outcome, count := range counts {
		summary = summary.Int(string(outcome), count)
	}
	summary.Int("total", len(results)).Msg("Run summary")

	if runErr != nil {
		logger.Warn().
			Err(runErr).
			Int("completed", len(results)).
			Int("submitted", len(identifiers)).
			Msg("Run interrupted; partial results written")
		return runErr
	}
	return nil
}

// loadIdentifiers reads one identifier per line, skipping blank lines
// and surrounding whitespace.
func loadIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var identifiers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		identifiers = append(identifiers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return identifiers, nil
}

// writeResults renders one record per result, to stdout when path is
// empty or "-".
func writeResults(path string, results []checker.Result) error {
	out := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	fmt.Fprintln(w, checker.RecordHeader)
	for _, res := range results {
		fmt.Fprintln(w, res.Record())
	}
	return w.Flush()
}

// connectRedis dials the shared cache tier. Failure disables the tier
// instead of aborting the run.
func connectRedis(ctx context.Context, addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis unavailable, shared cache tier disabled")
		client.Close()
		return nil
	}
	log.Info().Str("addr", addr).Msg("Connected to Redis")
	return client
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
