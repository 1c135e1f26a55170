package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/ai"
	"github.com/amishk599/jobscout/internal/browser"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/crawler"
	"github.com/amishk599/jobscout/internal/fetcher"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/logging"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/pipeline"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/retry"
	"github.com/amishk599/jobscout/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Scheduled job-board searches, scored and delivered",
	Long:  "JobScout crawls a job board for saved searches, scores the listings with an LLM and delivers the matches.",
	// `jobscout` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSCOUT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it. A .env file in the
// working directory is loaded first so the YAML can reference its variables.
// Priority: explicit path arg > JOBSCOUT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()
	if path == "" {
		if env := os.Getenv("JOBSCOUT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setup loads config and builds the logger every subcommand starts from.
// A config error is fatal.
func setup() (*config.Config, *slog.Logger, func()) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	logger, sync := logging.New(level, cfg.Log.Format, os.Stdout)
	return cfg, logger, func() { _ = sync() }
}

// closers runs cleanup funcs in reverse order of registration.
type closers []func() error

func (c *closers) add(f func() error) { *c = append(*c, f) }

func (c closers) close(logger *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}
}

// storeHandle is what the CLI needs from either backing store.
type storeHandle interface {
	model.SearchStore
	model.LinkStore
	Close() error
}

func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storeHandle, error) {
	switch cfg.Store.Type {
	case "postgres":
		logger.Debug("using postgres store")
		return store.NewPostgresStore(ctx, cfg.Store.DSN)
	default:
		logger.Debug("using sqlite store", "path", cfg.Store.Path)
		return store.NewSQLiteStore(cfg.Store.Path)
	}
}

// setupProvider picks the LLM backend. With no API key the pipeline still
// runs and every listing comes back unscored.
func setupProvider(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger, cl *closers) ai.LLMProvider {
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm.api_key not set, listings will be delivered unscored")
		return ai.UnavailableProvider{}
	}

	opts := ai.ProviderOptions{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxOutputTokens,
		Timeout:     cfg.LLM.Timeout,
	}

	var provider ai.LLMProvider
	switch cfg.LLM.Provider {
	case "gemini":
		p, err := ai.NewGeminiProvider(ctx, cfg.LLM.APIKey, opts)
		if err != nil {
			logger.Warn("gemini unavailable, listings will be delivered unscored", "error", err)
			return ai.UnavailableProvider{}
		}
		cl.add(p.Close)
		provider = p
	default:
		provider = ai.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, opts, httpClient)
	}
	logger.Info("llm filtering enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	if cfg.LLM.RequestsPerSecond > 0 {
		provider = ai.NewRateLimitedProvider(provider, cfg.LLM.RequestsPerSecond)
	}
	return provider
}

// setupDeliverer builds the configured sink. links may be nil to disable
// dedupe regardless of config.
func setupDeliverer(ctx context.Context, cfg *config.Config, links model.LinkStore, httpClient *http.Client, logger *slog.Logger, cl *closers) (model.Deliverer, error) {
	var d model.Deliverer
	switch cfg.Delivery.Type {
	case "slack":
		logger.Info("using slack delivery")
		d = notifier.NewSlackNotifier(cfg.Delivery.WebhookURL, httpClient, logger)
	case "redis":
		client, err := notifier.NewRedisClient(ctx, cfg.Delivery.RedisURL)
		if err != nil {
			return nil, err
		}
		cl.add(client.Close)
		logger.Info("using redis delivery", "stream", cfg.Delivery.RedisStream)
		d = notifier.NewRedisNotifier(client, cfg.Delivery.RedisStream, logger)
	default:
		d = notifier.NewLogNotifier(logger)
	}

	if cfg.Delivery.Dedupe && links != nil {
		d = notifier.NewDedupeNotifier(d, links, logger)
	}
	return d, nil
}

// buildFilter is the post-enrichment chain shared by scheduled and one-shot runs.
func buildFilter(cfg *config.Config) filter.Chain {
	return filter.Chain{
		filter.NewScoreFilter(cfg.Scheduler.MinScore, cfg.Filters.KeepUnscored),
		filter.NewRedFlagFilter(cfg.Filters.ExcludeKeywords),
	}
}

// buildPipeline wires browser, crawler, fetcher and LLM stages. The browser
// is launched lazily on the first run; the returned closers shut it down.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, cl *closers) *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: cfg.LLM.Timeout + 10*time.Second}

	pool := browser.NewPool(
		browser.PlaywrightLauncher(cfg.Browser.Headless),
		browser.PoolOptions{NavTimeout: cfg.Browser.NavTimeout, BlockedDomains: cfg.Browser.BlockedDomains},
		logger,
	)
	cl.add(pool.CloseAll)

	var proxies *browser.ProxyRotator
	if cfg.Browser.ProxyHost != "" {
		proxies = browser.NewProxyRotator(cfg.Browser.ProxyHost, cfg.Browser.ProxyPorts,
			cfg.Browser.ProxyUsername, cfg.Browser.ProxyPassword)
		logger.Info("proxy rotation enabled", "ports", len(cfg.Browser.ProxyPorts))
	}

	limiter := ratelimit.NewHostRateLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.HostOverrides)

	crawl := crawler.New(
		crawler.BrowserOpener(pool, proxies, crawler.DefaultSelectors(), cfg.Browser.WatchdogIdle, logger),
		cfg.Source.BaseURL,
		cfg.Source.PageSize,
		limiter,
		logger,
	)

	fetch := fetcher.New(
		fetcher.BrowserOpener(pool, fetcher.DefaultSelectors(), cfg.Browser.WatchdogIdle, logger),
		proxies,
		retry.New(cfg.Fetcher.MaxRetries, cfg.Fetcher.RetryBaseDelay, logger),
		limiter,
		fetcher.Options{
			BaseURL:     cfg.Source.BaseURL,
			Concurrency: cfg.Fetcher.Concurrency,
			RotateEvery: cfg.Fetcher.RotateEvery,
		},
		logger,
	)

	provider := setupProvider(ctx, cfg, httpClient, logger, cl)
	var normalizer *ai.Normalizer
	if cfg.LLM.Translate {
		normalizer = ai.NewNormalizer(provider, ai.TranslateTemplate, cfg.LLM.Concurrency, logger)
	}
	enricher := ai.NewEnricher(provider, ai.FilterJobsTemplate, normalizer, ai.EnricherOptions{
		MaxInputTokens:         cfg.LLM.MaxInputTokens,
		ReservedResponseTokens: cfg.LLM.ReservedResponseTokens,
		DescriptionMaxChars:    cfg.LLM.DescriptionMaxChars,
		Concurrency:            cfg.LLM.Concurrency,
	}, logger)

	return pipeline.New(crawl, fetch, enricher, logger)
}
