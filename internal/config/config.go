package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the jobscout daemon and CLI.
type Config struct {
	Log       LogConfig
	Browser   BrowserConfig
	Source    SourceConfig
	Fetcher   FetcherConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
	Filters   FilterConfig
	Delivery  DeliveryConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
}

// LogConfig selects level and handler format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BrowserConfig controls the shared headless browser and its proxies.
type BrowserConfig struct {
	Headless       bool
	NavTimeout     time.Duration // per navigation
	ProxyHost      string        // host template, e.g. "gate.example.net" or "gate-{port}.example.net"
	ProxyPorts     []int         // pool to randomize across
	ProxyUsername  string
	ProxyPassword  string
	BlockedDomains []string      // extra ad/analytics domains on top of the built-in list
	WatchdogIdle   time.Duration // idle time before the watchdog tries to dismiss a dialog
}

// SourceConfig describes the search-results site.
type SourceConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
}

// FetcherConfig controls the detail-page stage.
type FetcherConfig struct {
	Concurrency    int
	MaxRetries     int
	RotateEvery    int // rotate proxy every Nth task regardless of failures
	RetryBaseDelay time.Duration
}

// LLMConfig controls the filtering stage. An empty APIKey runs the pipeline unscored.
type LLMConfig struct {
	Provider               string // "openai" or "gemini"
	BaseURL                string // OpenAI-compatible endpoint
	Model                  string
	APIKey                 string
	Timeout                time.Duration
	MaxInputTokens         int
	ReservedResponseTokens int
	MaxOutputTokens        int
	Temperature            float32
	Concurrency            int
	RequestsPerSecond      float64
	DescriptionMaxChars    int
	Translate              bool
}

// SchedulerConfig controls the cron-driven runner.
type SchedulerConfig struct {
	Concurrency int           // global cap on concurrent pipeline runs
	RunTimeout  time.Duration // overall deadline for one run
	MinScore    int           // listings at or below this score are not delivered
}

// FilterConfig holds caller-side exclusion rules.
type FilterConfig struct {
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	KeepUnscored    bool     `yaml:"keep_unscored"` // deliver listings the LLM could not score
}

// DeliveryConfig selects where results go.
type DeliveryConfig struct {
	Type        string `yaml:"type"`         // "log", "slack" or "redis"
	WebhookURL  string `yaml:"webhook_url"`  // required if type is "slack"
	RedisURL    string `yaml:"redis_url"`    // required if type is "redis"
	RedisStream string `yaml:"redis_stream"` // defaults to "jobscout:deliveries"
	Dedupe      bool   `yaml:"dedupe"`       // suppress links already delivered for a search
}

// StoreConfig selects the saved-search store.
type StoreConfig struct {
	Type string `yaml:"type"` // "sqlite" or "postgres"
	Path string `yaml:"path"` // sqlite file
	DSN  string `yaml:"dsn"`  // postgres connection string
}

// RateLimitConfig controls the per-host politeness delay between navigations.
type RateLimitConfig struct {
	MinDelay      time.Duration
	HostOverrides map[string]time.Duration
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultSourceBaseURL = "https://www.linkedin.com/jobs/search"
	defaultRedisStream   = "jobscout:deliveries"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Log       LogConfig          `yaml:"log"`
	Browser   rawBrowserConfig   `yaml:"browser"`
	Source    SourceConfig       `yaml:"source"`
	Fetcher   rawFetcherConfig   `yaml:"fetcher"`
	LLM       rawLLMConfig       `yaml:"llm"`
	Scheduler rawSchedulerConfig `yaml:"scheduler"`
	Filters   FilterConfig       `yaml:"filters"`
	Delivery  DeliveryConfig     `yaml:"delivery"`
	Store     StoreConfig        `yaml:"store"`
	RateLimit rawRateLimitConfig `yaml:"rate_limit"`
}

type rawBrowserConfig struct {
	Headless       *bool    `yaml:"headless"`
	NavTimeout     string   `yaml:"nav_timeout"`
	ProxyHost      string   `yaml:"proxy_host"`
	ProxyPorts     []int    `yaml:"proxy_ports"`
	ProxyUsername  string   `yaml:"proxy_username"`
	ProxyPassword  string   `yaml:"proxy_password"`
	BlockedDomains []string `yaml:"blocked_domains"`
	WatchdogIdle   string   `yaml:"watchdog_idle"`
}

type rawFetcherConfig struct {
	Concurrency    int    `yaml:"concurrency"`
	MaxRetries     *int   `yaml:"max_retries"`
	RotateEvery    int    `yaml:"rotate_every"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

type rawLLMConfig struct {
	Provider               string   `yaml:"provider"`
	BaseURL                string   `yaml:"base_url"`
	Model                  string   `yaml:"model"`
	APIKey                 string   `yaml:"api_key"`
	Timeout                string   `yaml:"timeout"`
	MaxInputTokens         int      `yaml:"max_input_tokens"`
	ReservedResponseTokens int      `yaml:"reserved_response_tokens"`
	MaxOutputTokens        int      `yaml:"max_output_tokens"`
	Temperature            *float32 `yaml:"temperature"`
	Concurrency            int      `yaml:"concurrency"`
	RequestsPerSecond      float64  `yaml:"requests_per_second"`
	DescriptionMaxChars    int      `yaml:"description_max_chars"`
	Translate              *bool    `yaml:"translate"`
}

type rawSchedulerConfig struct {
	Concurrency int    `yaml:"concurrency"`
	RunTimeout  string `yaml:"run_timeout"`
	MinScore    *int   `yaml:"min_score"`
}

type rawRateLimitConfig struct {
	MinDelay      string            `yaml:"min_delay"`
	HostOverrides map[string]string `yaml:"host_overrides"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	navTimeout, err := parseDuration("browser.nav_timeout", raw.Browser.NavTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	watchdogIdle, err := parseDuration("browser.watchdog_idle", raw.Browser.WatchdogIdle, 45*time.Second)
	if err != nil {
		return nil, err
	}
	retryBase, err := parseDuration("fetcher.retry_base_delay", raw.Fetcher.RetryBaseDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parseDuration("llm.timeout", raw.LLM.Timeout, 60*time.Second)
	if err != nil {
		return nil, err
	}
	runTimeout, err := parseDuration("scheduler.run_timeout", raw.Scheduler.RunTimeout, 20*time.Minute)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("rate_limit.min_delay", raw.RateLimit.MinDelay, 1500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	hostOverrides := make(map[string]time.Duration)
	for host, v := range raw.RateLimit.HostOverrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.host_overrides[%q]: %w", host, err)
		}
		hostOverrides[host] = d
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  orDefault(raw.Log.Level, "info"),
			Format: orDefault(raw.Log.Format, "text"),
		},
		Browser: BrowserConfig{
			Headless:       boolOr(raw.Browser.Headless, true),
			NavTimeout:     navTimeout,
			ProxyHost:      raw.Browser.ProxyHost,
			ProxyPorts:     raw.Browser.ProxyPorts,
			ProxyUsername:  raw.Browser.ProxyUsername,
			ProxyPassword:  raw.Browser.ProxyPassword,
			BlockedDomains: raw.Browser.BlockedDomains,
			WatchdogIdle:   watchdogIdle,
		},
		Source: SourceConfig{
			BaseURL:  orDefault(raw.Source.BaseURL, defaultSourceBaseURL),
			PageSize: intOr(raw.Source.PageSize, 10),
		},
		Fetcher: FetcherConfig{
			Concurrency:    intOr(raw.Fetcher.Concurrency, 3),
			MaxRetries:     intPtrOr(raw.Fetcher.MaxRetries, 2),
			RotateEvery:    intOr(raw.Fetcher.RotateEvery, 5),
			RetryBaseDelay: retryBase,
		},
		LLM: LLMConfig{
			Provider:               strings.ToLower(orDefault(raw.LLM.Provider, "openai")),
			BaseURL:                orDefault(raw.LLM.BaseURL, defaultOpenAIBaseURL),
			Model:                  orDefault(raw.LLM.Model, "gpt-4o-mini"),
			APIKey:                 raw.LLM.APIKey,
			Timeout:                llmTimeout,
			MaxInputTokens:         intOr(raw.LLM.MaxInputTokens, 8000),
			ReservedResponseTokens: intOr(raw.LLM.ReservedResponseTokens, 1500),
			MaxOutputTokens:        intOr(raw.LLM.MaxOutputTokens, 1500),
			Temperature:            float32Or(raw.LLM.Temperature, 0.1),
			Concurrency:            intOr(raw.LLM.Concurrency, 2),
			RequestsPerSecond:      floatOr(raw.LLM.RequestsPerSecond, 1),
			DescriptionMaxChars:    intOr(raw.LLM.DescriptionMaxChars, 6000),
			Translate:              boolOr(raw.LLM.Translate, true),
		},
		Scheduler: SchedulerConfig{
			Concurrency: intOr(raw.Scheduler.Concurrency, 4),
			RunTimeout:  runTimeout,
			MinScore:    intPtrOr(raw.Scheduler.MinScore, 0),
		},
		Filters: raw.Filters,
		Delivery: DeliveryConfig{
			Type:        orDefault(raw.Delivery.Type, "log"),
			WebhookURL:  raw.Delivery.WebhookURL,
			RedisURL:    raw.Delivery.RedisURL,
			RedisStream: orDefault(raw.Delivery.RedisStream, defaultRedisStream),
			Dedupe:      raw.Delivery.Dedupe,
		},
		Store: StoreConfig{
			Type: orDefault(raw.Store.Type, "sqlite"),
			Path: orDefault(raw.Store.Path, "jobscout.db"),
			DSN:  raw.Store.DSN,
		},
		RateLimit: RateLimitConfig{
			MinDelay:      minDelay,
			HostOverrides: hostOverrides,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Source.PageSize <= 0 {
		return fmt.Errorf("source.page_size must be positive, got %d", cfg.Source.PageSize)
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must not be negative, got %d", cfg.Fetcher.MaxRetries)
	}

	// Widths narrow as the stages get costlier.
	if cfg.LLM.Concurrency > cfg.Fetcher.Concurrency {
		return fmt.Errorf("llm.concurrency (%d) must not exceed fetcher.concurrency (%d)",
			cfg.LLM.Concurrency, cfg.Fetcher.Concurrency)
	}
	if cfg.Fetcher.Concurrency < 1 || cfg.LLM.Concurrency < 1 || cfg.Scheduler.Concurrency < 1 {
		return fmt.Errorf("concurrency widths must be at least 1")
	}

	if cfg.LLM.MaxInputTokens <= cfg.LLM.ReservedResponseTokens {
		return fmt.Errorf("llm.max_input_tokens (%d) must exceed llm.reserved_response_tokens (%d)",
			cfg.LLM.MaxInputTokens, cfg.LLM.ReservedResponseTokens)
	}
	switch cfg.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be \"openai\" or \"gemini\", got %q", cfg.LLM.Provider)
	}

	if cfg.Scheduler.MinScore < 0 || cfg.Scheduler.MinScore > 100 {
		return fmt.Errorf("scheduler.min_score must be between 0 and 100, got %d", cfg.Scheduler.MinScore)
	}

	if cfg.Browser.ProxyHost != "" && len(cfg.Browser.ProxyPorts) == 0 {
		return fmt.Errorf("browser.proxy_ports is required when browser.proxy_host is set")
	}

	switch cfg.Delivery.Type {
	case "log":
	case "slack":
		if !strings.HasPrefix(cfg.Delivery.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("delivery.webhook_url must start with https://hooks.slack.com/")
		}
	case "redis":
		if cfg.Delivery.RedisURL == "" {
			return fmt.Errorf("delivery.redis_url is required when type is \"redis\"")
		}
	default:
		return fmt.Errorf("delivery.type must be log, slack or redis, got %q", cfg.Delivery.Type)
	}

	switch cfg.Store.Type {
	case "sqlite":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when type is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.type must be sqlite or postgres, got %q", cfg.Store.Type)
	}

	return nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func intPtrOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func float32Or(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
