package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
browser:
  headless: false
  nav_timeout: 20s
  proxy_host: gate.example.net
  proxy_ports: [10001, 10002]
fetcher:
  concurrency: 4
  max_retries: 1
llm:
  model: test-model
  api_key: sk-test
  concurrency: 2
  max_input_tokens: 6000
scheduler:
  concurrency: 6
  run_timeout: 10m
  min_score: 40
delivery:
  type: slack
  webhook_url: https://hooks.slack.com/services/T/B/X
rate_limit:
  min_delay: 2s
  host_overrides:
    www.example.com: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Browser.Headless {
		t.Error("Headless = true, want false")
	}
	if cfg.Browser.NavTimeout != 20*time.Second {
		t.Errorf("NavTimeout = %v, want 20s", cfg.Browser.NavTimeout)
	}
	if len(cfg.Browser.ProxyPorts) != 2 {
		t.Errorf("ProxyPorts = %v", cfg.Browser.ProxyPorts)
	}
	if cfg.Fetcher.Concurrency != 4 || cfg.Fetcher.MaxRetries != 1 {
		t.Errorf("Fetcher = %+v", cfg.Fetcher)
	}
	if cfg.LLM.MaxInputTokens != 6000 || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Scheduler.MinScore != 40 || cfg.Scheduler.RunTimeout != 10*time.Minute {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.RateLimit.MinDelay != 2*time.Second || cfg.RateLimit.HostOverrides["www.example.com"] != 5*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless default should be true")
	}
	if cfg.Source.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", cfg.Source.PageSize)
	}
	if cfg.Fetcher.Concurrency != 3 || cfg.Fetcher.MaxRetries != 2 {
		t.Errorf("Fetcher defaults = %+v", cfg.Fetcher)
	}
	if cfg.LLM.Concurrency != 2 || cfg.LLM.MaxInputTokens != 8000 {
		t.Errorf("LLM defaults = %+v", cfg.LLM)
	}
	if cfg.Delivery.Type != "log" || cfg.Store.Type != "sqlite" {
		t.Errorf("Delivery/Store defaults = %q/%q", cfg.Delivery.Type, cfg.Store.Type)
	}
}

func TestLoad_MissingAPIKeyIsNotAnError(t *testing.T) {
	cfg, err := Load(writeConfig(t, "llm:\n  model: gpt-4o-mini\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.LLM.APIKey)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBSCOUT_TEST_KEY", "sk-from-env")
	cfg, err := Load(writeConfig(t, "llm:\n  api_key: ${JOBSCOUT_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "browser: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_LLMWiderThanFetcherRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "fetcher:\n  concurrency: 2\nllm:\n  concurrency: 3\n"))
	if err == nil {
		t.Fatal("Load: expected error when llm.concurrency exceeds fetcher.concurrency")
	}
}

func TestLoad_ProxyHostWithoutPorts(t *testing.T) {
	_, err := Load(writeConfig(t, "browser:\n  proxy_host: gate.example.net\n"))
	if err == nil {
		t.Fatal("Load: expected error for proxy_host without proxy_ports")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "scheduler:\n  run_timeout: soon\n"))
	if err == nil {
		t.Fatal("Load: expected error for bad duration")
	}
}

func TestLoad_SlackRequiresWebhook(t *testing.T) {
	_, err := Load(writeConfig(t, "delivery:\n  type: slack\n"))
	if err == nil {
		t.Fatal("Load: expected error for slack without webhook_url")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  type: postgres\n"))
	if err == nil {
		t.Fatal("Load: expected error for postgres without dsn")
	}
}
