package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{EnvGroqKey, EnvExchangeRateKey, "FINTEL_LLM_MODEL", "FINTEL_LLM_RUNTIME", "FINTEL_API_PORT"} {
		t.Setenv(e, "")
		os.Unsetenv(e)
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LLM.Runtime != "eino" {
		t.Errorf("LLM.Runtime: got %q, want %q", cfg.LLM.Runtime, "eino")
	}
	if cfg.LLM.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("LLM.BaseURL: got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("LLM.Model: got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0 {
		t.Errorf("LLM.Temperature: got %f, want 0", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxSteps != 10 {
		t.Errorf("LLM.MaxSteps: got %d, want 10", cfg.LLM.MaxSteps)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey should be empty, got %q", cfg.LLM.APIKey)
	}

	if cfg.Currency.BaseURL != "https://v6.exchangerate-api.com/v6" {
		t.Errorf("Currency.BaseURL: got %q", cfg.Currency.BaseURL)
	}
	if cfg.Currency.Timeout() != 5*time.Second {
		t.Errorf("Currency.Timeout: got %v, want 5s", cfg.Currency.Timeout())
	}
	if cfg.Currency.RequestsPerMinute != 30 {
		t.Errorf("Currency.RequestsPerMinute: got %d", cfg.Currency.RequestsPerMinute)
	}

	if cfg.News.Enabled {
		t.Error("News.Enabled should be false by default")
	}
	if cfg.News.Limit != 5 {
		t.Errorf("News.Limit: got %d, want 5", cfg.News.Limit)
	}

	if cfg.API.Addr() != "0.0.0.0:8080" {
		t.Errorf("API.Addr: got %q", cfg.API.Addr())
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGroqKey, "gsk_test_1234567890")
	t.Setenv(EnvExchangeRateKey, "er_test_abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.APIKey != "gsk_test_1234567890" {
		t.Errorf("LLM.APIKey: got %q", cfg.LLM.APIKey)
	}
	if cfg.Currency.APIKey != "er_test_abcdef" {
		t.Errorf("Currency.APIKey: got %q", cfg.Currency.APIKey)
	}
}

func TestLoadPrefixedEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINTEL_LLM_RUNTIME", "native")
	t.Setenv("FINTEL_API_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Runtime != "native" {
		t.Errorf("LLM.Runtime: got %q, want native", cfg.LLM.Runtime)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  runtime: native
  model: llama-3.1-8b-instant
  api_key: gsk_from_file_123456
currency:
  timeout_sec: 3
news:
  enabled: true
  limit: 3
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.LLM.Runtime != "native" || cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("LLM: got %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "gsk_from_file_123456" {
		t.Errorf("LLM.APIKey: got %q", cfg.LLM.APIKey)
	}
	if cfg.Currency.Timeout() != 3*time.Second {
		t.Errorf("Currency.Timeout: got %v", cfg.Currency.Timeout())
	}
	if !cfg.News.Enabled || cfg.News.Limit != 3 {
		t.Errorf("News: got %+v", cfg.News)
	}
	// Unset values keep their defaults.
	if cfg.LLM.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("LLM.BaseURL: got %q", cfg.LLM.BaseURL)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q", cfg.Logging.Format)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFileInvalidValues(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  runtime: langgraph
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "Runtime") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestLoadFromFileAcceptsWarningLevel(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: warning
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Logging.Level != "warning" {
		t.Errorf("Logging.Level: got %q, want warning", cfg.Logging.Level)
	}
}

// ── .env ──

func TestLoadWithoutDotEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	if _, err := Load(); err != nil {
		t.Fatalf("a missing .env must not fail Load: %v", err)
	}
}

func TestLoadRejectsMalformedDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ-API-KEY=gsk_x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for malformed .env")
	}
	if !strings.Contains(err.Error(), ".env") {
		t.Errorf("error should name the .env file: %v", err)
	}

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil || !strings.Contains(err.Error(), ".env") {
		t.Errorf("LoadFromFile should report the .env error first, got %v", err)
	}
}

// ── Keys ──

func TestCheckAPIKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGroqKey, "gsk_abcdefghijkl")

	cfg := &Config{}
	cfg.LLM.APIKey = "gsk_abcdefghijkl"

	keys := CheckAPIKeys(cfg)
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}

	groq := keys[0]
	if !groq.IsSet || groq.Source != KeySourceEnv || !groq.Required {
		t.Errorf("groq status: %+v", groq)
	}
	if groq.Masked != "gsk...jkl" {
		t.Errorf("Masked: got %q", groq.Masked)
	}

	er := keys[1]
	if er.IsSet || er.Source != KeySourceNone || er.Required {
		t.Errorf("exchangerate status: %+v", er)
	}
}

func TestCheckKeyFromConfig(t *testing.T) {
	clearEnv(t)
	cfg := &Config{}
	cfg.Currency.APIKey = "short"

	er := CheckAPIKeys(cfg)[1]
	if er.Source != KeySourceConfig {
		t.Errorf("Source: got %q, want config", er.Source)
	}
	if er.Masked != "***" {
		t.Errorf("short keys are fully masked, got %q", er.Masked)
	}
}

func TestCredentialReadsEachCall(t *testing.T) {
	clearEnv(t)

	cred := Credential(EnvExchangeRateKey, "from-config")
	if got := cred(); got != "from-config" {
		t.Fatalf("got %q, want config fallback", got)
	}

	t.Setenv(EnvExchangeRateKey, "from-env")
	if got := cred(); got != "from-env" {
		t.Fatalf("got %q, want env value", got)
	}

	empty := Credential(EnvGroqKey, "")
	if got := empty(); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
