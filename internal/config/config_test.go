package config

import (
	"testing"
	"time"
)

func clearAll(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED", "API_BASE_PATH",
		"DB_PATH",
		"RATE_READ_RPS", "RATE_READ_BURST", "RATE_WRITE_RPS", "RATE_WRITE_BURST",
		"CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"IDEMPOTENCY_TTL",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearAll(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q, want /api/v1", cfg.APIBasePath)
	}
	if cfg.DBPath != "reviews.db" {
		t.Errorf("DBPath = %q, want reviews.db", cfg.DBPath)
	}
	if cfg.RateWrite.RPS != 1.0 || cfg.RateWrite.Burst != 5 {
		t.Errorf("RateWrite = %+v, want 1 rps / burst 5", cfg.RateWrite)
	}
	if cfg.RateRead.RPS != 10.0 || cfg.RateRead.Burst != 20 {
		t.Errorf("RateRead = %+v, want 10 rps / burst 20", cfg.RateRead)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("IdempotencyTTL = %v, want 24h", cfg.IdempotencyTTL)
	}
	if cfg.OTEL.Enabled {
		t.Error("OTEL.Enabled should default to false")
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	clearAll(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "weird")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("RATE_WRITE_RPS", "2.5")
	t.Setenv("RATE_WRITE_BURST", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example ,")
	t.Setenv("IDEMPOTENCY_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release fallback", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}
	if cfg.RateWrite.RPS != 2.5 || cfg.RateWrite.Burst != 10 {
		t.Errorf("RateWrite = %+v", cfg.RateWrite)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.IdempotencyTTL != time.Hour {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "LOG_LEVEL", "chatty"},
		{"negative read rps", "RATE_READ_RPS", "-1"},
		{"zero read burst", "RATE_READ_BURST", "0"},
		{"zero write burst", "RATE_WRITE_BURST", "0"},
		{"bad sampler ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
		{"negative sampler ratio", "OTEL_TRACES_SAMPLER_ARG", "-0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearAll(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%s should fail", tc.key, tc.value)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearAll(t)
	t.Setenv("LOG_LEVEL", "chatty")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"/api/v1": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
