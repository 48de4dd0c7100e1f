package transcription

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/transcribekit/util"
)

func validConfig() Config {
	cfg := Config{APIBaseURL: "https://api.example.com", RelayBaseURL: "https://app.example.com"}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := validConfig()
	if cfg.TokenPath != "/api/auth/token" || cfg.ProxyPath != "/api/transcribe" || cfg.DirectPath != "/transcribe" {
		t.Errorf("unexpected paths %+v", cfg)
	}
	if cfg.DirectThresholdBytes() != 4*util.MiB {
		t.Errorf("expected 4 MiB threshold, got %d", cfg.DirectThresholdBytes())
	}
	if cfg.MaxFileSizeBytes() != 100*util.MiB {
		t.Errorf("expected 100 MiB cap, got %d", cfg.MaxFileSizeBytes())
	}
	if cfg.Timeout != 60*time.Second || cfg.Retry.MaxAttempts != 3 || cfg.Retry.BackoffStep != time.Second {
		t.Errorf("unexpected timing defaults %+v", cfg)
	}
	if cfg.TokenRefreshMargin != 5*time.Minute || cfg.ChunkSize != 60 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing api url", func(c *Config) { c.APIBaseURL = "" }, "api_base_url"},
		{"relative relay url", func(c *Config) { c.RelayBaseURL = "/relay" }, "relay_base_url"},
		{"bad threshold", func(c *Config) { c.DirectThreshold = "four" }, "direct_threshold"},
		{"bad chunk", func(c *Config) { c.ChunkSize = 30 }, "chunk_size"},
		{"too many attempts", func(c *Config) { c.Retry.MaxAttempts = 50 }, "retry.max_attempts"},
		{"token cache without key", func(c *Config) { c.TokenCache.Path = "/tmp/token" }, "token_cache.key"},
		{"unknown cache cipher", func(c *Config) {
			c.TokenCache = TokenCacheConfig{Path: "/tmp/token", Key: "k", Algorithm: "rot13"}
		}, "token_cache.algorithm"},
		{"tls cert without key", func(c *Config) { c.TLS.CertFile = "client.pem" }, "key_file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("expected error mentioning %q, got %v", tc.field, err)
			}
		})
	}
}
