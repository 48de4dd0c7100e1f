package session

import (
	"context"
	"encoding/pem"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/transcribekit/security"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/transcription/normalize"
	"github.com/kbukum/transcribekit/util"
)

func TestBuild_TokenCacheSharedAcrossSessions(t *testing.T) {
	b := newBackend(t)
	cfg := transcription.Config{
		APIBaseURL:   b.api.URL,
		RelayBaseURL: b.relay.URL,
		TokenCache: transcription.TokenCacheConfig{
			Path: filepath.Join(t.TempDir(), "token"),
			Key:  "cache-key",
		},
	}
	src := transcription.FromBytes("talk.mp4", "video/mp4", make([]byte, 5*util.MiB))

	for run := 0; run < 2; run++ {
		s, err := Build(cfg, Deps{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if _, err := s.SubmitFile(context.Background(), src, Options{LanguageCode: "auto"}); err != nil {
			t.Fatalf("run %d: SubmitFile: %v", run, err)
		}
	}
	if b.tokenCalls.Load() != 1 || b.directCalls.Load() != 2 {
		t.Errorf("expected one token for two direct uploads, got token=%d direct=%d",
			b.tokenCalls.Load(), b.directCalls.Load())
	}
	if _, err := os.Stat(cfg.TokenCache.Path); err != nil {
		t.Errorf("expected a cache file: %v", err)
	}
}

func TestBuild_TLS(t *testing.T) {
	b := newBackend(t)
	relay := httptest.NewTLSServer(b.relay.Config.Handler)
	api := httptest.NewTLSServer(b.api.Config.Handler)
	t.Cleanup(relay.Close)
	t.Cleanup(api.Close)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	ca := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: relay.Certificate().Raw})
	if err := os.WriteFile(caFile, ca, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		tls     security.TLSConfig
		wantErr bool
	}{
		{"trusted CA", security.TLSConfig{CAFile: caFile}, false},
		{"system roots", security.TLSConfig{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Build(transcription.Config{APIBaseURL: api.URL, RelayBaseURL: relay.URL, TLS: tc.tls}, Deps{},
				WithEngine(normalize.Config{}, normalize.WithSleep((&fakeSleep{}).Sleep)))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			_, err = s.SubmitFile(context.Background(), wavOfSize(1024), Options{LanguageCode: "en"})
			if (err != nil) != tc.wantErr {
				t.Errorf("SubmitFile() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*transcription.Config)
	}{
		{"missing CA", func(c *transcription.Config) { c.TLS.CAFile = "/nonexistent/ca.pem" }},
		{"cache without key", func(c *transcription.Config) { c.TokenCache.Path = "/tmp/token" }},
		{"no relay", func(c *transcription.Config) { c.RelayBaseURL = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := transcription.Config{APIBaseURL: "https://api.example.com", RelayBaseURL: "https://app.example.com"}
			tc.mutate(&cfg)
			if _, err := Build(cfg, Deps{}); err == nil {
				t.Error("expected Build to fail")
			}
		})
	}
}
