package token

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcribekit/encryption"
)

func newSealer(t *testing.T, passphrase string) encryption.Sealer {
	t.Helper()
	s, err := encryption.New(passphrase)
	if err != nil {
		t.Fatalf("encryption.New: %v", err)
	}
	return s
}

func TestNewFileStore_Rejects(t *testing.T) {
	if _, err := NewFileStore("", "http://relay", newSealer(t, "k")); err == nil {
		t.Error("expected an error for an empty path")
	}
	if _, err := NewFileStore("token", "http://relay", nil); err == nil {
		t.Error("expected an error for a nil sealer")
	}
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "token")
	s, err := NewFileStore(path, "http://relay", newSealer(t, "k"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, ok := s.Load(); ok {
		t.Fatal("empty store should miss")
	}

	exp := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s.Save(Token{Value: "tok-1", ExpiresAt: exp})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
	raw, _ := os.ReadFile(path)
	if len(raw) == 0 || bytes.Contains(raw, []byte("tok-1")) {
		t.Error("cache file should hold sealed data only")
	}

	tok, ok := s.Load()
	if !ok || tok.Value != "tok-1" || !tok.ExpiresAt.Equal(exp) {
		t.Errorf("unexpected token %+v, %v", tok, ok)
	}

	s.Clear()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected the cache file removed, got %v", err)
	}
	s.Clear()
}

func TestFileStore_RejectsForeignCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	a, _ := NewFileStore(path, "http://relay-a", newSealer(t, "k"))
	a.Save(Token{Value: "tok-a", ExpiresAt: time.Now().Add(time.Hour)})

	tests := []struct {
		name  string
		store *FileStore
	}{
		{"other relay", mustFileStore(t, path, "http://relay-b", newSealer(t, "k"))},
		{"other passphrase", mustFileStore(t, path, "http://relay-a", newSealer(t, "other"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tok, ok := tc.store.Load(); ok {
				t.Errorf("expected a miss, got %+v", tok)
			}
		})
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Load(); ok {
		t.Error("a corrupt cache should miss")
	}
}

func TestManager_FileStoreSharedAcrossRuns(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls, func(n int32) (int, Response) {
		return 200, Response{Token: "tok", ExpiresIn: 3600}
	})
	path := filepath.Join(t.TempDir(), "token")
	sealer := newSealer(t, "k")

	for run := 0; run < 3; run++ {
		m, err := NewManager(Config{BaseURL: srv.URL, Path: "/api/auth/token"},
			WithStore(mustFileStore(t, path, srv.URL, sealer)))
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		tok, err := m.GetToken(context.Background())
		if err != nil || tok != "tok" {
			t.Fatalf("run %d: GetToken = %q, %v", run, tok, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected one fetch across runs, got %d", calls.Load())
	}
}

func mustFileStore(t *testing.T, path, relay string, sealer encryption.Sealer) *FileStore {
	t.Helper()
	s, err := NewFileStore(path, relay, sealer)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}
