package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcribekit/auth/jwt"
	"github.com/kbukum/transcribekit/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func tokenServer(t *testing.T, calls *atomic.Int32, handler func(n int32) (int, Response)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		n := calls.Add(1)
		status, body := handler(n)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, baseURL string, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{BaseURL: baseURL, Path: "/api/auth/token"}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestGetToken_ReusesUntilMargin(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls, func(n int32) (int, Response) {
		return http.StatusOK, Response{Token: "tok-" + string(rune('0'+n)), ExpiresIn: 3600}
	})
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(t, srv.URL, clock)
	ctx := context.Background()

	first, err := m.GetToken(ctx)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	clock.Advance(30 * time.Minute)
	second, _ := m.GetToken(ctx)
	if first != second || calls.Load() != 1 {
		t.Fatalf("expected reuse with one call, got %q %q calls=%d", first, second, calls.Load())
	}

	// 55 minutes in: exactly at expiry - 5m, no longer fresh.
	clock.Advance(25 * time.Minute)
	third, _ := m.GetToken(ctx)
	if third == first || calls.Load() != 2 {
		t.Fatalf("expected refresh at margin, got %q calls=%d", third, calls.Load())
	}
}

func TestGetToken_FailureIsAuthUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   Response
	}{
		{"server error", http.StatusInternalServerError, Response{}},
		{"unauthorized", http.StatusUnauthorized, Response{}},
		{"empty token", http.StatusOK, Response{ExpiresIn: 60}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := tokenServer(t, &calls, func(int32) (int, Response) { return tc.status, tc.body })
			m := newTestManager(t, srv.URL, &fakeClock{now: time.Now()})

			_, err := m.GetToken(context.Background())
			if !errors.Is(err, errors.ErrCodeAuthUnavailable) {
				t.Fatalf("expected AuthUnavailable, got %v", err)
			}
			if app, _ := errors.AsAppError(err); app.Retryable {
				t.Error("AuthUnavailable must not be retryable")
			}
		})
	}
}

func TestGetToken_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := newTestManager(t, url, &fakeClock{now: time.Now()})
	if _, err := m.GetToken(context.Background()); !errors.Is(err, errors.ErrCodeAuthUnavailable) {
		t.Fatalf("expected AuthUnavailable, got %v", err)
	}
}

func TestGetToken_CallerDeadlineIsTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(Response{Token: "late", ExpiresIn: 3600})
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL, &fakeClock{now: time.Now()})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := m.GetToken(ctx)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if app, _ := errors.AsAppError(err); !app.Retryable {
		t.Error("Timeout must be retryable")
	}

	// The refresh kept running and the next caller reuses its token.
	tok, err := m.GetToken(context.Background())
	if err != nil || tok != "late" {
		t.Fatalf("GetToken after timeout = %q, %v", tok, err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one refresh, got %d", calls.Load())
	}
}

func TestGetToken_ExpiryFromJWTClaim(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cfg := jwt.Config{Secret: "0123456789abcdef0123456789abcdef", TTL: time.Hour}
	svc, err := jwt.NewService(&cfg, func() *jwt.RegisteredClaims { return &jwt.RegisteredClaims{} })
	if err != nil {
		t.Fatalf("jwt.NewService: %v", err)
	}
	issued, err := svc.WithClock(func() time.Time { return now }).Issue(&jwt.RegisteredClaims{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var calls atomic.Int32
	srv := tokenServer(t, &calls, func(int32) (int, Response) {
		return http.StatusOK, Response{Token: issued.Token}
	})
	clock := &fakeClock{now: now}
	m := newTestManager(t, srv.URL, clock)

	for i := 0; i < 3; i++ {
		if _, err := m.GetToken(context.Background()); err != nil {
			t.Fatalf("GetToken: %v", err)
		}
		clock.Advance(10 * time.Minute)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exp claim to allow reuse, got %d calls", calls.Load())
	}
}

func TestGetToken_NoLifetimeIsSingleUse(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls, func(int32) (int, Response) {
		return http.StatusOK, Response{Token: "opaque"}
	})
	m := newTestManager(t, srv.URL, &fakeClock{now: time.Now()})

	for i := 0; i < 2; i++ {
		if _, err := m.GetToken(context.Background()); err != nil {
			t.Fatalf("GetToken: %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected a fetch per use, got %d", calls.Load())
	}
}

func TestGetToken_ConcurrentRefreshCoalesced(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(Response{Token: "shared", ExpiresIn: 3600})
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL, &fakeClock{now: time.Now()})

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = m.GetToken(context.Background())
		}()
	}
	// Let every goroutine reach the shared call before the server answers.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one refresh, got %d", calls.Load())
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("result %d = %q", i, r)
		}
	}
}

func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls, func(int32) (int, Response) {
		return http.StatusOK, Response{Token: "t", ExpiresIn: 3600}
	})
	m := newTestManager(t, srv.URL, &fakeClock{now: time.Now()})

	_, _ = m.GetToken(context.Background())
	m.Invalidate()
	_, _ = m.GetToken(context.Background())
	if calls.Load() != 2 {
		t.Errorf("expected refresh after Invalidate, got %d calls", calls.Load())
	}
}

func TestToken_Fresh(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		tok  Token
		want bool
	}{
		{"well before margin", Token{Value: "a", ExpiresAt: now.Add(time.Hour)}, true},
		{"one second before margin", Token{Value: "a", ExpiresAt: now.Add(5*time.Minute + time.Second)}, true},
		{"at margin", Token{Value: "a", ExpiresAt: now.Add(5 * time.Minute)}, false},
		{"expired", Token{Value: "a", ExpiresAt: now.Add(-time.Minute)}, false},
		{"no value", Token{ExpiresAt: now.Add(time.Hour)}, false},
		{"no expiry", Token{Value: "a"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tok.Fresh(now, DefaultRefreshMargin); got != tc.want {
				t.Errorf("Fresh() = %v, want %v", got, tc.want)
			}
		})
	}
}
