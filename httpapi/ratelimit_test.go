package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewLimiterSetDisabled(t *testing.T) {
	if set := newLimiterSet(0, 10); set != nil {
		t.Fatalf("expected nil limiter when rate is zero")
	}
	handler := withRateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through without limiter, got %d", rec.Code)
	}
}

func TestLimiterSetPerClient(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	set := newLimiterSet(1, 1)
	set.now = func() time.Time { return now }

	if !set.allow("10.0.0.1") {
		t.Fatalf("expected first request allowed")
	}
	if set.allow("10.0.0.1") {
		t.Fatalf("expected burst exhausted")
	}
	if !set.allow("10.0.0.2") {
		t.Fatalf("expected other client unaffected")
	}
	now = now.Add(time.Second)
	if !set.allow("10.0.0.1") {
		t.Fatalf("expected token refilled after one second")
	}
}

func TestLimiterSetSweepsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	set := newLimiterSet(5, 5)
	set.now = func() time.Time { return now }
	set.lastSweep.Store(now.UnixNano())

	set.allow("10.0.0.1")
	now = now.Add(limiterIdleTTL + time.Minute)
	set.allow("10.0.0.2")

	if _, ok := set.clients.Load("10.0.0.1"); ok {
		t.Fatalf("expected idle client swept")
	}
	if _, ok := set.clients.Load("10.0.0.2"); !ok {
		t.Fatalf("expected active client kept")
	}
}

func TestWithRateLimitRetryAfter(t *testing.T) {
	set := newLimiterSet(0.5, 1)
	handler := withRateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), set, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}
