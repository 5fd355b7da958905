package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	handler := withRateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), newLimiterSet(1, 1), nil)

	ok, limited := 0, 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		switch rec.Code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	if ok != 1 || limited != 49 {
		t.Fatalf("expected one allowed and 49 limited, got ok=%d limited=%d", ok, limited)
	}
}

func TestClientIPWithoutTrustedProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	var proxy *trustedProxy
	if got := proxy.clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected remote address, got %q", got)
	}
}

func TestClientIPFromTrustedProxy(t *testing.T) {
	proxy, err := parseTrustedProxy("10.0.0.0/8")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 203.0.113.50, 10.0.0.4")
	if got := proxy.clientIP(req); got != "203.0.113.50" {
		t.Fatalf("expected nearest public hop, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "192.168.1.1")
	if got := proxy.clientIP(req); got != "10.1.2.3" {
		t.Fatalf("expected fallback to peer when no public hop, got %q", got)
	}

	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	if got := proxy.clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected untrusted peer address, got %q", got)
	}
}

func TestParseTrustedProxy(t *testing.T) {
	if proxy, err := parseTrustedProxy(""); err != nil || proxy != nil {
		t.Fatalf("expected nil proxy for empty value, got %v %v", proxy, err)
	}
	single, err := parseTrustedProxy("192.0.2.10")
	if err != nil {
		t.Fatalf("parse single: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:80"
	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	if got := single.clientIP(req); got != "198.51.100.2" {
		t.Fatalf("expected forwarded client, got %q", got)
	}
	for _, bad := range []string{"not-an-ip", "10.0.0.0/99"} {
		if _, err := parseTrustedProxy(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, err := NewServer(Config{TrustedProxy: "nope"}, nil, nil, nil); err == nil {
		t.Fatalf("expected NewServer to reject invalid trusted proxy")
	}
}
