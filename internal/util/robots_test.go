package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRobotsServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(hits, 1)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits int32
	server := newRobotsServer(t, "User-agent: tabclaim\nDisallow: /private/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n", &hits)

	checker := NewRobotsChecker("tabclaim/0.1 (+https://github.com/ppiankov/tabclaim)", 5*time.Second, nil)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/papers/1.json")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("expected /papers/ allowed for tabclaim")
	}
	if delay != 2*time.Second {
		t.Errorf("expected 2s crawl delay, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(ctx, server.URL+"/private/2.json")
	if allowed {
		t.Error("expected /private/ disallowed")
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", got)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("tabclaim/0.1", 5*time.Second, nil)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/doc.json")
	if err != nil || !allowed {
		t.Errorf("expected allowed without robots.txt, got %v %v", allowed, err)
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	checker := NewRobotsChecker("tabclaim/0.1", 200*time.Millisecond, nil)
	allowed, _, err := checker.CanFetch(context.Background(), "http://127.0.0.1:1/doc.json")
	if err != nil || !allowed {
		t.Errorf("expected allowed when robots.txt is unreachable, got %v %v", allowed, err)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tabclaim/0.1 (+https://github.com/ppiankov/tabclaim)", "tabclaim"},
		{"curl/8.0", "curl"},
		{"plainbot", "plainbot"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeUserAgent(tt.in); got != tt.want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
