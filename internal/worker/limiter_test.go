package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/factrank/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}

	l3 := NewLimiterFromConfig(model.RateLimitConfig{RequestsPerSecond: 0, Burst: 1})
	for i := 0; i < 10; i++ {
		if !l3.Allow("https://example.com") {
			t.Fatalf("request %d: zero rate should mean unlimited", i)
		}
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://duckduckgo.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow("https://slow.example")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "https://slow.example"); err == nil {
		t.Error("expected wait to fail once the context ends")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "http://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_PerHostBuckets(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://example.com"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}
	if limiter.Allow(url) {
		t.Error("expected allow to fail (exhausted tokens)")
	}
	if limiter.Allow("http://WWW.Example.com:8080/other") {
		t.Error("www prefix, case and port should share the host bucket")
	}
	if !limiter.Allow("http://other.com") {
		t.Error("expected allow for other host")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("www.Slow.com", 0.1, 1)

	if !limiter.Allow("http://slow.com") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.com/page") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("http://fast.com") {
		t.Error("other host should pass")
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://example.com/foo", "example.com", false},
		{"https://WWW.Example.com:443/", "example.com", false},
		{"::invalid", "", true},
		{"relative/path", "", true},
	}
	for _, tt := range tests {
		got, err := extractHost(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractHost(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("extractHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
