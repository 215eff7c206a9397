package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter("binance", 2)

	if limiter.Name() != "binance" {
		t.Errorf("Expected name 'binance', got '%s'", limiter.Name())
	}
	if !limiter.Allow() {
		t.Error("first request should be allowed")
	}
	if limiter.Allow() {
		t.Error("second immediate request should be paced")
	}
}

func TestLimiterUnlimited(t *testing.T) {
	limiter := NewLimiter("local", 0)
	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should have been allowed", i)
		}
	}
}

func TestLimiterWaitPaces(t *testing.T) {
	limiter := NewLimiter("bybit", 20) // one every 50ms

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("three requests took only %s", elapsed)
	}
}

func TestLimiterBackoff(t *testing.T) {
	limiter := NewLimiter("coinbase", 10)

	if limiter.Backoff() != 0 {
		t.Error("no backoff expected before a 429")
	}

	limiter.SignalRateLimited()
	after1 := limiter.Backoff()
	if after1 != initialBackoff {
		t.Errorf("first backoff = %s", after1)
	}

	limiter.SignalRateLimited()
	if after2 := limiter.Backoff(); after2 != 2*after1 {
		t.Errorf("backoff should double, got %s", after2)
	}

	for i := 0; i < 20; i++ {
		limiter.SignalRateLimited()
	}
	if limiter.Backoff() != maxBackoff {
		t.Errorf("backoff should be capped, got %s", limiter.Backoff())
	}

	limiter.ResetBackoff()
	if limiter.Backoff() != 0 {
		t.Error("backoff should reset")
	}
}

func TestMultiLimiter(t *testing.T) {
	ml := NewMultiLimiter()

	ml.Add("binance", 2)
	ml.Add("coinbase", 3)

	if ml.Get("binance") == nil || ml.Get("coinbase") == nil {
		t.Error("limiters should exist")
	}
	if ml.Get("kraken") != nil {
		t.Error("kraken limiter should not exist")
	}

	ctx := context.Background()
	if err := ml.Wait(ctx, "binance"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ml.Wait(ctx, "nonexistent"); err != nil {
		t.Errorf("Wait on non-existing limiter should succeed: %v", err)
	}
}

func TestLimiterContextCancellation(t *testing.T) {
	limiter := NewLimiter("slow", 1)
	limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected error from cancelled context")
	}

	limiter.SignalRateLimited()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected error from cancelled context during backoff")
	}
}
