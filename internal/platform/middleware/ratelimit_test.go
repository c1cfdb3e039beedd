package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func limitedHandler(cfg RateLimitConfig) echo.HandlerFunc {
	return RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func doRequest(t *testing.T, e *echo.Echo, handler echo.HandlerFunc, clinic string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if clinic != "" {
		c.Set("tenant_id", clinic)
	}
	return rec, handler(c)
}

func TestRateLimit_BurstAllowed(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		rec, err := doRequest(t, e, handler, "")
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 10", i+1, got)
		}
	}
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		if _, err := doRequest(t, e, handler, ""); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	rec, err := doRequest(t, e, handler, "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	retry, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || retry < 1 {
		t.Errorf("Retry-After = %q, want integer >= 1", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_ClinicsHaveSeparateBuckets(t *testing.T) {
	e := echo.New()
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	if _, err := doRequest(t, e, handler, "clinic_a"); err != nil {
		t.Fatalf("clinic_a first request: %v", err)
	}
	if _, err := doRequest(t, e, handler, "clinic_a"); err == nil {
		t.Fatal("clinic_a second request: expected rate limit error")
	}
	if _, err := doRequest(t, e, handler, "clinic_b"); err != nil {
		t.Fatalf("clinic_b should have its own bucket, got %v", err)
	}
}

func TestBucket_RefillsOverTime(t *testing.T) {
	now := time.Now()
	b := newBucket(2, 1, now)

	if ok, _ := b.take(now); !ok {
		t.Fatal("expected first take to succeed")
	}
	if ok, wait := b.take(now); ok {
		t.Fatal("expected empty bucket to reject")
	} else if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v, want within (0, 1s]", wait)
	}

	// Half a second at 2 tokens/s refills one token.
	if ok, _ := b.take(now.Add(500 * time.Millisecond)); !ok {
		t.Error("expected take to succeed after refill")
	}
}

func TestBucket_RefillCappedAtBurst(t *testing.T) {
	now := time.Now()
	b := newBucket(10, 2, now)

	// A long idle period must not accumulate more than the burst size.
	later := now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if ok, _ := b.take(later); !ok {
			t.Fatalf("take %d: expected success", i+1)
		}
	}
	if ok, _ := b.take(later); ok {
		t.Error("expected rejection after burst drained")
	}
}

func TestBucket_ZeroRateNeverRefills(t *testing.T) {
	now := time.Now()
	b := newBucket(0, 1, now)
	b.take(now)

	ok, wait := b.take(now.Add(time.Minute))
	if ok {
		t.Fatal("expected rejection with zero refill rate")
	}
	if wait != time.Second {
		t.Errorf("wait = %v, want 1s placeholder", wait)
	}
}

func TestBucketStore_ReusesBuckets(t *testing.T) {
	store := newBucketStore(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})
	now := time.Now()

	b1 := store.bucket("clinic_a|10.0.0.1", now)
	b2 := store.bucket("clinic_a|10.0.0.1", now)
	if b1 != b2 {
		t.Error("expected same bucket for same key")
	}
	if b3 := store.bucket("clinic_a|10.0.0.2", now); b3 == b1 {
		t.Error("expected distinct bucket per client address")
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
