package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestKeyByPrincipalOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	if key := KeyByPrincipalOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("expected ip-based key; got %q", key)
	}
	c.Set(ctxKeyPrincipal, "cron")
	if key := KeyByPrincipalOrIP()(c); key != "principal:cron" {
		t.Fatalf("expected principal key; got %q", key)
	}
}

func TestNewRateLimiter_BurstCoercion_AndReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyByPrincipalOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	now := time.Now()
	lim := rl.getVisitor("k1", now)
	if lim == nil || rl.getVisitor("k1", now) != lim {
		t.Fatalf("expected same limiter instance to be reused")
	}
}

func TestRateLimiter_getVisitor_GC(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByPrincipalOrIP())
	now := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Hour)}
	rl.visitors["fresh"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Minute)}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("new", now)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("expected 'old' visitor to be evicted")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Fatalf("recent visitor must survive")
	}
	if _, ok := rl.visitors["new"]; !ok || rl.cleanupN != 0 {
		t.Fatalf("expected 'new' visitor and reset counter")
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if IsRateBypass(c) {
		t.Fatalf("expected IsRateBypass=false by default")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatalf("expected IsRateBypass=true when set")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("expected IsRateBypass=false when non-bool stored")
	}
}

func TestRateLimiter_Handler_AllowDenyRefill(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(0.5, 1, KeyByPrincipalOrIP()).WithClock(clock)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		return w
	}

	before := testutil.ToFloat64(rateLimited.WithLabelValues("/ok"))
	if w := get(); w.Code != http.StatusOK {
		t.Fatalf("first request should be allowed, got %d", w.Code)
	}
	w := get()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be rate-limited, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After=2 at 0.5 rps, got %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected JSON body: %v", body)
	}
	if got := testutil.ToFloat64(rateLimited.WithLabelValues("/ok")) - before; got != 1 {
		t.Fatalf("expected one rejection counted, got %v", got)
	}

	clock.Advance(2 * time.Second)
	if w := get(); w.Code != http.StatusOK {
		t.Fatalf("bucket should refill on the injected clock, got %d", w.Code)
	}
}

func TestRateLimiter_Handler_Bypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0, 1, KeyByPrincipalOrIP())

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() })
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("bypass request %d should be allowed, got %d", i, w.Code)
		}
	}
}
