package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes captured JSON lines.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func accessLine(t *testing.T, buf *bytes.Buffer, path string) map[string]any {
	t.Helper()
	for _, m := range logLines(t, buf) {
		if m["message"] == "request" && m["path"] == path {
			return m
		}
	}
	t.Fatalf("no access line for %s in:\n%s", path, buf.String())
	return nil
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/rid", func(c *gin.Context) {
		seen = asString(c.MustGet(requestIDKey))
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"propagated", "sync-batch-42", true},
		{"control characters rejected", "abc\tdef", false},
		{"too long rejected", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.incoming != "" {
				req.Header.Set(strings.ToLower(requestIDHeader), tc.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if tc.keep != (got == tc.incoming) {
				t.Fatalf("incoming %q -> %q (keep=%v)", tc.incoming, got, tc.keep)
			}
		})
	}
}

func TestLogger_LevelsAndFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/matches/:id/timer", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/err", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})

	for _, p := range []string{"/matches/m-7/timer?x=1", "/health", "/missing", "/err"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set("User-Agent", "scoreboard/2")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	timer := accessLine(t, buf, "/matches/:id/timer")
	if timer["level"] != "info" || timer["match_id"] != "m-7" || timer["query"] != "x=1" || timer["user_agent"] != "scoreboard/2" {
		t.Fatalf("timer line: %v", timer)
	}
	if timer["request_id"] == "" || timer["status"] != float64(http.StatusOK) {
		t.Fatalf("timer line missing request fields: %v", timer)
	}
	if l := accessLine(t, buf, "/health"); l["level"] != "debug" {
		t.Fatalf("probe level: %v", l)
	}
	if l := accessLine(t, buf, "/missing"); l["level"] != "warn" {
		t.Fatalf("unmatched route should log the raw path at warn: %v", l)
	}
	if l := accessLine(t, buf, "/err"); l["level"] != "error" || l["errors"] == nil {
		t.Fatalf("gin errors should log at error: %v", l)
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func Test_accessLevel(t *testing.T) {
	cases := []struct {
		path   string
		status int
		errs   bool
		want   zerolog.Level
	}{
		{"/api/v1/sync", 200, false, zerolog.InfoLevel},
		{"/metrics", 200, false, zerolog.DebugLevel},
		{"/health", 503, false, zerolog.ErrorLevel},
		{"/api/v1/sync", 401, false, zerolog.WarnLevel},
		{"/api/v1/sync", 200, true, zerolog.ErrorLevel},
	}
	for _, tc := range cases {
		if got := accessLevel(tc.path, tc.status, tc.errs); got != tc.want {
			t.Fatalf("accessLevel(%s,%d,%v) = %v; want %v", tc.path, tc.status, tc.errs, got, tc.want)
		}
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/matches/:id/panic", func(c *gin.Context) { panic("kaboom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/matches/m1/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != w.Header().Get(requestIDHeader) {
		t.Fatalf("envelope: %v", body)
	}

	var panicLine map[string]any
	for _, m := range logLines(t, buf) {
		if m["message"] == "panic recovered" {
			panicLine = m
		}
	}
	if panicLine == nil || panicLine["match_id"] != "m1" || panicLine["stack"] == nil {
		t.Fatalf("panic must be logged with request fields: %s", buf.String())
	}

	// once the body started, no JSON envelope is appended
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("envelope written after body: %q", w.Body.String())
	}
}

func TestRecovery_WithoutRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captureLogger(t)

	r := gin.New()
	r.Use(Recovery())
	r.GET("/p", func(c *gin.Context) { panic("no id") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	bare := gin.New()
	bare.Use(RequestID())
	bare.GET("/use", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("fallback")
		c.Status(http.StatusOK)
	})
	bare.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
	if !strings.Contains(buf.String(), `"message":"fallback"`) || strings.Contains(buf.String(), `"request_id"`) {
		t.Fatalf("fallback logger: %s", buf.String())
	}

	buf.Reset()
	scoped := gin.New()
	scoped.Use(RequestID(), Logger(), Authenticate("s3cret", nil))
	scoped.POST("/sync", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("handler")
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set(HeaderCronSecret, "s3cret")
	scoped.ServeHTTP(httptest.NewRecorder(), req)

	var handler map[string]any
	for _, m := range logLines(t, buf) {
		if m["message"] == "handler" {
			handler = m
		}
	}
	if handler == nil || handler["request_id"] == "" || handler["path"] != "/sync" {
		t.Fatalf("request-scoped logger fields: %s", buf.String())
	}
	if l := accessLine(t, buf, "/sync"); l["principal"] != "cron" {
		t.Fatalf("access line must carry the principal: %v", l)
	}
}

func Test_truncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
		{"Müller", 2, "M…"}, // never splits the two-byte ü
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q,%d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
	if asString("x") != "x" || asString(3) != "" {
		t.Fatalf("asString")
	}
}
