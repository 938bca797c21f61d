// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, a structured HTTP logger that
// automatically scrubs obvious PII from request metadata before emitting logs.
//
// Design goals:
//   - Default-safe: never logs request or response bodies
//   - Redacts emails and phone numbers; match UUIDs are kept because they
//     are public identifiers and essential when debugging a sync
//   - Masks credentials: Authorization, Cookie, Set-Cookie and X-Cron-Secret
//     headers plus any token-like query parameter
//   - Produces structured JSON logs via zerolog
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-RapidAPI-Key"},
//	}))
//
// Security note: this middleware reduces but does not eliminate the risk of
// sensitive data leaking to logs. You should still ensure that clients and
// upstream services avoid transmitting PII in query strings or headers unless
// strictly necessary.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// the built-in sensitive headers.
//
// MaskQueryParams names extra query parameters whose values are masked, on
// top of the built-in token, access_token, secret and api_key.
type RedactOptions struct {
	MaskHeaders     []string
	MaskQueryParams []string
}

var builtinMaskedHeaders = []string{"authorization", "cookie", "set-cookie", "x-cron-secret"}

var builtinMaskedParams = []string{"token", "access_token", "secret", "api_key"}

// RedactingLogger returns a Gin middleware that logs HTTP requests and
// responses with sensitive values scrubbed.
//
// Behavior:
//   - Logs method, path, query string, status, response size, latency,
//     and request headers (with scrubbing applied).
//   - Masks credential headers and query parameters entirely.
//   - Redacts email addresses and phone numbers from the remaining query
//     string and header values.
//   - Logs at INFO by default, WARN for 4xx and ERROR for 5xx responses.
//
// UUIDs are shielded before the phone pattern runs so their digit groups
// are not mistaken for phone numbers.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	uuidRE := regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone pattern, e.g. "+1 212-555-1212" or "(212) 555-1212".
	phoneRE := regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)

	redact := func(s string) string {
		if s == "" {
			return s
		}
		ids := uuidRE.FindAllString(s, -1)
		out := uuidRE.ReplaceAllString(s, "\x00")
		out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
		out = phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
		for _, id := range ids {
			out = strings.Replace(out, "\x00", id, 1)
		}
		return out
	}

	maskHeaders := lowerSet(builtinMaskedHeaders, opts.MaskHeaders)
	maskParams := lowerSet(builtinMaskedParams, opts.MaskQueryParams)

	redactQuery := func(raw string) string {
		if raw == "" {
			return raw
		}
		parts := strings.Split(raw, "&")
		for i, p := range parts {
			k, _, hasValue := strings.Cut(p, "=")
			if _, ok := maskParams[strings.ToLower(k)]; ok && hasValue {
				parts[i] = k + "=[REDACTED]"
				continue
			}
			parts[i] = redact(p)
		}
		return strings.Join(parts, "&")
	}

	return func(c *gin.Context) {
		start := time.Now()

		// Request path and query.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redactQuery(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			keyLower := strings.ToLower(k)
			val := strings.Join(vv, ", ")
			if _, ok := maskHeaders[keyLower]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(val)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		// Severity based on status.
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("principal", Principal(c)).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", size).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

func lowerSet(lists ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, l := range lists {
		for _, v := range l {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				out[v] = struct{}{}
			}
		}
	}
	return out
}
