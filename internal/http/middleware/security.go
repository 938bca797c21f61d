// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the response hardening headers and the per-route cache
// policies. Public match reads are revalidated on every use (the clock moves
// each second and the live blog carries an ETag); admin responses are never
// stored.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
//
// Enable HSTS only when traffic is HTTPS end to end, including the hop
// between proxy and app. A zero HSTSMaxAge means 180 days.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	EnablePolicy bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

type headerPair struct{ key, value string }

// SecurityHeaders sets nosniff, frame denial and a no-referrer policy on
// every response, plus the optional browser policies and HSTS. The header
// set is computed once; HSTS is only sent on HTTPS requests.
//
// When a request id is already on the response it is added to
// Access-Control-Expose-Headers so browser clients can quote it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	fixed := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		fixed = append(fixed,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains; preload", int64(maxAge/time.Second))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range fixed {
			h.Set(p.key, p.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers unless it is
// already listed.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	if cur == "" {
		h.Set(key, name)
		return
	}
	for _, v := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return
		}
	}
	h.Set(key, cur+", "+name)
}

// isHTTPS reports whether the request arrived over TLS, directly or through
// a proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// NoStore marks a route group's responses as uncacheable, including by
// HTTP/1.0 intermediaries.
func NoStore() gin.HandlerFunc {
	return cacheControl("no-store", true)
}

// Revalidate lets caches keep a response but forces a conditional request
// before it is reused.
func Revalidate() gin.HandlerFunc {
	return cacheControl("no-cache", false)
}

func cacheControl(value string, legacy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", value)
		if legacy {
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		c.Next()
	}
}
