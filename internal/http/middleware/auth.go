// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file handles caller identity. Two credentials exist:
//   - the shared cron secret, sent by schedulers in the X-Cron-Secret header
//   - an admin session, a bearer JWT verified by auth.Verifier
//
// Authenticate runs globally and only records who the caller is, so rate
// limiting and logs can key on it. RequireTrigger and RequireAdmin run per
// route and reject callers lacking the needed identity.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/matchday-live/internal/auth"
)

// HeaderCronSecret carries the shared secret of scheduled sync calls.
const HeaderCronSecret = "X-Cron-Secret"

const (
	ctxKeyPrincipal = "principal"
	ctxKeyAuthErr   = "auth.err"

	principalCron    = "cron"
	principalAdmin   = "admin:"
	codeUnauthorized = "unauthorized"
)

// AdminVerifier validates admin session tokens.
type AdminVerifier interface {
	VerifyAdmin(token string) (*auth.Claims, error)
}

// Principal returns the authenticated caller ("cron" or "admin:<subject>"),
// or "" for anonymous requests.
func Principal(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyPrincipal); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func isAdmin(c *gin.Context) bool {
	return strings.HasPrefix(Principal(c), principalAdmin)
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func deny(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

// Authenticate records the caller identity. A matching cron secret wins over
// a session token. Invalid credentials are not rejected here; the failure is
// remembered for RequireAdmin to pick the right status.
func Authenticate(cronSecret string, v AdminVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.SecretMatches(cronSecret, c.GetHeader(HeaderCronSecret)) {
			c.Set(ctxKeyPrincipal, principalCron)
			c.Next()
			return
		}
		if token := bearerToken(c); token != "" && v != nil {
			claims, err := v.VerifyAdmin(token)
			if err == nil {
				c.Set(ctxKeyPrincipal, principalAdmin+claims.Subject)
			} else {
				c.Set(ctxKeyAuthErr, err)
			}
		}
		c.Next()
	}
}

// RequireAdmin admits only admin sessions. A valid session without the
// admin role gets 403; anything else gets 401.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin(c) {
			c.Next()
			return
		}
		if v, ok := c.Get(ctxKeyAuthErr); ok {
			if err, _ := v.(error); errors.Is(err, auth.ErrNotAdmin) {
				deny(c, http.StatusForbidden, "forbidden", "admin role required")
				return
			}
		}
		deny(c, http.StatusUnauthorized, codeUnauthorized, "admin session required")
	}
}

// RequireTrigger admits the scheduler and admin sessions. Everyone else,
// including a non-admin session, gets 401 before the handler runs.
func RequireTrigger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c) == principalCron || isAdmin(c) {
			c.Next()
			return
		}
		deny(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
	}
}
