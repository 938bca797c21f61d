// Package auth verifies the two credentials accepted by privileged routes:
// the shared cron secret sent by the scheduler and an admin session token
// (HS256 JWT carrying a user_role claim).
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotAdmin is returned for a valid token without the admin role.
	ErrNotAdmin = errors.New("admin role required")
	// ErrNotConfigured is returned when no signing secret is set.
	ErrNotConfigured = errors.New("admin sessions not configured")
)

// Claims are the session claims issued to CMS users.
type Claims struct {
	jwt.RegisteredClaims
	UserRole string `json:"user_role"`
}

// Verifier checks admin session tokens.
type Verifier struct {
	secret    []byte
	adminRole string
	now       func() time.Time
}

// NewVerifier returns a Verifier for HS256 tokens signed with secret whose
// user_role claim must equal adminRole.
func NewVerifier(secret, adminRole string) *Verifier {
	return &Verifier{secret: []byte(secret), adminRole: adminRole, now: time.Now}
}

// VerifyAdmin parses token and returns its claims when it is a valid admin
// session.
func (v *Verifier) VerifyAdmin(token string) (*Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserRole != v.adminRole {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// GenerateToken issues a session token for subject with role, valid for ttl.
func GenerateToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserRole: role,
	})
	return token.SignedString([]byte(secret))
}

// SecretMatches compares a presented cron secret with the configured one in
// constant time. An empty configured secret never matches.
func SecretMatches(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
