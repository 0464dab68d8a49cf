// Package auth verifies HS256 JWT bearer tokens for the admin API.
// Tokens are issued elsewhere; IssueToken exists for tooling and tests.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
)

// RoleAdmin is the role claim value that unlocks write endpoints.
const RoleAdmin = "admin"

const (
	claimRole    = "role"
	claimSubject = "sub"
	minSecretLen = 16
)

// Authorizer holds the signing key.
type Authorizer struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithTokenTTL sets the lifetime of issued tokens. Defaults to 24h.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *Authorizer) {
		a.ttl = ttl
	}
}

// New creates an Authorizer for HS256 tokens signed with secret.
func New(secret string, options ...Option) (*Authorizer, error) {
	if len(secret) < minSecretLen {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	a := &Authorizer{
		ja:  jwtauth.New("HS256", []byte(secret), nil),
		ttl: 24 * time.Hour,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// IssueToken signs a token for subject with the given role.
func (a *Authorizer) IssueToken(subject, role string) (string, error) {
	claims := map[string]interface{}{
		claimSubject: subject,
		claimRole:    role,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, a.ttl)

	_, token, err := a.ja.Encode(claims)
	if err != nil {
		return "", err
	}
	return token, nil
}

// RequireAuth rejects requests without a valid, unexpired token.
func (a *Authorizer) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verifier(a.ja)(jwtauth.Authenticator(next))
	}
}

// RequireAdmin is RequireAuth plus a role=admin claim check.
func (a *Authorizer) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.RequireAuth()(requireRole(RoleAdmin, next))
	}
}

func requireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || claims[claimRole] != role {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Subject returns the sub claim of the verified token, if any.
func Subject(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return ""
	}
	sub, _ := claims[claimSubject].(string)
	return sub
}
