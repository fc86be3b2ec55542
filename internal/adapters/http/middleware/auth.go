package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const claimsContextKey contextKey = "claims"

// Claims are the fields read from the hosted auth service's access token.
// The subject is the member ID.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// MemberID returns the token subject.
func (c *Claims) MemberID() string {
	return c.Subject
}

var errMissingToken = errors.New("missing bearer token")

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// ParseToken validates an HS256 token signed with secret.
// PRE: secret is non-empty
// POST: Returns claims with a non-empty subject, or an error
func ParseToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerAuth returns middleware that rejects requests without a valid
// access token and puts the claims in the request context.
func BearerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := bearerToken(r)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := ParseToken(tokenStr, secret)
			if err != nil {
				slog.Warn("auth_event", "event", "token_rejected", "error", err)
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts the token claims from the request context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// TriggerKey returns middleware that checks the shared secret sent by the
// database trigger source, in the apikey header or as a bearer token,
// against a bcrypt hash. An empty hash disables the check.
func TriggerKey(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(hash) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("apikey")
			if key == "" {
				key, _ = bearerToken(r)
			}
			if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
				slog.Warn("auth_event", "event", "trigger_key_rejected", "path", r.URL.Path)
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
