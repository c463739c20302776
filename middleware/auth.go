// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/mlm-members/auth"
)

// SessionCookie holds the session token for browser clients
const SessionCookie = "mmp_session"

// ActionTokenHeader carries the per-action verification token
const ActionTokenHeader = "X-Action-Token"

type sessionKey struct{}

// WithSession stores the claims in the context
func WithSession(ctx context.Context, claims *auth.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionKey{}, claims)
}

// SessionFrom returns the claims stored by RequireSession, or nil
func SessionFrom(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(sessionKey{}).(*auth.SessionClaims)
	return claims
}

// SessionToken extracts a session token from the Authorization header or
// the session cookie
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without a valid session
func RequireSession(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if token == "" {
			ErrorResponse(w, http.StatusUnauthorized, "Login required")
			return
		}
		claims, err := auth.ParseSession(token, secret)
		if err != nil {
			ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		next(w, r.WithContext(WithSession(r.Context(), claims)))
	}
}

// RequireAdmin rejects sessions without the admin capability.
// Must run inside RequireSession.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := SessionFrom(r.Context())
		if claims == nil {
			ErrorResponse(w, http.StatusUnauthorized, "Login required")
			return
		}
		if !claims.IsAdmin() {
			ErrorResponse(w, http.StatusForbidden, "Unauthorized access")
			return
		}
		next(w, r)
	}
}

// RequireActionToken checks the X-Action-Token header for the named action.
// Must run inside RequireSession.
func RequireActionToken(action, salt string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := SessionFrom(r.Context())
		if claims == nil {
			ErrorResponse(w, http.StatusUnauthorized, "Login required")
			return
		}
		token := r.Header.Get(ActionTokenHeader)
		if err := auth.ValidateActionToken(claims.UserID, action, token, salt, time.Now()); err != nil {
			ErrorResponse(w, http.StatusForbidden, "Invalid action token")
			return
		}
		next(w, r)
	}
}
