package handlers

import (
	"context"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"coinzy/internal/models"
	"coinzy/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const AuthContextKey ContextKey = "auth"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenManager
	limiter *security.RateLimiter
	debug   bool
}

// NewMiddleware creates a new middleware instance. A nil limiter disables rate limiting.
func NewMiddleware(tokens *security.TokenManager, limiter *security.RateLimiter, debug bool) *Middleware {
	return &Middleware{
		tokens:  tokens,
		limiter: limiter,
		debug:   debug,
	}
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r.Header.Get("Authorization"))
		if !ok && isWebSocketUpgrade(r) {
			// Browsers cannot set headers on a WebSocket handshake
			token = r.URL.Query().Get("access_token")
			ok = token != ""
		}
		if !ok {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		auth, err := m.tokens.Verify(token)
		if err != nil {
			if m.debug {
				log.Printf("[DEBUG] Rejected token from %s: %v", security.GetClientIP(r), err)
			}
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), AuthContextKey, auth)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole is RequireAuth restricted to the given roles
func (m *Middleware) RequireRole(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		auth := GetAuthFromContext(r.Context())
		if auth == nil || !slices.Contains(roles, auth.Role) {
			respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}
		next(w, r)
	})
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	if m.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			log.Printf("Rate limit exceeded for %s %s from %s", r.Method, r.URL.Path, ip)
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetAuthFromContext retrieves the caller from the request context
func GetAuthFromContext(ctx context.Context) *models.AuthContext {
	auth, ok := ctx.Value(AuthContextKey).(models.AuthContext)
	if !ok {
		return nil
	}
	return &auth
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
