package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// ContextKeyAPIKey is the context key for the API key
	ContextKeyAPIKey ContextKey = "api_key"
	// ContextKeySessionID is the context key for the caller's session id
	ContextKeySessionID ContextKey = "session_id"
)

// APIKeyAuth returns middleware that validates bearer-token authentication
// and derives a stable per-caller session identifier. Conversation state
// downstream is keyed by that identifier, so two callers never share a
// session slot.
func APIKeyAuth(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for OPTIONS requests (CORS preflight)
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"success":false,"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"success":false,"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			apiKey := parts[1]
			if apiKey == "" || (secret != "" && apiKey != secret) {
				http.Error(w, `{"success":false,"error":"invalid API key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAPIKey, apiKey)
			ctx = context.WithValue(ctx, ContextKeySessionID, sessionIDFor(r, apiKey))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionIDFor prefers an explicit X-Session-ID header (one browser tab or
// chat window each), falling back to a digest of the credential.
func sessionIDFor(r *http.Request, apiKey string) string {
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return sid
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:16])
}

// GetAPIKey returns the API key from the request context
func GetAPIKey(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyAPIKey).(string); ok {
		return v
	}
	return ""
}

// GetSessionID returns the caller's session id from the request context
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeySessionID).(string); ok {
		return v
	}
	return ""
}
