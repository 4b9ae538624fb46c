package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/redmonkez12/go-blog-api/internal/httputil"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const identityContextKey ContextKey = "identity"

// Identity is the resolved caller identity attached to the request context
// after a token verifies.
type Identity struct {
	UserID int64
	Email  string
}

// Middleware is the request-pipeline authorization gate.
type Middleware struct {
	tokenService TokenService
}

func NewMiddleware(tokenService TokenService) *Middleware {
	return &Middleware{tokenService: tokenService}
}

// RequireAuth rejects the request when no bearer token is present or the
// token fails verification; otherwise it attaches the identity and continues.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := ExtractBearer(r.Header.Get("Authorization"))
		if !ok {
			httputil.RespondError(w, "Authentication required", "No token provided", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.Verify(token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				message = "Token has expired"
			}
			httputil.RespondError(w, "Authentication failed", message, http.StatusUnauthorized)
			return
		}

		ctx := withIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attempts the same extraction and verification, but any failure
// is swallowed and the request continues anonymously. Used for routes that
// behave differently for authenticated callers but never reject outright.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := ExtractBearer(r.Header.Get("Authorization")); ok {
			if claims, err := m.tokenService.Verify(token); err == nil {
				ctx := withIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email})
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext extracts the caller identity from the request context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}
