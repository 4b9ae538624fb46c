package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityEcho(t *testing.T, captured *Identity, found *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		*found = ok
		if ok {
			*captured = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	svc := newTestTokenService(t, 24*time.Hour)
	mw := NewMiddleware(svc)

	token, err := svc.Issue(42, "owner@example.com")
	require.NoError(t, err)

	expiredSvc := newTestTokenService(t, -time.Minute)
	expiredToken, err := expiredSvc.Issue(42, "owner@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"no header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, false},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized, false},
		{"valid token", "Bearer " + token, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var identity Identity
			var called bool

			handler := mw.RequireAuth(identityEcho(t, &identity, &called))

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.Equal(t, int64(42), identity.UserID)
				assert.Equal(t, "owner@example.com", identity.Email)
			}
		})
	}

	t.Run("expired token", func(t *testing.T) {
		expiredMW := NewMiddleware(expiredSvc)

		var identity Identity
		var called bool
		handler := expiredMW.RequireAuth(identityEcho(t, &identity, &called))

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+expiredToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
		assert.Contains(t, rec.Body.String(), "expired")
	})
}

func TestOptionalAuth(t *testing.T) {
	svc := newTestTokenService(t, 24*time.Hour)
	mw := NewMiddleware(svc)

	token, err := svc.Issue(7, "reader@example.com")
	require.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		wantIdentity bool
	}{
		{"no header", "", false},
		{"invalid token", "Bearer garbage", false},
		{"valid token", "Bearer " + token, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var identity Identity
			var found bool

			handler := mw.OptionalAuth(identityEcho(t, &identity, &found))

			req := httptest.NewRequest(http.MethodGet, "/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			// Optional mode never rejects
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantIdentity, found)
			if tt.wantIdentity {
				assert.Equal(t, int64(7), identity.UserID)
			}
		})
	}
}
