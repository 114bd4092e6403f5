package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthenticateResolvesAccount(t *testing.T) {
	validator, rsaKey, _ := jwksFixture(t, "", "")
	token := signToken(t, jwt.SigningMethodRS256, "rsa-key", rsaKey, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	resolver := func(ctx context.Context, identity *Identity) (int64, error) {
		assert.Equal(t, "user-123", identity.Subject)
		return 42, nil
	}
	mw := NewMiddleware(validator, resolver, zap.NewNop())

	var gotAccountID int64
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := AccountIDFromContext(r.Context())
		require.True(t, ok)
		gotAccountID = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), gotAccountID)
}

func TestAuthenticateMissingToken(t *testing.T) {
	validator, _, _ := jwksFixture(t, "", "")
	mw := NewMiddleware(validator, nil, zap.NewNop())

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateMalformedToken(t *testing.T) {
	validator, _, _ := jwksFixture(t, "", "")
	mw := NewMiddleware(validator, nil, zap.NewNop())

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	mw := NewMiddleware(nil, nil, zap.NewNop())
	handler := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("admin identity passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/projects/x/link", nil)
		req = req.WithContext(WithIdentity(req.Context(), &Identity{Subject: "u", Admin: true}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("non-admin identity forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/projects/x/link", nil)
		req = req.WithContext(WithIdentity(req.Context(), &Identity{Subject: "u"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing identity forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/projects/x/link", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
