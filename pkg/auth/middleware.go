package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	apphttp "github.com/hatchlabs/devbox-middleware/pkg/app/http"
)

// AccountResolver maps a verified identity to its account row, creating the
// account on first sight.
type AccountResolver func(ctx context.Context, identity *Identity) (int64, error)

// Middleware authenticates requests and resolves them to an account.
type Middleware struct {
	validator *JWTValidator
	resolver  AccountResolver
	logger    *zap.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(validator *JWTValidator, resolver AccountResolver, logger *zap.Logger) *Middleware {
	return &Middleware{
		validator: validator,
		resolver:  resolver,
		logger:    logger,
	}
}

// Authenticate verifies the bearer token and stores the identity and its
// account ID in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing bearer token"))
			return
		}

		identity, err := m.validator.ValidateToken(token)
		if err != nil {
			m.logger.Debug("Token validation failed", zap.Error(err))
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid bearer token"))
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		if m.resolver != nil {
			accountID, err := m.resolver(ctx, identity)
			if err != nil {
				m.logger.Error("Failed to resolve account",
					zap.String("subject", identity.Subject),
					zap.Error(err))
				apphttp.DefaultErrorHandler(w, err)
				return
			}
			ctx = WithAccountID(ctx, accountID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose identity lacks the admin role.
// It must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.Admin {
			apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
