package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	apphttp "github.com/hatchlabs/devbox-middleware/pkg/app/http"
	"github.com/hatchlabs/devbox-middleware/pkg/auth"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers account endpoints on the given chi router.
// All routes assume the auth middleware has already run.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/v1/accounts/sync", apphttp.HandleError(h.sync))
	r.Get("/v1/accounts/me", apphttp.HandleError(h.me))
	r.Post("/v1/accounts/deposit-wallet", apphttp.HandleError(h.depositWallet))
	r.Get("/v1/accounts/credits", apphttp.HandleError(h.credits))
}

func (h *HTTP) sync(w http.ResponseWriter, r *http.Request) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing identity")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	req := &account.SyncRequest{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			return apperrors.BadRequestError(err, "invalid JSON")
		}
	}

	resp, err := h.service.Sync(r.Context(), identity, req)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) me(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.Me(r.Context(), accountID)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) depositWallet(w http.ResponseWriter, r *http.Request) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing identity")
	}

	resp, err := h.service.EnsureDepositWallet(r.Context(), identity)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) credits(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	credits, err := h.service.Credits(r.Context(), accountID)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]int64{"credits": credits})
	return nil
}
