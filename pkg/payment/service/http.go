package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/internal/metrics"
	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	apphttp "github.com/hatchlabs/devbox-middleware/pkg/app/http"
	"github.com/hatchlabs/devbox-middleware/pkg/auth"
	"github.com/hatchlabs/devbox-middleware/pkg/payment"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers payment endpoints on the given chi router.
// All routes assume the auth middleware has already run.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/v1/payments/intents", apphttp.HandleError(h.createIntent))
	r.Get("/v1/payments/intents", apphttp.HandleError(h.listIntents))
	r.Get("/v1/payments/intents/{id}", apphttp.HandleError(h.getIntent))
	r.Get("/v1/payments/settlements", apphttp.HandleError(h.listSettlements))
}

// TransferNotification is the webhook body for detected transfers.
type TransferNotification struct {
	Signature  string `json:"signature"`
	FromWallet string `json:"from_wallet"`
	ToWallet   string `json:"to_wallet"`
	TokenMint  string `json:"token_mint,omitempty"`
	Amount     string `json:"amount"`
	Slot       uint64 `json:"slot"`
}

// RegisterWebhookRoutes registers the unauthenticated transfer webhook.
// The webhook acknowledges with 200 no matter what: the monitoring service
// retries on non-200 and the poller re-detects anything dropped here.
func RegisterWebhookRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/webhooks/transfers", h.transferWebhook)
}

func (h *HTTP) createIntent(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req payment.CreateIntentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	resp, err := h.service.CreateIntent(r.Context(), accountID, &req)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

func (h *HTTP) getIntent(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.GetIntent(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) listIntents(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.ListIntents(r.Context(), accountID)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) listSettlements(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.ListSettlements(r.Context(), accountID)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) transferWebhook(w http.ResponseWriter, r *http.Request) {
	ack := func() { apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}) }

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Warn("Failed to read webhook body", zap.Error(err))
		ack()
		return
	}

	var notif TransferNotification
	if err := json.Unmarshal(body, &notif); err != nil {
		metrics.ErrorsTotal.WithLabelValues("webhook", "decode").Inc()
		h.logger.Warn("Invalid webhook JSON", zap.Error(err))
		ack()
		return
	}

	amount, err := decimal.NewFromString(notif.Amount)
	if err != nil {
		h.logger.Warn("Invalid webhook amount",
			zap.String("signature", notif.Signature),
			zap.String("amount", notif.Amount))
		ack()
		return
	}

	transfer := &payment.Transfer{
		Signature:  notif.Signature,
		FromWallet: notif.FromWallet,
		ToWallet:   notif.ToWallet,
		TokenMint:  notif.TokenMint,
		Amount:     amount,
		Slot:       notif.Slot,
	}
	if err := h.service.HandleTransfer(r.Context(), transfer); err != nil {
		metrics.ErrorsTotal.WithLabelValues("webhook", "process").Inc()
		h.logger.Error("Failed to process transfer notification",
			zap.String("signature", notif.Signature),
			zap.Error(err))
	}
	ack()
}
