package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	apphttp "github.com/hatchlabs/devbox-middleware/pkg/app/http"
	"github.com/hatchlabs/devbox-middleware/pkg/auth"
	"github.com/hatchlabs/devbox-middleware/pkg/project"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers project endpoints on the given chi router.
// All routes assume the auth middleware has already run.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/v1/projects", apphttp.HandleError(h.create))
	r.Get("/v1/projects", apphttp.HandleError(h.list))
	r.Get("/v1/projects/{id}", apphttp.HandleError(h.get))
	r.Delete("/v1/projects/{id}", apphttp.HandleError(h.delete))

	r.Post("/v1/projects/{id}/messages", apphttp.HandleError(h.appendMessage))
	r.Get("/v1/projects/{id}/messages", apphttp.HandleError(h.listMessages))
	r.Post("/v1/projects/{id}/exec", apphttp.HandleError(h.exec))
	r.Get("/v1/projects/{id}/tree", apphttp.HandleError(h.tree))
	r.Get("/v1/projects/{id}/routes", apphttp.HandleError(h.routes))
}

// RegisterAdminRoutes registers the admin ownership-fixup endpoint. The
// caller mounts these behind the admin middleware.
func RegisterAdminRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/v1/admin/projects/{id}/link", apphttp.HandleError(h.link))
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	var req project.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.service.Create(r.Context(), accountID, &req)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.List(r.Context(), accountID)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.Get(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	if err := h.service.Delete(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTP) link(w http.ResponseWriter, r *http.Request) error {
	var req project.LinkRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.AccountID == 0 {
		return apperrors.BadRequestError(nil, "account_id is required")
	}

	if err := h.service.Link(r.Context(), chi.URLParam(r, "id"), req.AccountID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTP) appendMessage(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	var req project.AppendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.service.AppendMessage(r.Context(), accountID, chi.URLParam(r, "id"), &req)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

func (h *HTTP) listMessages(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.ListMessages(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) exec(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	var req ExecRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.service.Exec(r.Context(), accountID, chi.URLParam(r, "id"), &req)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) tree(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.Tree(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) routes(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing account")
	}

	resp, err := h.service.Routes(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string][]string{"routes": resp})
	return nil
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}
