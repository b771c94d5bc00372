// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/middleware"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/service"
)

// MsgCheckoutFailed is returned when checkout fails without a domain message.
const MsgCheckoutFailed = "Checkout failed"

// APIHandler serves the JSON endpoints called by launch and edit pages.
type APIHandler struct {
	pages   *service.PageService
	billing *service.BillingService
	baseURL string
	logger  *slog.Logger
}

// NewAPIHandler creates an APIHandler. baseURL, when set, is the origin
// used for checkout return URLs; otherwise it is derived from the request.
func NewAPIHandler(pages *service.PageService, billing *service.BillingService, baseURL string, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		pages:   pages,
		billing: billing,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type editTokenRequest struct {
	EditToken string `json:"editToken"`
}

type slugRequest struct {
	Slug string `json:"slug"`
}

// Checkout handles POST /checkout.
func (h *APIHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req editTokenRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.EditToken) == "" {
		writeJSONError(w, http.StatusBadRequest, "No token")
		return
	}

	url, err := h.billing.StartCheckout(r.Context(), middleware.GetUser(r), service.CheckoutRequest{
		EditToken: strings.TrimSpace(req.EditToken),
		Origin:    h.origin(r),
	})
	if err != nil {
		h.logger.Warn("checkout failed", "error", err, "category", model.EventCategoryBilling)
		writeJSONError(w, http.StatusInternalServerError, checkoutMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// checkoutMessage passes domain messages through and hides everything else.
func checkoutMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return MsgCheckoutFailed
}

// Views handles POST /views.
func (h *APIHandler) Views(w http.ResponseWriter, r *http.Request) {
	var req slugRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Slug) == "" {
		writeOK(w, http.StatusBadRequest, false)
		return
	}

	err := h.pages.RecordView(r.Context(), strings.TrimSpace(req.Slug))
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeOK(w, http.StatusNotFound, false)
	case err != nil:
		writeOK(w, http.StatusInternalServerError, false)
	default:
		writeOK(w, http.StatusOK, true)
	}
}

// Revalidate handles POST /revalidate. Unknown tokens are a silent no-op.
func (h *APIHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	var req editTokenRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.EditToken) == "" {
		writeOK(w, http.StatusBadRequest, false)
		return
	}

	if err := h.pages.Revalidate(r.Context(), strings.TrimSpace(req.EditToken)); err != nil {
		h.logger.Warn("revalidate failed", "error", err, "category", model.EventCategoryCache)
	}
	writeOK(w, http.StatusOK, true)
}

// origin returns the scheme and host customers return to after checkout.
func (h *APIHandler) origin(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	return requestOrigin(r)
}

// requestOrigin reconstructs the public origin of r, honoring the
// X-Forwarded-Proto header set by a TLS-terminating proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
