// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/payment"
	"github.com/olegiv/launchbio/internal/service"
)

// maxWebhookBody bounds Stripe event payloads.
const maxWebhookBody = 1 << 20

// StripeSignatureHeader carries the Stripe webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// WebhookHandler receives Stripe payment events.
type WebhookHandler struct {
	billing *service.BillingService
	secret  string
	logger  *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. An empty secret makes every
// delivery fail with 500 so Stripe keeps retrying until it is configured.
func NewWebhookHandler(billing *service.BillingService, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{billing: billing, secret: secret, logger: logger}
}

// Stripe handles POST /webhook and POST /api/webhook/stripe.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.logger.Error("stripe webhook secret not configured", "category", model.EventCategoryBilling)
		writeJSONError(w, http.StatusInternalServerError, "Webhook not configured")
		return
	}

	signature := r.Header.Get(StripeSignatureHeader)
	if signature == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing signature")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	event, err := payment.ParseWebhook(payload, signature, h.secret)
	if err != nil {
		if errors.Is(err, apperr.ErrSignatureInvalid) {
			h.logger.Warn("stripe webhook signature rejected", "error", err, "category", model.EventCategoryBilling)
			writeJSONError(w, http.StatusBadRequest, apperr.ErrSignatureInvalid.Error())
			return
		}
		h.logger.Warn("stripe webhook payload rejected", "error", err, "category", model.EventCategoryBilling)
		writeJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if err := h.billing.HandleEvent(r.Context(), event); err != nil {
		h.logger.Error("stripe webhook handling failed", "error", err, "event", event.ID, "category", model.EventCategoryBilling)
		writeJSONError(w, http.StatusInternalServerError, "Webhook handling failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
