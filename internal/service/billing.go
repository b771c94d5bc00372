// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/payment"
)

// Checkout messages passed through to the caller.
const (
	MsgSignInToUpgrade     = "Sign in to upgrade to Pro"
	MsgStripeNotConfigured = "Stripe is not configured"
	MsgPageNotFound        = "Page not found"
)

// LaunchPack describes the one-time Pro upgrade product.
type LaunchPack struct {
	Name        string
	AmountCents int64
	Currency    string
}

// DefaultLaunchPack is the $9.00 one-time upgrade.
var DefaultLaunchPack = LaunchPack{
	Name:        "Launch Pack (one-time)",
	AmountCents: 900,
	Currency:    "usd",
}

// CheckoutRequest starts a Launch Pack purchase for one page.
type CheckoutRequest struct {
	EditToken string
	// Origin is the scheme and host the customer returns to, e.g. https://launch.bio.
	Origin string
}

// SuccessResult reports the page state after the checkout success redirect.
type SuccessResult struct {
	Slug     string `json:"slug"`
	IsPro    bool   `json:"isPro"`
	Upgraded bool   `json:"upgraded"`
}

// BillingService sells the Launch Pack and applies paid upgrades.
type BillingService struct {
	checkout payment.Checkout
	pages    *PageService
	events   *EventService
	pack     LaunchPack
	logger   *slog.Logger
}

// NewBillingService creates a BillingService. checkout may be nil when
// Stripe is not configured; events may be nil to skip audit records.
func NewBillingService(checkout payment.Checkout, pages *PageService, events *EventService, pack LaunchPack, logger *slog.Logger) *BillingService {
	return &BillingService{
		checkout: checkout,
		pages:    pages,
		events:   events,
		pack:     pack,
		logger:   logger,
	}
}

// StartCheckout creates a Checkout Session for the page behind req.EditToken
// and returns the URL to redirect the customer to. It never changes the page.
func (s *BillingService) StartCheckout(ctx context.Context, actor *model.User, req CheckoutRequest) (string, error) {
	if actor == nil {
		return "", apperr.WithMessage(apperr.ErrUnauthorized, MsgSignInToUpgrade)
	}
	if s.checkout == nil {
		return "", apperr.WithMessage(apperr.ErrNotConfigured, MsgStripeNotConfigured)
	}
	if req.EditToken == "" {
		return "", apperr.NewValidationError("editToken", "is required")
	}

	page, err := s.pages.GetByEditToken(ctx, req.EditToken)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", apperr.WithMessage(apperr.ErrNotFound, MsgPageNotFound)
		}
		return "", err
	}

	origin := strings.TrimRight(req.Origin, "/")
	token := url.QueryEscape(page.EditToken)
	sess, err := s.checkout.CreateSession(ctx, payment.CheckoutRequest{
		EditToken:   page.EditToken,
		ProductName: s.pack.Name,
		AmountCents: s.pack.AmountCents,
		Currency:    s.pack.Currency,
		// Stripe substitutes the literal placeholder, so it must stay unescaped
		SuccessURL:    origin + "/edit/success?editToken=" + token + "&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/edit/" + url.PathEscape(page.EditToken),
		CustomerEmail: actor.Email,
	})
	if err != nil {
		s.logger.Error("failed to create checkout session", "error", err, "slug", page.Slug, "category", model.EventCategoryBilling)
		return "", fmt.Errorf("starting checkout: %w", err)
	}

	s.logger.Info("checkout started", "slug", page.Slug, "session", sess.ID, "category", model.EventCategoryBilling)
	return sess.URL, nil
}

// HandleEvent applies a verified webhook event. Events other than a paid
// checkout completion are acknowledged and ignored, as are events for
// unknown pages. A returned error means the delivery should be retried.
func (s *BillingService) HandleEvent(ctx context.Context, ev *payment.Event) error {
	if ev == nil || ev.Type != payment.EventCheckoutCompleted || ev.Session == nil {
		return nil
	}
	sess := ev.Session
	if !sess.Paid() {
		s.logger.Info("checkout completed without payment", "session", sess.ID, "status", sess.PaymentStatus, "category", model.EventCategoryBilling)
		return nil
	}
	if sess.EditToken == "" {
		s.logger.Warn("paid checkout without edit token", "session", sess.ID, "event", ev.ID, "category", model.EventCategoryBilling)
		return nil
	}

	return s.applyUpgrade(ctx, sess)
}

// ConfirmSuccess verifies the Checkout Session named on the success redirect
// and upgrades the page when the session is paid and belongs to it.
func (s *BillingService) ConfirmSuccess(ctx context.Context, editToken, sessionID string) (*SuccessResult, error) {
	if editToken == "" {
		return nil, apperr.NewValidationError("editToken", "is required")
	}
	if s.checkout == nil {
		return nil, apperr.WithMessage(apperr.ErrNotConfigured, MsgStripeNotConfigured)
	}

	page, err := s.pages.GetByEditToken(ctx, editToken)
	if err != nil {
		return nil, err
	}
	result := &SuccessResult{Slug: page.Slug, IsPro: page.IsPro}
	if page.IsPro || sessionID == "" {
		return result, nil
	}

	sess, err := s.checkout.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return result, nil
		}
		s.logger.Error("failed to verify checkout session", "error", err, "slug", page.Slug, "category", model.EventCategoryBilling)
		return nil, fmt.Errorf("verifying checkout: %w", err)
	}
	if sess.EditToken != editToken || !sess.Paid() {
		return result, nil
	}

	if err := s.applyUpgrade(ctx, sess); err != nil {
		return nil, err
	}
	result.IsPro = true
	result.Upgraded = true
	return result, nil
}

func (s *BillingService) applyUpgrade(ctx context.Context, sess *payment.Session) error {
	upgraded, err := s.pages.Upgrade(ctx, sess.EditToken)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.logger.Warn("paid checkout for unknown page", "session", sess.ID, "category", model.EventCategoryBilling)
		return nil
	case err != nil:
		s.logger.Error("failed to upgrade page", "error", err, "session", sess.ID, "category", model.EventCategoryBilling)
		return err
	case !upgraded:
		s.logger.Info("page already Pro", "session", sess.ID, "category", model.EventCategoryBilling)
		return nil
	}

	s.logger.Info("page upgraded to Pro", "session", sess.ID, "category", model.EventCategoryBilling)
	if s.events != nil {
		_ = s.events.LogBillingEvent(ctx, model.EventLevelInfo, "Page upgraded to Pro", map[string]any{
			"session": sess.ID,
		})
	}
	return nil
}
