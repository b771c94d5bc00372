// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package payment talks to Stripe: it creates Checkout Sessions for the
// Launch Pack and verifies webhook deliveries.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/olegiv/launchbio/internal/apperr"
)

// MetadataEditToken is the Checkout Session metadata key carrying the page's edit token.
const MetadataEditToken = "editToken"

// EventCheckoutCompleted is the webhook event that can upgrade a page.
const EventCheckoutCompleted = string(stripe.EventTypeCheckoutSessionCompleted)

// CheckoutRequest describes a one-time Checkout Session.
type CheckoutRequest struct {
	EditToken     string
	ProductName   string
	AmountCents   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// Session is the part of a Checkout Session the application uses.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	EditToken     string
}

// Paid reports whether the session's payment has been collected.
func (s *Session) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// Event is a verified webhook event. Session is set for checkout events.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// Checkout creates and looks up Checkout Sessions.
type Checkout interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}

// StripeCheckout implements Checkout with the Stripe API.
type StripeCheckout struct {
	api *client.API
}

// NewStripeCheckout creates a Stripe client. Backends may be nil for the
// default Stripe endpoints.
func NewStripeCheckout(secretKey string, backends *stripe.Backends) *StripeCheckout {
	return &StripeCheckout{api: client.New(secretKey, backends)}
}

// CreateSession creates a payment-mode Checkout Session for one Launch Pack.
func (s *StripeCheckout) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(MetadataEditToken, req.EditToken)
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return toSession(cs), nil
}

// GetSession retrieves a Checkout Session by id.
func (s *StripeCheckout) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("retrieving checkout session: %w", err)
	}
	return toSession(cs), nil
}

// ParseWebhook verifies the Stripe-Signature header over the raw payload
// and decodes the event. Verification failures match apperr.ErrSignatureInvalid.
func ParseWebhook(payload []byte, signature, secret string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrSignatureInvalid, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Type == stripe.EventTypeCheckoutSessionCompleted && ev.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decoding checkout session: %w", err)
		}
		out.Session = toSession(&cs)
	}
	return out, nil
}

func toSession(cs *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		EditToken:     cs.Metadata[MetadataEditToken],
	}
}
