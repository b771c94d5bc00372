// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/olegiv/launchbio/internal/apperr"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

const completedEvent = `{
  "id": "evt_test_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "payment_status": "paid",
      "metadata": {"editToken": "tok-123"}
    }
  }
}`

func TestParseWebhookCheckoutCompleted(t *testing.T) {
	header := signedPayload(t, completedEvent, testWebhookSecret)

	ev, err := ParseWebhook([]byte(completedEvent), header, testWebhookSecret)
	require.NoError(t, err)

	assert.Equal(t, "evt_test_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "cs_test_1", ev.Session.ID)
	assert.Equal(t, "tok-123", ev.Session.EditToken)
	assert.True(t, ev.Session.Paid())
}

func TestParseWebhookOtherEvent(t *testing.T) {
	payload := `{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`
	header := signedPayload(t, payload, testWebhookSecret)

	ev, err := ParseWebhook([]byte(payload), header, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", ev.Type)
	assert.Nil(t, ev.Session)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage header", "t=1,v1=deadbeef"},
		{"wrong secret", signedPayload(t, completedEvent, "whsec_other")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(completedEvent), tt.header, testWebhookSecret)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrSignatureInvalid))
		})
	}
}

func TestParseWebhookRejectsTamperedBody(t *testing.T) {
	header := signedPayload(t, completedEvent, testWebhookSecret)
	tampered := []byte(completedEvent + " ")

	_, err := ParseWebhook(tampered, header, testWebhookSecret)
	assert.ErrorIs(t, err, apperr.ErrSignatureInvalid)
}

func newFakeStripe(t *testing.T, handler http.HandlerFunc) *StripeCheckout {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewStripeCheckout("sk_test_123", backends)
}

func TestCreateSession(t *testing.T) {
	var form map[string]string
	sc := newFakeStripe(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_new","object":"checkout.session","url":"https://checkout.stripe.test/pay/cs_test_new","payment_status":"unpaid","metadata":{"editToken":"tok-9"}}`))
	})

	s, err := sc.CreateSession(context.Background(), CheckoutRequest{
		EditToken:     "tok-9",
		ProductName:   "Launch Pack (one-time)",
		AmountCents:   900,
		Currency:      "usd",
		SuccessURL:    "https://launch.test/edit/success?editToken=tok-9&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://launch.test/edit/tok-9",
		CustomerEmail: "owner@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_new", s.ID)
	assert.Equal(t, "https://checkout.stripe.test/pay/cs_test_new", s.URL)
	assert.False(t, s.Paid())
	assert.Equal(t, "tok-9", s.EditToken)

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "tok-9", form["metadata[editToken]"])
	assert.Equal(t, "900", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "usd", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "Launch Pack (one-time)", form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1", form["line_items[0][quantity]"])
	assert.Equal(t, "https://launch.test/edit/tok-9", form["cancel_url"])
	assert.Equal(t, "owner@example.com", form["customer_email"])
}

func TestGetSession(t *testing.T) {
	sc := newFakeStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_paid":
			_, _ = w.Write([]byte(`{"id":"cs_paid","object":"checkout.session","payment_status":"paid","metadata":{"editToken":"tok-1"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`))
		}
	})

	s, err := sc.GetSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, s.Paid())
	assert.Equal(t, "tok-1", s.EditToken)

	_, err = sc.GetSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
