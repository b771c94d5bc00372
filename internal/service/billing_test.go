// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/payment"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/testutil"
)

type fakeCheckout struct {
	created  []payment.CheckoutRequest
	sessions map[string]*payment.Session
	err      error
}

func (f *fakeCheckout) CreateSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1", EditToken: req.EditToken}, nil
}

func (f *fakeCheckout) GetSession(_ context.Context, id string) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

func newBilling(env *testEnv, checkout payment.Checkout) *BillingService {
	events := NewEventService(env.db, testutil.TestLoggerSilent())
	return NewBillingService(checkout, env.pages, events, DefaultLaunchPack, testutil.TestLoggerSilent())
}

func paidEvent(editToken string) *payment.Event {
	return &payment.Event{
		ID:   "evt_1",
		Type: payment.EventCheckoutCompleted,
		Session: &payment.Session{
			ID:            "cs_test_1",
			PaymentStatus: "paid",
			EditToken:     editToken,
		},
	}
}

func TestStartCheckout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "buyer@example.com")
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)

	fake := &fakeCheckout{}
	billing := newBilling(env, fake)

	url, err := billing.StartCheckout(ctx, user, CheckoutRequest{EditToken: res.EditToken, Origin: "https://launch.test/"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", url)

	require.Len(t, fake.created, 1)
	req := fake.created[0]
	assert.Equal(t, res.EditToken, req.EditToken)
	assert.Equal(t, int64(900), req.AmountCents)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "Launch Pack (one-time)", req.ProductName)
	assert.Equal(t, "https://launch.test/edit/success?editToken="+res.EditToken+"&session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://launch.test/edit/"+res.EditToken, req.CancelURL)
	assert.Equal(t, "buyer@example.com", req.CustomerEmail)

	page, err := env.pages.GetByEditToken(ctx, res.EditToken)
	require.NoError(t, err)
	assert.False(t, page.IsPro, "starting checkout never upgrades")
}

func TestStartCheckoutFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "buyer@example.com")
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)

	tests := []struct {
		name     string
		checkout payment.Checkout
		actor    *model.User
		token    string
		kind     error
		message  string
	}{
		{"anonymous", &fakeCheckout{}, nil, res.EditToken, apperr.ErrUnauthorized, MsgSignInToUpgrade},
		{"not configured", nil, user, res.EditToken, apperr.ErrNotConfigured, MsgStripeNotConfigured},
		{"unknown page", &fakeCheckout{}, user, "missing", apperr.ErrNotFound, MsgPageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billing := newBilling(env, tt.checkout)
			_, err := billing.StartCheckout(ctx, tt.actor, CheckoutRequest{EditToken: tt.token, Origin: "https://launch.test"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, apperr.PublicMessage(err))
		})
	}
}

func TestStartCheckoutProviderError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "buyer@example.com")
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)

	billing := newBilling(env, &fakeCheckout{err: errors.New("stripe down")})
	_, err = billing.StartCheckout(ctx, user, CheckoutRequest{EditToken: res.EditToken, Origin: "https://launch.test"})
	assert.Error(t, err)
}

func TestHandleEventUpgradesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)
	billing := newBilling(env, nil)

	require.NoError(t, billing.HandleEvent(ctx, paidEvent(res.EditToken)))
	require.NoError(t, billing.HandleEvent(ctx, paidEvent(res.EditToken)), "redelivery is a no-op")

	page, err := env.pages.GetByEditToken(ctx, res.EditToken)
	require.NoError(t, err)
	assert.True(t, page.IsPro)
	assert.False(t, page.ShowBranding)

	events, err := store.New(env.db).ListEvents(ctx, store.ListEventsParams{Limit: 10})
	require.NoError(t, err)
	upgrades := 0
	for _, e := range events {
		if e.Category == model.EventCategoryBilling {
			upgrades++
		}
	}
	assert.Equal(t, 1, upgrades, "only the first delivery is audited")
}

func TestHandleEventIgnoredCases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)
	billing := newBilling(env, nil)

	unpaid := paidEvent(res.EditToken)
	unpaid.Session.PaymentStatus = "unpaid"

	noToken := paidEvent("")

	otherType := paidEvent(res.EditToken)
	otherType.Type = "payment_intent.succeeded"

	for name, ev := range map[string]*payment.Event{
		"unpaid":       unpaid,
		"no token":     noToken,
		"other type":   otherType,
		"unknown page": paidEvent("missing-token"),
		"nil":          nil,
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, billing.HandleEvent(ctx, ev))
		})
	}

	page, err := env.pages.GetByEditToken(ctx, res.EditToken)
	require.NoError(t, err)
	assert.False(t, page.IsPro)
}

func TestHandleEventStoreFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)
	billing := newBilling(env, nil)

	require.NoError(t, env.db.Close())

	err = billing.HandleEvent(ctx, paidEvent(res.EditToken))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestConfirmSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)
	other, err := env.pages.Create(ctx, nil, validInput())
	require.NoError(t, err)

	fake := &fakeCheckout{sessions: map[string]*payment.Session{
		"cs_paid":   {ID: "cs_paid", PaymentStatus: "paid", EditToken: res.EditToken},
		"cs_unpaid": {ID: "cs_unpaid", PaymentStatus: "unpaid", EditToken: res.EditToken},
		"cs_other":  {ID: "cs_other", PaymentStatus: "paid", EditToken: other.EditToken},
	}}
	billing := newBilling(env, fake)

	for _, sessionID := range []string{"", "cs_unpaid", "cs_other", "cs_missing"} {
		result, err := billing.ConfirmSuccess(ctx, res.EditToken, sessionID)
		require.NoError(t, err, sessionID)
		assert.False(t, result.IsPro, sessionID)
	}

	result, err := billing.ConfirmSuccess(ctx, res.EditToken, "cs_paid")
	require.NoError(t, err)
	assert.True(t, result.IsPro)
	assert.True(t, result.Upgraded)
	assert.Equal(t, res.Slug, result.Slug)

	result, err = billing.ConfirmSuccess(ctx, res.EditToken, "cs_paid")
	require.NoError(t, err)
	assert.True(t, result.IsPro)
	assert.False(t, result.Upgraded)

	_, err = billing.ConfirmSuccess(ctx, "missing", "cs_paid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = newBilling(env, nil).ConfirmSuccess(ctx, res.EditToken, "cs_paid")
	assert.ErrorIs(t, err, apperr.ErrNotConfigured)
}
