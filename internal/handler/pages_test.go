// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/payment"
	"github.com/olegiv/launchbio/internal/store"
)

var createdSlugPattern = regexp.MustCompile(`^test-launch-[a-z0-9]{6}$`)

func TestCreatePage(t *testing.T) {
	env := newTestEnv(t)

	slug, token := env.createPage(t, "Test Launch")
	if !createdSlugPattern.MatchString(slug) {
		t.Errorf("slug = %q, want test-launch-xxxxxx", slug)
	}
	if token == slug {
		t.Error("editToken must differ from slug")
	}

	page, err := env.queries.GetPageBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("GetPageBySlug: %v", err)
	}
	if page.OwnerID.Valid {
		t.Error("anonymous page should have no owner")
	}
	if !page.ShowBranding || page.IsPro {
		t.Errorf("new page ShowBranding=%v IsPro=%v, want true/false", page.ShowBranding, page.IsPro)
	}

	events, err := env.queries.ListEvents(context.Background(), store.ListEventsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Category != model.EventCategoryPage || events[0].Message != "Page created" {
		t.Fatalf("events = %+v, want one page creation event", events)
	}
	if !strings.Contains(events[0].Metadata, slug) {
		t.Errorf("event metadata = %s, want slug %s", events[0].Metadata, slug)
	}
}

func TestCreatePageMultipart(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range pageForm("Test Launch") {
		_ = mw.WriteField(k, v[0])
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestCreatePageValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(url.Values)
		field  string
	}{
		{"missing title", func(v url.Values) { v.Del("title") }, "title"},
		{"unknown theme", func(v url.Values) { v.Set("bgType", "neon-pink") }, "bgType"},
		{"buttons not json", func(v url.Values) { v.Set("buttons", "[{") }, "buttons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := pageForm("Test Launch")
			tt.mutate(form)
			w := env.postForm("/create", form)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
			body := decodeBody(t, w)
			if body["error"] != "Invalid data" {
				t.Errorf("error = %v, want Invalid data", body["error"])
			}
			fields, _ := body["fields"].(map[string]any)
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("fields = %v, want an entry for %q", fields, tt.field)
			}
		})
	}
}

func TestCreatePageRejectsProOptions(t *testing.T) {
	env := newTestEnv(t)

	form := pageForm("Test Launch")
	form.Set("bgType", "aurora")
	if w := env.postForm("/create", form); w.Code != http.StatusPaymentRequired {
		t.Errorf("pro theme status = %d, want %d", w.Code, http.StatusPaymentRequired)
	}

	form = pageForm("Test Launch")
	form.Set("showBranding", "false")
	if w := env.postForm("/create", form); w.Code != http.StatusPaymentRequired {
		t.Errorf("hidden branding status = %d, want %d", w.Code, http.StatusPaymentRequired)
	}
}

func TestUpdateAnonymousPage(t *testing.T) {
	env := newTestEnv(t)
	slug, token := env.createPage(t, "Test Launch")

	form := pageForm("Renamed Launch")
	form.Set("bgType", "sunset")
	w := env.postForm("/edit/"+token, form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["title"] != "Renamed Launch" || body["bgType"] != "sunset" {
		t.Errorf("edit view = %v", body)
	}
	if body["slug"] != slug {
		t.Errorf("slug = %v, want unchanged %q", body["slug"], slug)
	}
	if body["editToken"] != token {
		t.Errorf("editToken = %v, want unchanged", body["editToken"])
	}
}

func TestUpdateErrors(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	other := env.register(t, "other@example.com")
	_, ownedToken := env.createPage(t, "Test Launch", owner)
	_, anonToken := env.createPage(t, "Test Launch")

	pro := pageForm("Test Launch")
	pro.Set("bgType", "aurora")

	tests := []struct {
		name    string
		token   string
		form    url.Values
		cookies []*http.Cookie
		status  int
	}{
		{"unknown token", "missing", pageForm("Test Launch"), nil, http.StatusNotFound},
		{"owned page anonymous", ownedToken, pageForm("Test Launch"), nil, http.StatusUnauthorized},
		{"owned page other user", ownedToken, pageForm("Test Launch"), []*http.Cookie{other}, http.StatusUnauthorized},
		{"pro theme on free page", anonToken, pro, nil, http.StatusPaymentRequired},
		{"invalid form", anonToken, url.Values{}, nil, http.StatusBadRequest},
		{"owner succeeds", ownedToken, pageForm("Test Launch"), []*http.Cookie{owner}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postForm("/edit/"+tt.token, tt.form, tt.cookies...)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestPublicView(t *testing.T) {
	env := newTestEnv(t)
	slug, token := env.createPage(t, "Test Launch")

	w := env.get("/u/" + slug)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if cc := w.Header().Get("Cache-Control"); cc == "" || cc == "no-store" {
		t.Errorf("Cache-Control = %q, want a public max-age", cc)
	}
	body := decodeBody(t, w)
	if body["title"] != "Test Launch" {
		t.Errorf("title = %v, want Test Launch", body["title"])
	}
	if _, ok := body["editToken"]; ok {
		t.Error("public view must not expose the edit token")
	}
	if bytes.Contains(w.Body.Bytes(), []byte(token)) {
		t.Error("public view body contains the edit token")
	}

	if w := env.get("/u/missing-abc123"); w.Code != http.StatusNotFound {
		t.Errorf("unknown slug status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestEditView(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	_, token := env.createPage(t, "Test Launch", owner)

	w := env.get("/edit/"+token, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", w.Header().Get("Cache-Control"))
	}
	body := decodeBody(t, w)
	if body["editToken"] != token || body["owned"] != true {
		t.Errorf("edit view = %v", body)
	}
	themes, _ := body["themes"].([]any)
	if len(themes) != 4 {
		t.Errorf("themes = %v, want the 4 free themes", themes)
	}
	options, _ := body["themeOptions"].([]any)
	if len(options) != 4 {
		t.Fatalf("themeOptions = %v, want 4 entries", options)
	}
	if first, _ := options[0].(map[string]any); first["value"] != "dark-gradient" || first["label"] != "Dark gradient" {
		t.Errorf("first theme option = %v", options[0])
	}

	other := env.register(t, "other@example.com")
	if w := env.get("/edit/"+token, other); w.Code != http.StatusUnauthorized {
		t.Errorf("other user status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestCheckoutSuccessPage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createPage(t, "Test Launch")
	env.checkout.sessions["cs_paid"] = &payment.Session{ID: "cs_paid", PaymentStatus: "paid", EditToken: token}
	env.checkout.sessions["cs_open"] = &payment.Session{ID: "cs_open", PaymentStatus: "unpaid", EditToken: token}

	w := env.get("/edit/success?editToken=" + url.QueryEscape(token) + "&session_id=cs_open")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if body := decodeBody(t, w); body["isPro"] != false || body["upgraded"] != false {
		t.Errorf("unpaid session result = %v", body)
	}

	w = env.get("/edit/success?editToken=" + url.QueryEscape(token) + "&session_id=cs_paid")
	if body := decodeBody(t, w); body["isPro"] != true || body["upgraded"] != true {
		t.Errorf("paid session result = %v", body)
	}

	// A second visit is a no-op.
	w = env.get("/edit/success?editToken=" + url.QueryEscape(token) + "&session_id=cs_paid")
	if body := decodeBody(t, w); body["isPro"] != true || body["upgraded"] != false {
		t.Errorf("repeat visit result = %v", body)
	}

	if w := env.get("/edit/success"); w.Code != http.StatusBadRequest {
		t.Errorf("missing token status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	for _, title := range []string{"First", "Second", "Third"} {
		env.createPage(t, title, owner)
	}
	env.createPage(t, "Someone Else")

	w := env.get("/dashboard?limit=2", owner)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["total"] != float64(3) {
		t.Errorf("total = %v, want 3", body["total"])
	}
	pages, _ := body["pages"].([]any)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}

	w = env.get("/dashboard?limit=2&offset=2", owner)
	body = decodeBody(t, w)
	pages, _ = body["pages"].([]any)
	if len(pages) != 1 {
		t.Errorf("second page = %d items, want 1", len(pages))
	}
}

func TestParseFormBool(t *testing.T) {
	for _, s := range []string{"1", "true", "on", "YES", " True "} {
		if !parseFormBool(s) {
			t.Errorf("parseFormBool(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "0", "false", "off", "maybe"} {
		if parseFormBool(s) {
			t.Errorf("parseFormBool(%q) = true, want false", s)
		}
	}
}
