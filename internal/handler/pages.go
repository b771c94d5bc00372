// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/middleware"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/service"
)

const (
	// maxFormMemory bounds multipart page form parsing.
	maxFormMemory = 1 << 20
	// maxDashboardPageSize caps the dashboard limit query parameter.
	maxDashboardPageSize = 200
)

// PagesHandler serves launch page creation, editing and viewing.
type PagesHandler struct {
	pages   *service.PageService
	billing *service.BillingService
	events  *service.EventService
	logger  *slog.Logger
}

// NewPagesHandler creates a PagesHandler. events may be nil.
func NewPagesHandler(pages *service.PageService, billing *service.BillingService, events *service.EventService, logger *slog.Logger) *PagesHandler {
	return &PagesHandler{pages: pages, billing: billing, events: events, logger: logger}
}

// Create handles POST /create.
func (h *PagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := parsePageForm(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	user := middleware.GetUser(r)
	res, err := h.pages.Create(r.Context(), user, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.logPageEvent(r, "Page created", map[string]any{"slug": res.Slug, "owned": user != nil})
	writeJSON(w, http.StatusOK, res)
}

// Update handles POST /edit/{editToken}.
func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	editToken := chi.URLParam(r, "editToken")

	in, err := parsePageForm(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	page, err := h.pages.Update(r.Context(), middleware.GetUser(r), editToken, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.logPageEvent(r, "Page updated", map[string]any{"slug": page.Slug})
	writeJSON(w, http.StatusOK, page.Edit())
}

// Public handles GET /u/{slug}.
func (h *PagesHandler) Public(w http.ResponseWriter, r *http.Request) {
	view, err := h.pages.PublicView(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Edit handles GET /edit/{editToken}.
func (h *PagesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	view, err := h.pages.EditView(r.Context(), middleware.GetUser(r), chi.URLParam(r, "editToken"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CheckoutSuccess handles GET /edit/success, the Stripe success redirect.
func (h *PagesHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.billing.ConfirmSuccess(r.Context(), q.Get("editToken"), q.Get("session_id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// dashboardResponse lists the signed-in user's pages.
type dashboardResponse struct {
	Email  string           `json:"email"`
	Pages  []model.EditView `json:"pages"`
	Total  int64            `json:"total"`
	Limit  int64            `json:"limit"`
	Offset int64            `json:"offset"`
}

// Dashboard handles GET /dashboard. The route requires a signed-in user.
func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	limit := queryInt64(r, "limit", service.DefaultDashboardPageSize)
	if limit == 0 || limit > maxDashboardPageSize {
		limit = service.DefaultDashboardPageSize
	}
	offset := queryInt64(r, "offset", 0)

	pages, total, err := h.pages.ListByOwner(r.Context(), user, limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := dashboardResponse{
		Email:  user.Email,
		Pages:  make([]model.EditView, 0, len(pages)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, p := range pages {
		resp.Pages = append(resp.Pages, p.Edit())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PagesHandler) logPageEvent(r *http.Request, message string, metadata map[string]any) {
	if h.events == nil {
		return
	}
	metadata["ip"] = middleware.ClientIP(r)
	if id := middleware.GetUserID(r); id != "" {
		metadata["user_id"] = id
	}
	_ = h.events.LogPageEvent(r.Context(), model.EventLevelInfo, message, metadata)
}

// parsePageForm reads the page form fields. The buttons field holds a JSON
// array of {label, url}.
func parsePageForm(r *http.Request) (service.PageInput, error) {
	var err error
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return service.PageInput{}, apperr.WithMessage(apperr.NewValidationError("form", "could not be parsed"), "Invalid form data")
	}

	in := service.PageInput{
		Title:           r.FormValue("title"),
		Description:     r.FormValue("description"),
		EventDate:       r.FormValue("eventDate"),
		EventTime:       r.FormValue("eventTime"),
		BgType:          r.FormValue("bgType"),
		OwnerEmail:      r.FormValue("ownerEmail"),
		AfterLaunchText: r.FormValue("afterLaunchText"),
		AnalyticsID:     r.FormValue("analyticsId"),
	}

	if raw := strings.TrimSpace(r.FormValue("buttons")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Buttons); err != nil {
			return service.PageInput{}, apperr.WithMessage(apperr.NewValidationError("buttons", "must be a JSON array of buttons"), "Invalid data")
		}
	}

	if _, ok := r.Form["showBranding"]; ok {
		v := parseFormBool(r.Form.Get("showBranding"))
		in.ShowBranding = &v
	}

	return in, nil
}

// parseFormBool accepts checkbox and boolean spellings. Unknown values are false.
func parseFormBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}
