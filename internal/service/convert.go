// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"encoding/json"
	"fmt"

	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/util"
)

func toModelPage(p store.Page) (*model.Page, error) {
	var buttons []model.Button
	if p.Buttons != "" {
		if err := json.Unmarshal([]byte(p.Buttons), &buttons); err != nil {
			return nil, fmt.Errorf("decoding buttons of page %s: %w", p.Slug, err)
		}
	}
	if buttons == nil {
		buttons = []model.Button{}
	}

	return &model.Page{
		ID:              p.ID,
		Slug:            p.Slug,
		EditToken:       p.EditToken,
		Title:           p.Title,
		Description:     util.StringFromNull(p.Description),
		EventDateTime:   p.EventDateTime.UTC(),
		BgType:          p.BgType,
		Buttons:         buttons,
		OwnerEmail:      util.StringFromNull(p.OwnerEmail),
		OwnerID:         util.StringFromNull(p.OwnerID),
		AfterLaunchText: util.StringFromNull(p.AfterLaunchText),
		AnalyticsID:     util.StringFromNull(p.AnalyticsID),
		ShowBranding:    p.ShowBranding,
		IsPro:           p.IsPro,
		Views:           p.Views,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

func encodeButtons(buttons []model.Button) (string, error) {
	if buttons == nil {
		buttons = []model.Button{}
	}
	data, err := json.Marshal(buttons)
	if err != nil {
		return "", fmt.Errorf("encoding buttons: %w", err)
	}
	return string(data), nil
}
