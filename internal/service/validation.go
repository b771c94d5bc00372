// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/auth"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/util"
)

// PageInput is the form payload for creating or updating a launch page.
type PageInput struct {
	Title           string         `form:"title" validate:"required,min=2,max=120"`
	Description     string         `form:"description" validate:"max=500"`
	EventDate       string         `form:"eventDate" validate:"required,min=4"`
	EventTime       string         `form:"eventTime" validate:"required,min=2"`
	BgType          string         `form:"bgType" validate:"required,theme"`
	Buttons         []model.Button `form:"buttons" validate:"min=1,max=2,dive"`
	OwnerEmail      string         `form:"ownerEmail" validate:"omitempty,account_email"`
	AfterLaunchText string         `form:"afterLaunchText" validate:"max=500"`
	AnalyticsID     string         `form:"analyticsId" validate:"max=64"`
	// ShowBranding is nil when the form did not carry the field.
	ShowBranding *bool `form:"showBranding"`
}

// Normalize trims text fields and lowercases the owner email.
func (in *PageInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.EventDate = strings.TrimSpace(in.EventDate)
	in.EventTime = strings.TrimSpace(in.EventTime)
	in.BgType = strings.TrimSpace(in.BgType)
	in.OwnerEmail = auth.NormalizeEmail(in.OwnerEmail)
	in.AfterLaunchText = strings.TrimSpace(in.AfterLaunchText)
	in.AnalyticsID = strings.TrimSpace(in.AnalyticsID)
	for i := range in.Buttons {
		in.Buttons[i].Label = strings.TrimSpace(in.Buttons[i].Label)
		in.Buttons[i].URL = strings.TrimSpace(in.Buttons[i].URL)
	}
}

// Change describes the Pro-relevant part of the input.
func (in *PageInput) Change() Change {
	return Change{
		Theme:           in.BgType,
		AfterLaunchText: in.AfterLaunchText,
		AnalyticsID:     in.AnalyticsID,
		ShowBranding:    in.ShowBranding,
	}
}

// EventDateTime combines the date and time fields into a UTC instant.
func (in *PageInput) EventDateTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, fmt.Sprintf("%sT%s:00Z", in.EventDate, in.EventTime))
	if err != nil {
		return time.Time{}, apperr.NewValidationError("eventDate", "must be a valid date and time")
	}
	return t.UTC(), nil
}

var pageValidator = newPageValidator()

func newPageValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return model.IsKnownTheme(fl.Field().String())
	})
	_ = v.RegisterValidation("account_email", func(fl validator.FieldLevel) bool {
		return auth.IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("linkurl", func(fl validator.FieldLevel) bool {
		return util.ValidateLinkURL(fl.Field().String()) == nil
	})

	return v
}

// Validate normalizes the input and checks it field by field.
// The returned error is an *apperr.ValidationError.
func (in *PageInput) Validate() error {
	in.Normalize()

	if err := pageValidator.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating page input: %w", err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			key := fieldKey(fe)
			if _, exists := fields[key]; !exists {
				fields[key] = fieldMessage(fe)
			}
		}
		return apperr.WithMessage(&apperr.ValidationError{Fields: fields}, "Invalid data")
	}

	if _, err := in.EventDateTime(); err != nil {
		return apperr.WithMessage(err, "Invalid data")
	}
	return nil
}

// fieldKey strips the struct name from the namespace, e.g. "buttons[0].url".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isList {
			return fmt.Sprintf("must have at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("must have at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "account_email":
		return "must be a valid email address"
	case "theme":
		return "is not a known theme"
	case "linkurl":
		return "must be an http or https URL"
	default:
		return "is invalid"
	}
}
