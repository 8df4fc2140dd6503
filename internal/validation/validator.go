// Geocollab - Incident Response Collaboration and Geospatial Export
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geocollab

// Package validation provides struct validation using go-playground/validator v10.
// It exposes a thread-safe singleton validator instance so struct metadata is
// parsed and cached once per process.
//
// Example usage:
//
//	type exportParams struct {
//	    Latitude  *float64 `validate:"omitempty,min=-90,max=90"`
//	    Longitude *float64 `validate:"omitempty,min=-180,max=180"`
//	}
//
//	if err := validation.ValidateStruct(&params); err != nil {
//	    respondError(w, http.StatusBadRequest, err.Error())
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator, initializing it on first use.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes a single failed field in a human-readable form.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Error returns the human-readable message.
func (e FieldError) Error() string {
	return e.Message
}

// RequestError aggregates all field errors for one validated struct.
type RequestError struct {
	Fields []FieldError
}

// Error joins the individual field messages.
func (e *RequestError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates a struct using its `validate` tags.
// Returns nil on success or a *RequestError describing every failed field.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: the argument was not a struct
		return fmt.Errorf("validation: %w", err)
	}

	reqErr := &RequestError{}
	for _, fe := range verrs {
		reqErr.Fields = append(reqErr.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return reqErr
}

// fieldMessage renders a failed field as a short human-readable message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation on %s", fe.Field(), fe.Tag())
	}
}
