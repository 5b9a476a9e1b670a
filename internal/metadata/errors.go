// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when a value is set on a field the collection does not define.
	ErrUnknownField = errors.New("unknown metadata field")
	// ErrInvalidFieldValue is returned when a value does not match the field's type, pattern or allowed values.
	ErrInvalidFieldValue = errors.New("invalid metadata field value")
	// ErrMalformedPayload is returned when a metadata document is not a JSON object or catalog array.
	ErrMalformedPayload = errors.New("malformed metadata payload")
	// ErrLocked is returned when a locked list is asked to change field values.
	ErrLocked = errors.New("metadata locked while workflow is running")
)

// FieldError describes a rejected field operation. It unwraps to ErrUnknownField
// or ErrInvalidFieldValue.
type FieldError struct {
	Field  string
	Value  any
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %q: %s", e.Err, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

func unknownField(id string) error {
	return &FieldError{Field: id, Err: ErrUnknownField}
}

func invalidValue(id string, v any, reason string) error {
	return &FieldError{Field: id, Value: v, Reason: reason, Err: ErrInvalidFieldValue}
}
