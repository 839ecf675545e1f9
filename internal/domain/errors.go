package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrConcurrentUpdate        = errors.New("session was updated concurrently")
	ErrExtractionFailed        = errors.New("extraction failed")
	ErrAvailabilityFetchFailed = errors.New("availability fetch failed")
	ErrEventCreationFailed     = errors.New("event creation failed")
	ErrSecretNotFound          = errors.New("secret not found")
	ErrEventNotFound           = errors.New("calendar event not found")
)

// NormalizationError is the failure marker for a candidate value that could not be resolved.
type NormalizationError struct {
	Field  Field
	Raw    string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s %q: %s", e.Field, e.Raw, e.Reason)
}

// EventCreationError carries the provider's reason and the field the user should revisit.
type EventCreationError struct {
	Field  Field
	Reason string
	Err    error
}

func (e *EventCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrEventCreationFailed, e.Reason, e.Err)
	}

	return fmt.Sprintf("%s: %s", ErrEventCreationFailed, e.Reason)
}

func (e *EventCreationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrEventCreationFailed, e.Err}
	}

	return []error{ErrEventCreationFailed}
}

func (e *EventCreationError) ImplicatedField() Field {
	if e == nil || !e.Field.Valid() {
		return FieldStartTime
	}

	return e.Field
}
