package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested booking or request does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a booking would overlap another one in the same room.
	ErrConflict = errors.New("application: time conflict")
	// ErrDuplicateRequest is returned when an identical request is already pending.
	ErrDuplicateRequest = errors.New("application: duplicate request")
	// ErrInvalidCredentials is returned when a username and password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrUnauthorized is returned when a bearer token is missing, expired or forged.
	ErrUnauthorized = errors.New("application: unauthorized")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// NotificationError records a failed best-effort delivery. It never undoes the
// state change that triggered the notification.
type NotificationError struct {
	Event     string
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %s to %s failed: %v", e.Event, e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
