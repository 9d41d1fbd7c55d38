package models

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError reports a failed, unreachable or cancelled completion call
type ProviderError struct {
	Part  Part
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion for part %q (model %s) failed: %v", e.Part, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ContentFormatError reports generated content that did not match its expected format
type ContentFormatError struct {
	Part Part
	Err  error
}

func (e *ContentFormatError) Error() string {
	return fmt.Sprintf("unexpected content format for part %q: %v", e.Part, e.Err)
}

func (e *ContentFormatError) Unwrap() error { return e.Err }

// SelectionError reports that no candidate could be selected
type SelectionError struct {
	Count int
	Index int
}

func (e *SelectionError) Error() string {
	if e.Count == 0 {
		return "no recipe candidates to select from"
	}
	return fmt.Sprintf("candidate index %d out of range [0,%d)", e.Index, e.Count)
}

// CancelledError reports that the caller cancelled the generation before it completed
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("generation cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// IsCancellation reports whether err was caused by a cancelled or expired context
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Error codes reported to clients and lifecycle events
const (
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeContentFormat = "CONTENT_FORMAT_ERROR"
	ErrCodeSelection     = "SELECTION_ERROR"
	ErrCodeCancelled     = "CANCELLED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorCode classifies err into one of the error codes
func ErrorCode(err error) string {
	var (
		cancelled *CancelledError
		provider  *ProviderError
		format    *ContentFormatError
		selection *SelectionError
	)
	switch {
	case errors.As(err, &cancelled):
		return ErrCodeCancelled
	case errors.As(err, &provider):
		return ErrCodeProvider
	case errors.As(err, &format):
		return ErrCodeContentFormat
	case errors.As(err, &selection):
		return ErrCodeSelection
	default:
		return ErrCodeInternal
	}
}
