// Package apperror defines the typed errors surfaced to dreamlog callers.
//
// Every error carries a Kind, a short Title and a human-readable Message.
// Retryable errors are those where repeating the same operation may succeed
// (storage hiccups, an AI backend that is still starting up); the CLI offers
// a retry hint only for those.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation and retry decisions.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindStorage            Kind = "storage"
	KindNotFound           Kind = "not_found"
	KindServiceUnavailable Kind = "external_service_unavailable"
	KindServiceTimeout     Kind = "external_service_timeout"
	KindResponseDecode     Kind = "response_decode_failure"
	KindPermissionDenied   Kind = "permission_denied"
	KindEntitlementFailure Kind = "entitlement_verification_failure"
	KindInsufficientData   Kind = "insufficient_data"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindBusy               Kind = "busy"
)

// Error is the concrete error type returned by service packages.
type Error struct {
	Kind       Kind
	Op         string
	Title      string
	Message    string
	Suggestion string
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so callers can write
// errors.Is(err, &apperror.Error{Kind: apperror.KindBusy}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

func Validation(op, message string) *Error {
	return &Error{
		Kind:       KindValidation,
		Op:         op,
		Title:      "Invalid Input",
		Message:    message,
		Suggestion: "Correct the input and try again.",
	}
}

func Storage(op string, err error) *Error {
	return &Error{
		Kind:       KindStorage,
		Op:         op,
		Title:      "Storage Failed",
		Message:    "could not access the journal database",
		Suggestion: "Please try again. If the problem persists, check the database file.",
		Retryable:  true,
		Err:        err,
	}
}

func NotFound(op, what string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Title:   "Not Found",
		Message: what + " not found",
	}
}

func ServiceUnavailable(op string, err error) *Error {
	return &Error{
		Kind:       KindServiceUnavailable,
		Op:         op,
		Title:      "AI Unavailable",
		Message:    "the text-generation service is not available",
		Suggestion: "Check that the local model server is running and ai.enabled is true.",
		Retryable:  err != nil,
		Err:        err,
	}
}

func ServiceTimeout(op string, err error) *Error {
	return &Error{
		Kind:       KindServiceTimeout,
		Op:         op,
		Title:      "Request Timed Out",
		Message:    "the AI request took too long and was cancelled",
		Suggestion: "Try again, or raise ai.timeout_seconds.",
		Retryable:  true,
		Err:        err,
	}
}

func ResponseDecode(op string, err error) *Error {
	return &Error{
		Kind:    KindResponseDecode,
		Op:      op,
		Title:   "Unreadable Response",
		Message: "the model response could not be decoded",
		Err:     err,
	}
}

func PermissionDenied(op, message string, err error) *Error {
	return &Error{
		Kind:       KindPermissionDenied,
		Op:         op,
		Title:      "Permission Needed",
		Message:    message,
		Suggestion: "Grant access to the audio or transcript source and try again.",
		Err:        err,
	}
}

func EntitlementFailure(op string, err error) *Error {
	return &Error{
		Kind:       KindEntitlementFailure,
		Op:         op,
		Title:      "Purchase Verification Failed",
		Message:    "the purchase receipt could not be verified",
		Suggestion: "Restore the receipt file and try again.",
		Err:        err,
	}
}

func InsufficientData(op string, have, need int) *Error {
	return &Error{
		Kind:       KindInsufficientData,
		Op:         op,
		Title:      "Not Enough Entries",
		Message:    fmt.Sprintf("record at least %d entries to see patterns (have %d)", need, have),
		Suggestion: "Keep journaling and try again later.",
	}
}

func QuotaExceeded(op string, limit int) *Error {
	return &Error{
		Kind:       KindQuotaExceeded,
		Op:         op,
		Title:      "Monthly Limit Reached",
		Message:    fmt.Sprintf("all %d free AI interpretations for this month are used", limit),
		Suggestion: "Wait for the monthly reset or unlock premium.",
	}
}

func Busy(op string) *Error {
	return &Error{
		Kind:       KindBusy,
		Op:         op,
		Title:      "Analysis In Progress",
		Message:    "another analysis request is already running",
		Suggestion: "Wait for it to finish and try again.",
		Retryable:  true,
	}
}
