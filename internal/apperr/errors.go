// Package apperr defines the error kinds surfaced by the rental core.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind string

const (
	KindInvalidDateRange            Kind = "invalid_date_range"
	KindStayTooShort                Kind = "stay_too_short"
	KindStayTooLong                 Kind = "stay_too_long"
	KindUnsupportedCurrency         Kind = "unsupported_currency"
	KindInvalidInput                Kind = "invalid_input"
	KindPropertyUnavailable         Kind = "property_unavailable"
	KindDuplicatePendingApplication Kind = "duplicate_pending_application"
	KindApplicationNotApproved      Kind = "application_not_approved"
	KindProofRequired               Kind = "proof_required"
	KindReasonRequired              Kind = "reason_required"
	KindInvalidTransition           Kind = "invalid_transition"
	KindConflict                    Kind = "conflict"
	KindNotOwner                    Kind = "not_owner"
	KindForbidden                   Kind = "forbidden"
	KindNotFound                    Kind = "not_found"
	KindInternal                    Kind = "internal"
)

// Error is a classified failure. Two errors are considered equal by errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidDateRange            = &Error{Kind: KindInvalidDateRange, Message: "check-out date must be after check-in date"}
	ErrStayTooShort                = &Error{Kind: KindStayTooShort, Message: "stay is shorter than the minimum"}
	ErrStayTooLong                 = &Error{Kind: KindStayTooLong, Message: "stay is longer than the maximum"}
	ErrUnsupportedCurrency         = &Error{Kind: KindUnsupportedCurrency, Message: "unsupported currency"}
	ErrInvalidInput                = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrPropertyUnavailable         = &Error{Kind: KindPropertyUnavailable, Message: "property is not available"}
	ErrDuplicatePendingApplication = &Error{Kind: KindDuplicatePendingApplication, Message: "you already have a pending application for this property"}
	ErrApplicationNotApproved      = &Error{Kind: KindApplicationNotApproved, Message: "application is not approved"}
	ErrProofRequired               = &Error{Kind: KindProofRequired, Message: "payment proof is required for this payment method"}
	ErrReasonRequired              = &Error{Kind: KindReasonRequired, Message: "refund reason is required"}
	ErrInvalidTransition           = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrConflict                    = &Error{Kind: KindConflict, Message: "concurrent modification"}
	ErrNotOwner                    = &Error{Kind: KindNotOwner, Message: "not authorized for this resource"}
	ErrForbidden                   = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound                    = &Error{Kind: KindNotFound, Message: "not found"}
)

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind onto a response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidDateRange, KindStayTooShort, KindStayTooLong, KindUnsupportedCurrency, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotOwner, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPropertyUnavailable, KindDuplicatePendingApplication, KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindApplicationNotApproved, KindProofRequired, KindReasonRequired:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
