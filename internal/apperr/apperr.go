// Package apperr holds the error taxonomy shared by the order, cart and
// identity components. Every error returned across a service boundary carries
// a Kind so that handlers can render it without matching on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindUnauthenticated     Kind = "unauthenticated"
	KindInvalidCredential   Kind = "invalid_credential"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindInvalidTransition   Kind = "invalid_transition"
	KindPaymentNotConfirmed Kind = "payment_not_confirmed"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindConflict            Kind = "conflict"
	KindConfiguration       Kind = "configuration"
	KindInternal            Kind = "internal"
)

// Error is a classified error with a human readable message.
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

// Is matches another *Error by kind and message, so package level sentinels
// work with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Retryable reports whether the caller may retry the failed operation as is.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstreamUnavailable || e.Kind == KindConflict
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newf(KindValidation, format, args...) }

func Unauthenticated(format string, args ...any) error {
	return newf(KindUnauthenticated, format, args...)
}

func InvalidCredential(err error) error {
	return &Error{Kind: KindInvalidCredential, Message: "credential rejected", Err: err}
}

func Forbidden(format string, args ...any) error { return newf(KindForbidden, format, args...) }

func NotFound(format string, args ...any) error { return newf(KindNotFound, format, args...) }

func Conflict(format string, args ...any) error { return newf(KindConflict, format, args...) }

func Configuration(format string, args ...any) error {
	return newf(KindConfiguration, format, args...)
}

// InvalidTransition names both the current and the requested state.
func InvalidTransition(from, to string) error {
	return newf(KindInvalidTransition, "invalid transition from %s to %s", from, to)
}

// StalePaymentRef rejects a payment report for an attempt the order no longer tracks.
// It is an InvalidTransition so that queued reports are dropped, not redelivered.
func StalePaymentRef(got, current string) error {
	return newf(KindInvalidTransition, "payment report for %s does not match current payment attempt %s", got, current)
}

func PaymentNotConfirmed(paymentStatus string) error {
	return newf(KindPaymentNotConfirmed, "payment is %s, order cannot be delivered until payment is confirmed", paymentStatus)
}

// Upstream wraps a collaborator failure (catalog, payment, identity, storage).
func Upstream(collaborator string, err error) error {
	return &Error{Kind: KindUpstreamUnavailable, Message: collaborator + " unavailable", Err: err}
}

// Wrap classifies err under kind unless it already carries a kind.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	ErrSingleRestaurantCart = &Error{Kind: KindValidation, Message: "cart already holds items from another restaurant; a cart is scoped to one restaurant"}
	ErrEmptyCart            = &Error{Kind: KindValidation, Message: "cart is empty"}
	ErrMissingTaxRate       = &Error{Kind: KindConfiguration, Message: "tax rate is not configured"}
)
