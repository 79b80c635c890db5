// Package apperr defines the error taxonomy shared by every component of
// the settlement platform. Call sites wrap a sentinel with context via
// fmt.Errorf("...: %w", ErrNotFound) and callers at the transport boundary
// use errors.Is/errors.As to classify failures without leaking internals.
package apperr

import "errors"

// Sentinel errors. Wrap these with additional context; never construct a
// new type per call site.
var (
	// ErrValidation marks bad input at an API boundary. No retry.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown identifier. No retry.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation that raced a prior equivalent one; the
	// caller should treat this as success and use the existing result.
	ErrConflict = errors.New("conflict")

	// ErrUpstreamUnavailable marks a 5xx, timeout, or connection failure from
	// an upstream dependency (observation source, forecast source, market
	// engine). The caller should fall back rather than fail hard.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamClient marks a 4xx from an upstream dependency, indicating a
	// misconfigured outbound request rather than a transient condition.
	ErrUpstreamClient = errors.New("upstream rejected request")

	// ErrIntegrity marks a hash-chain or uniqueness violation on append.
	// Fatal for the settlement attempt that produced it.
	ErrIntegrity = errors.New("integrity violation")

	// ErrWebhookDelivery marks a non-2xx or transport failure after retries
	// are exhausted. Logged; never propagated to settlement state.
	ErrWebhookDelivery = errors.New("webhook delivery failed")
)

// Is reports whether err wraps target, per errors.Is semantics. Provided so
// call sites that don't want to import the stdlib errors package directly
// can still classify apperr sentinels.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
