package billing

import "github.com/dukerupert/emberbean/internal/domain"

var (
	// ErrInvalidSignature rejects webhook payloads whose signature does not
	// verify against the shared secret. These are never processed.
	ErrInvalidSignature = &domain.Error{
		Code:    domain.EUNAUTHORIZED,
		Message: "Invalid webhook signature",
	}

	// ErrIntentNotFound is returned when the provider has no record of the
	// requested payment intent.
	ErrIntentNotFound = &domain.Error{
		Code:    domain.ENOTFOUND,
		Message: "Payment intent not found",
	}
)
