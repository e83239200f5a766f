package domain

import "errors"

var (
	// ErrSessionNotFound is returned for any operation on an unknown
	// booking. A missing session is never fabricated.
	ErrSessionNotFound = errors.New("payment session not found")

	// ErrDuplicateSession is returned when a booking id is already live.
	ErrDuplicateSession = errors.New("payment session already exists")

	// ErrInvalidState is returned when the operation is not valid for the
	// session's current status.
	ErrInvalidState = errors.New("operation not valid in current session state")

	// ErrCodeExpired is returned when a code is submitted after the code
	// validity window has elapsed. The session state is left unchanged.
	ErrCodeExpired = errors.New("sms code expired")

	// ErrMalformedCode is returned when a submitted code is not exactly
	// six digits.
	ErrMalformedCode = errors.New("sms code must be 6 digits")
)
