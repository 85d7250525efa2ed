package checkout

import "errors"

// Module errors.
var (
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAlreadyTransitioned means the conditional update matched no
	// pending row: some other path already moved the payment to a
	// terminal state. Callers treat this as a duplicate, not a failure.
	ErrAlreadyTransitioned = errors.New("payment already transitioned")
)
