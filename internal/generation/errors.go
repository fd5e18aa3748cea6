package generation

import "errors"

// Error taxonomy for generator implementations. Callers branch on
// these with errors.Is; implementations wrap them with detail.
var (
	// ErrInvalidConfig indicates the generator was constructed with
	// unusable configuration (missing API key, model name, ...).
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyInput indicates the caller provided nothing to work with.
	ErrEmptyInput = errors.New("generation input is empty")

	// ErrTransientFailure indicates a retryable upstream failure that
	// persisted through the retry budget.
	ErrTransientFailure = errors.New("transient generation failure")

	// ErrContentBlocked indicates the upstream service refused the
	// request on safety grounds. Never retried.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrInvalidResponse indicates the upstream service answered with
	// something that could not be parsed into the expected schema.
	// Never retried.
	ErrInvalidResponse = errors.New("invalid generation response")
)
