package backend

import "errors"

// Failure taxonomy for the remote catalog store. Callers only ever branch on
// these three classes; everything above this boundary sees "succeeded" or
// "degraded, but usable".
var (
	// ErrRemoteUnavailable: the store could not be reached or did not answer
	// usefully. Read callers fall back to a cached dataset.
	ErrRemoteUnavailable = errors.New("remote catalog store unavailable")

	// ErrRetryable: a transient write failure (network, timeout, 5xx). The
	// mutation should be queued and replayed later.
	ErrRetryable = errors.New("retryable backend write failure")

	// ErrRejected: the store refused the write permanently (4xx). Retrying
	// would poison the queue; the mutation must be dropped.
	ErrRejected = errors.New("backend rejected mutation")
)

// classifyWriteError maps an HTTP status to the write failure taxonomy.
// Statuses below 400 are not errors and must not reach this function.
func classifyWriteError(status int) error {
	if status >= 400 && status < 500 {
		return ErrRejected
	}
	return ErrRetryable
}
