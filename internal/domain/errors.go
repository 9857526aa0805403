package domain

import "errors"

var (
	// ErrMalformedInput: bad CSV header or structure. Aborts the upload
	// before anything is published.
	ErrMalformedInput = errors.New("malformed input")

	// ErrQueueUnavailable: broker publish/fetch failed after retries.
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrStorageUnavailable: transient sink backend failure, retryable.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
