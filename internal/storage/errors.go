// Package storage provides the object store backends and the error values
// shared by the document store backends.
package storage

import "errors"

var (
	// ErrNotFound is returned when a document or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrThroughputExceeded is returned when the store throttles a request.
	// Callers may retry with backoff.
	ErrThroughputExceeded = errors.New("throughput exceeded")
)

// IsThroughputExceeded reports whether err is a throttling error.
func IsThroughputExceeded(err error) bool {
	return errors.Is(err, ErrThroughputExceeded)
}
