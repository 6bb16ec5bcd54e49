package keycache

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every *FetchError.
	ErrFetch = errors.New("signing key fetch failed")

	ErrNoUsableKeys = errors.New("key set contains no usable keys")
	ErrSharedMiss   = errors.New("shared key set not found")
)

// FetchError is returned when keys could not be fetched and nothing is cached.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch signing keys from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
