package verifier

import (
	"errors"
	"fmt"
)

type Reason string

const (
	ReasonMalformed  Reason = "MALFORMED"
	ReasonUnknownKey Reason = "UNKNOWN_KEY"
	ReasonInvalid    Reason = "INVALID"
)

var (
	errMissingKID   = errors.New("token header has no kid")
	errMissingSub   = errors.New("token has no subject")
	errWrongClient  = errors.New("token was not issued to this client")
	errKeyAlgorithm = errors.New("signing key does not match token algorithm")
)

// TokenError rejects a token. Err is for logs only.
type TokenError struct {
	Reason Reason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

func reject(reason Reason, err error) *TokenError {
	return &TokenError{Reason: reason, Err: err}
}
