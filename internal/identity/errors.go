package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

// Kind is the closed set of identity provider failures the gateway exposes.
type Kind string

const (
	KindUserNotConfirmed      Kind = "user_not_confirmed"
	KindNotAuthorized         Kind = "not_authorized"
	KindUserNotFound          Kind = "user_not_found"
	KindPasswordResetRequired Kind = "password_reset_required"
	KindCodeMismatch          Kind = "code_mismatch"
	KindCodeExpired           Kind = "code_expired"
	KindTooManyRequests       Kind = "too_many_requests"
	KindInvalidPassword       Kind = "invalid_password"
	KindUsernameExists        Kind = "username_exists"
	KindInvalidParameter      Kind = "invalid_parameter"
	KindChallengeRequired     Kind = "challenge_required"
	KindInternal              Kind = "internal_error"
)

var kinds = map[Kind]struct {
	status  int
	message string
}{
	KindUserNotConfirmed:      {http.StatusForbidden, "user is not confirmed"},
	KindNotAuthorized:         {http.StatusUnauthorized, "incorrect username or password"},
	KindUserNotFound:          {http.StatusNotFound, "user not found"},
	KindPasswordResetRequired: {http.StatusForbidden, "password reset required"},
	KindCodeMismatch:          {http.StatusBadRequest, "invalid verification code"},
	KindCodeExpired:           {http.StatusBadRequest, "verification code has expired"},
	KindTooManyRequests:       {http.StatusTooManyRequests, "too many requests, try again later"},
	KindInvalidPassword:       {http.StatusBadRequest, "password does not meet the policy"},
	KindUsernameExists:        {http.StatusConflict, "user already exists"},
	KindInvalidParameter:      {http.StatusBadRequest, "invalid request"},
	KindChallengeRequired:     {http.StatusForbidden, "additional authentication challenge required"},
	KindInternal:              {http.StatusInternalServerError, "internal server error"},
}

// provider exception name -> kind
var exceptionKinds = map[string]Kind{
	"UserNotConfirmedException":      KindUserNotConfirmed,
	"NotAuthorizedException":         KindNotAuthorized,
	"UserNotFoundException":          KindUserNotFound,
	"PasswordResetRequiredException": KindPasswordResetRequired,
	"CodeMismatchException":          KindCodeMismatch,
	"ExpiredCodeException":           KindCodeExpired,
	"TooManyRequestsException":       KindTooManyRequests,
	"LimitExceededException":         KindTooManyRequests,
	"TooManyFailedAttemptsException": KindTooManyRequests,
	"InvalidPasswordException":       KindInvalidPassword,
	"UsernameExistsException":        KindUsernameExists,
	"InvalidParameterException":      KindInvalidParameter,
}

// Error carries a Kind for the client and the provider error for logs.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StatusCode() int {
	return kinds[e.Kind].status
}

// Message is fixed per kind; provider text never reaches the client.
func (e *Error) Message() string {
	return kinds[e.Kind].message
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func mapError(ctx context.Context, op string, err error) error {
	kind := KindInternal
	code := ""
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
		if k, ok := exceptionKinds[code]; ok {
			kind = k
		}
	}

	detail := map[string]any{"operation": op, "kind": kind, "providerCode": code, "error": err.Error()}
	if kind == KindInternal {
		mlog.L(ctx).Error(logAction.EXCEPTION("identity provider call failed", op), detail)
	} else {
		mlog.L(ctx).Info(logAction.BUSINESS("identity provider rejected call", op), detail)
	}
	return &Error{Kind: kind, Err: err}
}
