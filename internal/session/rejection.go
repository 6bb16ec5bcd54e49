package session

import (
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNoToken      Code = "NO_TOKEN"
	CodeInvalidToken Code = "INVALID_TOKEN"
	CodeUnavailable  Code = "UNAVAILABLE"
	CodeInternal     Code = "INTERNAL"
)

var rejections = map[Code]struct {
	status  int
	message string
}{
	CodeNoToken:      {http.StatusUnauthorized, "authentication required"},
	CodeInvalidToken: {http.StatusUnauthorized, "invalid or expired session"},
	CodeUnavailable:  {http.StatusServiceUnavailable, "authentication temporarily unavailable"},
	CodeInternal:     {http.StatusInternalServerError, "internal server error"},
}

// Rejection is why a request carries no usable session.
type Rejection struct {
	Code Code
	Err  error
}

func rejectWith(code Code, err error) *Rejection {
	return &Rejection{Code: code, Err: err}
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return string(r.Code)
	}
	return fmt.Sprintf("%s: %v", r.Code, r.Err)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

func (r *Rejection) StatusCode() int {
	return rejections[r.Code].status
}

func (r *Rejection) Message() string {
	return rejections[r.Code].message
}

// ClearsSession reports whether the client's session cookies are dead.
// Outages and internal failures keep them so the user is not logged out.
func (r *Rejection) ClearsSession() bool {
	return r.Code == CodeNoToken || r.Code == CodeInvalidToken
}

func (r *Rejection) Json() map[string]string {
	return map[string]string{"code": string(r.Code), "message": r.Message()}
}
