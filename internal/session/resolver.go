package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/sing3demons/authgateway/internal/keycache"
	"github.com/sing3demons/authgateway/internal/verifier"
	"github.com/sing3demons/authgateway/pkg/kp"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*verifier.Identity, error)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *verifier.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (*verifier.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*verifier.Identity)
	return id, ok && id != nil
}

type Resolver struct {
	verifier   TokenVerifier
	cookieName string
}

func NewResolver(v TokenVerifier, cookieName string) *Resolver {
	if cookieName == "" {
		cookieName = "auth_token"
	}
	return &Resolver{verifier: v, cookieName: cookieName}
}

// Resolve turns the request cookies into an identity or a *Rejection.
func (r *Resolver) Resolve(ctx context.Context, cookies []*http.Cookie) (id *verifier.Identity, err error) {
	token := ""
	for _, c := range cookies {
		if c.Name == r.cookieName {
			token = c.Value
			break
		}
	}
	if token == "" {
		return nil, rejectWith(CodeNoToken, nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			mlog.L(ctx).Error(logAction.EXCEPTION("panic during token verification"), map[string]any{
				"panic": fmt.Sprint(rec),
				"stack": string(debug.Stack()),
			})
			id, err = nil, rejectWith(CodeInternal, fmt.Errorf("panic: %v", rec))
		}
	}()

	id, err = r.verifier.Verify(ctx, token)
	if err == nil {
		return id, nil
	}

	var te *verifier.TokenError
	switch {
	case errors.As(err, &te):
		return nil, rejectWith(CodeInvalidToken, err)
	case errors.Is(err, keycache.ErrFetch):
		mlog.L(ctx).Error(logAction.EXCEPTION("signing keys unavailable"), err.Error())
		return nil, rejectWith(CodeUnavailable, err)
	default:
		mlog.L(ctx).Error(logAction.EXCEPTION("token verification failed"), err.Error())
		return nil, rejectWith(CodeInternal, err)
	}
}

// Authenticate returns req with the verified identity attached to its context.
func (r *Resolver) Authenticate(req *http.Request) (*http.Request, error) {
	id, err := r.Resolve(req.Context(), req.Cookies())
	if err != nil {
		return req, err
	}
	return req.WithContext(WithIdentity(req.Context(), id)), nil
}

// Middleware rejects requests without a valid session. onReject runs before
// the response is written when the rejection means the session cookies are
// dead, so the caller can expire them.
func (r *Resolver) Middleware(onReject func(http.ResponseWriter)) kp.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			authed, err := r.Authenticate(req)
			if err == nil {
				next.ServeHTTP(w, authed)
				return
			}

			var rej *Rejection
			if !errors.As(err, &rej) {
				rej = rejectWith(CodeInternal, err)
			}
			if onReject != nil && rej.ClearsSession() {
				onReject(w)
			}

			log := mlog.L(req.Context())
			log.Info(logAction.OUTBOUND("session rejected", string(rej.Code)), rej.Json())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rej.StatusCode())
			_ = json.NewEncoder(w).Encode(rej.Json())

			log.AddMetadata("ErrorCode", rej.Error())
			log.FlushError(rej.StatusCode(), string(rej.Code))
		})
	}
}
