// Package auth exposes the gateway's HTTP surface over the identity provider.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/sing3demons/authgateway/internal/audit"
	"github.com/sing3demons/authgateway/internal/cookie"
	"github.com/sing3demons/authgateway/internal/identity"
	"github.com/sing3demons/authgateway/internal/session"
	"github.com/sing3demons/authgateway/pkg/kp"
	"github.com/sing3demons/authgateway/pkg/logAction"
)

// IdentityService is implemented by *identity.Client.
type IdentityService interface {
	SignUp(ctx context.Context, in identity.SignUpInput) (*identity.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*identity.Tokens, error)
	Refresh(ctx context.Context, username, refreshToken string) (*identity.Tokens, error)
	ForgotPassword(ctx context.Context, email string) (*identity.CodeDelivery, error)
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	ResendConfirmation(ctx context.Context, email string) (*identity.CodeDelivery, error)
	RevokeToken(ctx context.Context, refreshToken string) error
}

type ActivityStore interface {
	FindBySubject(ctx context.Context, subject string, limit int) ([]audit.Event, error)
}

var (
	errNoSession = kp.NewError(http.StatusUnauthorized, "no_session", "authentication required", nil)
	errNoStore   = kp.NewError(http.StatusServiceUnavailable, "activity_unavailable", "activity history is not available", nil)
)

type Handler struct {
	validate *validator.Validate
	idp      IdentityService
	jar      *cookie.Jar
	tokens   session.TokenVerifier
	recorder audit.Recorder
	activity ActivityStore
}

// NewHandler wires the handlers; recorder and activity may be nil. tokens is
// used to attach the subject to audit events.
func NewHandler(idp IdentityService, jar *cookie.Jar, tokens session.TokenVerifier, recorder audit.Recorder, activity ActivityStore) *Handler {
	if recorder == nil {
		recorder = audit.Nop()
	}
	return &Handler{
		validate: validator.New(),
		idp:      idp,
		jar:      jar,
		tokens:   tokens,
		recorder: recorder,
		activity: activity,
	}
}

// Register mounts every route; protected is the session middleware.
func (h *Handler) Register(app kp.IMicroservice, protected kp.Middleware) {
	app.POST("/auth/signup", h.SignUp)
	app.POST("/auth/confirm", h.ConfirmSignUp)
	app.POST("/auth/login", h.Login)
	app.POST("/auth/refresh", h.Refresh)
	app.POST("/auth/forgot-password", h.ForgotPassword)
	app.POST("/auth/confirm-forgot-password", h.ConfirmForgotPassword)
	app.POST("/auth/resend-confirmation", h.ResendConfirmation)
	app.POST("/auth/logout", h.Logout)
	app.GET("/auth/me", h.Me, protected)
	app.GET("/auth/activity", h.Activity, protected)
}

func (h *Handler) bind(ctx *kp.Ctx, v any) error {
	if err := ctx.Bind(v); err != nil {
		return kp.NewError(http.StatusBadRequest, string(identity.KindInvalidParameter), "invalid request body", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return kp.NewError(http.StatusBadRequest, string(identity.KindInvalidParameter), "invalid request", err)
	}
	return nil
}

// providerError converts an identity failure into the client facing error.
func providerError(err error) error {
	var ie *identity.Error
	if errors.As(err, &ie) {
		return kp.NewError(ie.StatusCode(), string(ie.Kind), ie.Message(), err)
	}
	return err
}

func (h *Handler) record(ctx *kp.Ctx, t audit.EventType, subject, email, reason string) {
	e := audit.NewEvent(t)
	e.Subject = subject
	e.Email = email
	e.Reason = reason
	e.RemoteAddr = ctx.Req.RemoteAddr
	e.UserAgent = ctx.Req.UserAgent()
	h.recorder.Record(ctx.Context(), e)
}

// subjectOf returns the sub of a token the gateway can verify, or "".
func (h *Handler) subjectOf(ctx *kp.Ctx, token string) string {
	if h.tokens == nil || token == "" {
		return ""
	}
	id, err := h.tokens.Verify(ctx.Context(), token)
	if err != nil {
		return ""
	}
	return id.Subject
}

func (h *Handler) SignUp(ctx *kp.Ctx) {
	ctx.L("signup", bodyMasking...)

	var req SignUpRequest
	if err := h.bind(ctx, &req); err != nil {
		ctx.Error(err)
		return
	}

	res, err := h.idp.SignUp(ctx.Context(), identity.SignUpInput{
		Email:      req.Email,
		Password:   req.Password,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
	})
	if err != nil {
		ctx.Error(providerError(err))
		return
	}

	h.record(ctx, audit.EventSignUp, res.UserSub, req.Email, "")
	ctx.JSON(http.StatusCreated, res, responseMasking...)
}

func (h *Handler) ConfirmSignUp(ctx *kp.Ctx) {
	ctx.L("confirm_signup", bodyMasking...)

	var req ConfirmRequest
	if err := h.bind(ctx, &req); err != nil {
		ctx.Error(err)
		return
	}
	if err := h.idp.ConfirmSignUp(ctx.Context(), req.Email, req.Code); err != nil {
		ctx.Error(providerError(err))
		return
	}

	h.record(ctx, audit.EventConfirmSignUp, "", req.Email, "")
	ctx.JSON(http.StatusOK, MessageResponse{Message: "account confirmed"})
}

func (h *Handler) Login(ctx *kp.Ctx) {
	ctx.L("login", bodyMasking...)

	var req LoginRequest
	if err := h.bind(ctx, &req); err != nil {
		ctx.Error(err)
		return
	}

	tokens, err := h.idp.Login(ctx.Context(), req.Email, req.Password)
	if err != nil {
		h.record(ctx, audit.EventLoginFailed, "", req.Email, string(identity.KindOf(err)))
		ctx.Error(providerError(err))
		return
	}

	h.jar.SetSession(ctx.Res, tokens.IDToken, tokens.RefreshToken, req.Email)
	h.record(ctx, audit.EventLogin, h.subjectOf(ctx, tokens.IDToken), req.Email, "")
	ctx.JSON(http.StatusOK, SessionResponse{Message: "login successful", ExpiresIn: tokens.ExpiresIn})
}

// Refresh re-derives the secret hash from the email cookie; the provider does
// not return a new refresh token, so only the auth token is rewritten.
func (h *Handler) Refresh(ctx *kp.Ctx) {
	ctx.L("refresh")

	vals := h.jar.Read(ctx.Req)
	if vals.RefreshToken == "" || vals.Email == "" {
		ctx.Error(errNoSession)
		return
	}

	tokens, err := h.idp.Refresh(ctx.Context(), vals.Email, vals.RefreshToken)
	if err != nil {
		if identity.KindOf(err) == identity.KindNotAuthorized {
			h.jar.Clear(ctx.Res)
		}
		ctx.Error(providerError(err))
		return
	}

	h.jar.SetSession(ctx.Res, tokens.IDToken, tokens.RefreshToken, vals.Email)
	h.record(ctx, audit.EventRefresh, h.subjectOf(ctx, tokens.IDToken), vals.Email, "")
	ctx.JSON(http.StatusOK, SessionResponse{Message: "session refreshed", ExpiresIn: tokens.ExpiresIn})
}

func (h *Handler) ForgotPassword(ctx *kp.Ctx) {
	ctx.L("forgot_password", bodyMasking...)

	var req EmailRequest
	if err := h.bind(ctx, &req); err != nil {
		ctx.Error(err)
		return
	}
	d, err := h.idp.ForgotPassword(ctx.Context(), req.Email)
	if err != nil {
		ctx.Error(providerError(err))
		return
	}
	ctx.JSON(http.StatusOK, map[string]any{"message": "verification code sent", "delivery": d}, responseMasking...)
}

func (h *Handler) ConfirmForgotPassword(ctx *kp.Ctx) {
	ctx.L("confirm_forgot_password", bodyMasking...)

	var req ConfirmForgotPasswordRequest
	if err := h.bind(ctx, &req); err != nil {
		ctx.Error(err)
		return
	}
	if err := h.idp.ConfirmForgotPassword(ctx.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		ctx.Error(providerError(err))
		return
	}

	h.record(ctx, audit.EventPasswordReset, "", req.Email, "")
	ctx.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}

func (h *Handler) ResendConfirmation(ctx *kp.Ctx) {
	ctx.L("resend_confirmation", bodyMasking...)

	var req EmailRequest
	if err := h.bind(ctx, &req); err != nil {
		ctx.Error(err)
		return
	}
	d, err := h.idp.ResendConfirmation(ctx.Context(), req.Email)
	if err != nil {
		ctx.Error(providerError(err))
		return
	}
	ctx.JSON(http.StatusOK, map[string]any{"message": "confirmation code sent", "delivery": d}, responseMasking...)
}

// Logout always clears the cookies. A failed revocation is logged only.
func (h *Handler) Logout(ctx *kp.Ctx) {
	log := ctx.L("logout")

	vals := h.jar.Read(ctx.Req)
	if vals.RefreshToken != "" {
		if err := h.idp.RevokeToken(ctx.Context(), vals.RefreshToken); err != nil {
			log.Warn(logAction.BUSINESS("refresh token revocation failed"), err.Error())
		}
	}

	h.jar.Clear(ctx.Res)
	h.record(ctx, audit.EventLogout, h.subjectOf(ctx, vals.AuthToken), vals.Email, "")
	ctx.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(ctx *kp.Ctx) {
	ctx.L("me")

	id, ok := session.IdentityFrom(ctx.Context())
	if !ok {
		ctx.Error(errNoSession)
		return
	}
	ctx.JSON(http.StatusOK, id, responseMasking...)
}

func (h *Handler) Activity(ctx *kp.Ctx) {
	ctx.L("activity")

	id, ok := session.IdentityFrom(ctx.Context())
	if !ok {
		ctx.Error(errNoSession)
		return
	}
	if h.activity == nil {
		ctx.Error(errNoStore)
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	events, err := h.activity.FindBySubject(ctx.Context(), id.Subject, limit)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]any{"subject": id.Subject, "events": events})
}
