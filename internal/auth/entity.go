package auth

import "github.com/sing3demons/authgateway/pkg/logger"

type SignUpRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	GivenName  string `json:"givenName" validate:"omitempty,max=128"`
	FamilyName string `json:"familyName" validate:"omitempty,max=128"`
}

type ConfirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ConfirmForgotPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type SessionResponse struct {
	Message   string `json:"message"`
	ExpiresIn int32  `json:"expiresIn,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

var bodyMasking = []logger.MaskingRule{
	{Field: "body.email", Type: logger.MaskingTypeEmail},
	{Field: "body.password", Type: logger.MaskingTypeFull},
	{Field: "body.newPassword", Type: logger.MaskingTypeFull},
	{Field: "body.code", Type: logger.MaskingTypeFull},
}

var responseMasking = []logger.MaskingRule{
	{Field: "body.email", Type: logger.MaskingTypeEmail},
	{Field: "body.delivery.destination", Type: logger.MaskingTypePartial},
}
