// Package identity is the gateway's pass-through client for the user pool.
// Every user scoped call carries the secret hash derived from the app
// client's secret.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
	"github.com/sing3demons/authgateway/pkg/mlog"
	"github.com/sing3demons/authgateway/pkg/secrethash"
)

// API is the subset of the user pool API the gateway calls, so tests can
// inject a fake.
type API interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	ResendConfirmationCode(ctx context.Context, params *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	RevokeToken(ctx context.Context, params *cip.RevokeTokenInput, optFns ...func(*cip.Options)) (*cip.RevokeTokenOutput, error)
}

type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int32
}

type SignUpInput struct {
	Email      string
	Password   string
	GivenName  string
	FamilyName string
}

type SignUpResult struct {
	UserSub   string       `json:"userSub"`
	Confirmed bool         `json:"confirmed"`
	Delivery  CodeDelivery `json:"delivery"`
}

type CodeDelivery struct {
	Destination string `json:"destination,omitempty"`
	Medium      string `json:"medium,omitempty"`
}

const defaultTimeout = 10 * time.Second

type Client struct {
	api          API
	clientID     string
	clientSecret string
	timeout      time.Duration
}

// New builds a client on the default AWS config for cfg.Region. User pool
// client calls are unsigned, so no AWS credentials are loaded. Each call is
// made once and bounded by cfg.Timeout.
func New(ctx context.Context, cfg config.IdentityProviderConfig) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	c := NewWithAPI(api, cfg.ClientID, cfg.ClientSecret)
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	return c, nil
}

func NewWithAPI(api API, clientID, clientSecret string) *Client {
	return &Client{api: api, clientID: clientID, clientSecret: clientSecret, timeout: defaultTimeout}
}

func (c *Client) secretHash(username string) *string {
	return aws.String(secrethash.Compute(c.clientID, c.clientSecret, username))
}

func (c *Client) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	attrs := []types.AttributeType{{Name: aws.String("email"), Value: aws.String(in.Email)}}
	if in.GivenName != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String("given_name"), Value: aws.String(in.GivenName)})
	}
	if in.FamilyName != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String("family_name"), Value: aws.String(in.FamilyName)})
	}

	var out *cip.SignUpOutput
	err := c.call(ctx, "SignUp", in.Email, func(ctx context.Context) (err error) {
		out, err = c.api.SignUp(ctx, &cip.SignUpInput{
			ClientId:       aws.String(c.clientID),
			Username:       aws.String(in.Email),
			Password:       aws.String(in.Password),
			SecretHash:     c.secretHash(in.Email),
			UserAttributes: attrs,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SignUpResult{
		UserSub:   aws.ToString(out.UserSub),
		Confirmed: out.UserConfirmed,
		Delivery:  delivery(out.CodeDeliveryDetails),
	}, nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	return c.call(ctx, "ConfirmSignUp", email, func(ctx context.Context) error {
		_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
			ClientId:         aws.String(c.clientID),
			Username:         aws.String(email),
			ConfirmationCode: aws.String(code),
			SecretHash:       c.secretHash(email),
		})
		return err
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	return c.initiateAuth(ctx, "Login", email, types.AuthFlowTypeUserPasswordAuth, map[string]string{
		"USERNAME":    email,
		"PASSWORD":    password,
		"SECRET_HASH": secrethash.Compute(c.clientID, c.clientSecret, email),
	})
}

// Refresh exchanges a refresh token; username must be the one the hash was
// first derived for (the email cookie).
func (c *Client) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	return c.initiateAuth(ctx, "Refresh", username, types.AuthFlowTypeRefreshTokenAuth, map[string]string{
		"REFRESH_TOKEN": refreshToken,
		"SECRET_HASH":   secrethash.Compute(c.clientID, c.clientSecret, username),
	})
}

func (c *Client) initiateAuth(ctx context.Context, op, username string, flow types.AuthFlowType, params map[string]string) (*Tokens, error) {
	var out *cip.InitiateAuthOutput
	err := c.call(ctx, op, username, func(ctx context.Context) (err error) {
		out, err = c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
			AuthFlow:       flow,
			ClientId:       aws.String(c.clientID),
			AuthParameters: params,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if out.ChallengeName != "" {
		mlog.L(ctx).Info(logAction.BUSINESS("auth challenge returned", op), map[string]any{"challenge": string(out.ChallengeName)})
		return nil, &Error{Kind: KindChallengeRequired, Err: fmt.Errorf("challenge %s", out.ChallengeName)}
	}
	res := out.AuthenticationResult
	if res == nil || aws.ToString(res.IdToken) == "" {
		return nil, mapError(ctx, op, errors.New("authentication result missing"))
	}
	return &Tokens{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*CodeDelivery, error) {
	var out *cip.ForgotPasswordOutput
	err := c.call(ctx, "ForgotPassword", email, func(ctx context.Context) (err error) {
		out, err = c.api.ForgotPassword(ctx, &cip.ForgotPasswordInput{
			ClientId:   aws.String(c.clientID),
			Username:   aws.String(email),
			SecretHash: c.secretHash(email),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	d := delivery(out.CodeDeliveryDetails)
	return &d, nil
}

func (c *Client) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	return c.call(ctx, "ConfirmForgotPassword", email, func(ctx context.Context) error {
		_, err := c.api.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
			ClientId:         aws.String(c.clientID),
			Username:         aws.String(email),
			ConfirmationCode: aws.String(code),
			Password:         aws.String(newPassword),
			SecretHash:       c.secretHash(email),
		})
		return err
	})
}

func (c *Client) ResendConfirmation(ctx context.Context, email string) (*CodeDelivery, error) {
	var out *cip.ResendConfirmationCodeOutput
	err := c.call(ctx, "ResendConfirmationCode", email, func(ctx context.Context) (err error) {
		out, err = c.api.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
			ClientId:   aws.String(c.clientID),
			Username:   aws.String(email),
			SecretHash: c.secretHash(email),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	d := delivery(out.CodeDeliveryDetails)
	return &d, nil
}

// RevokeToken invalidates a refresh token and the tokens issued from it.
func (c *Client) RevokeToken(ctx context.Context, refreshToken string) error {
	return c.call(ctx, "RevokeToken", "", func(ctx context.Context) error {
		_, err := c.api.RevokeToken(ctx, &cip.RevokeTokenInput{
			ClientId:     aws.String(c.clientID),
			ClientSecret: aws.String(c.clientSecret),
			Token:        aws.String(refreshToken),
		})
		return err
	})
}

// call wraps one provider request with a deadline, dependency logging and
// error mapping. fn must use the context it is given.
func (c *Client) call(ctx context.Context, op, username string, fn func(ctx context.Context) error) error {
	log := mlog.L(ctx)
	log.Debug(logAction.HTTP_REQUEST("POST", op), map[string]any{"username": username},
		logger.MaskingRule{Field: "username", Type: logger.MaskingTypeEmail})

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	meta := logger.DependencyMetadata{
		Dependency:   "cognito",
		ResponseTime: time.Since(start).Milliseconds(),
		ResultCode:   "200",
		ResultFlag:   "success",
	}
	if err != nil {
		meta.ResultCode, meta.ResultFlag = "error", "fail"
	}
	log.SetDependencyMetadata(meta).Debug(logAction.HTTP_RESPONSE("POST", op), map[string]any{"ok": err == nil})

	if err != nil {
		return mapError(ctx, op, err)
	}
	return nil
}

func delivery(d *types.CodeDeliveryDetailsType) CodeDelivery {
	if d == nil {
		return CodeDelivery{}
	}
	return CodeDelivery{Destination: aws.ToString(d.Destination), Medium: string(d.DeliveryMedium)}
}
