package verifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sing3demons/authgateway/pkg/jwks"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

// KeySource is satisfied by *keycache.Cache.
type KeySource interface {
	Keys(ctx context.Context) (jwks.Set, error)
	Refresh(ctx context.Context) (jwks.Set, error)
}

type Config struct {
	Issuer string
	// Algorithm is the only accepted header alg. Must be asymmetric.
	Algorithm string
	// ClientID, when set, must appear as aud (id tokens) or client_id (access tokens).
	ClientID string
	Leeway   time.Duration
}

type Identity struct {
	Subject    string    `json:"sub"`
	Email      string    `json:"email,omitempty"`
	GivenName  string    `json:"givenName,omitempty"`
	FamilyName string    `json:"familyName,omitempty"`
	Username   string    `json:"username,omitempty"`
	TokenUse   string    `json:"tokenUse,omitempty"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type Verifier struct {
	keys   KeySource
	cfg    Config
	parser *jwt.Parser
}

func New(keys KeySource, cfg Config) (*Verifier, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "RS256"
	}
	if !jwks.IsAsymmetric(cfg.Algorithm) {
		return nil, fmt.Errorf("algorithm %q is not an asymmetric signature algorithm", cfg.Algorithm)
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}

	return &Verifier{
		keys: keys,
		cfg:  cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{cfg.Algorithm}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(cfg.Leeway),
		),
	}, nil
}

type tokenHeader struct {
	Kid string `json:"kid"`
	Alg string `json:"alg"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email           string `json:"email"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	CognitoUsername string `json:"cognito:username"`
	Username        string `json:"username"`
	ClientID        string `json:"client_id"`
	TokenUse        string `json:"token_use"`
}

// Verify returns the identity carried by token or an error: *TokenError for
// a rejected token, *keycache.FetchError when keys are unavailable.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	id, err := v.verify(ctx, token)
	if err != nil {
		var te *TokenError
		if errors.As(err, &te) {
			mlog.L(ctx).Debug(logAction.BUSINESS("token rejected", string(te.Reason)), te.Error())
		}
		return nil, err
	}
	return id, nil
}

func (v *Verifier) verify(ctx context.Context, token string) (*Identity, error) {
	header, err := decodeHeader(token)
	if err != nil {
		return nil, reject(ReasonMalformed, err)
	}
	// checked before the kid and any key lookup so none/HS* are always INVALID
	if header.Alg != v.cfg.Algorithm {
		return nil, reject(ReasonInvalid, fmt.Errorf("algorithm %q not allowed", header.Alg))
	}
	if header.Kid == "" {
		return nil, reject(ReasonMalformed, errMissingKID)
	}

	key, err := v.lookup(ctx, header.Kid)
	if err != nil {
		return nil, err
	}
	if (key.Alg != "" && key.Alg != header.Alg) || !jwks.KeyMatches(header.Alg, key.Public) {
		return nil, reject(ReasonInvalid, errKeyAlgorithm)
	}

	claims := &tokenClaims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key.Public, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, reject(ReasonMalformed, err)
		}
		return nil, reject(ReasonInvalid, err)
	}

	if claims.Subject == "" {
		return nil, reject(ReasonInvalid, errMissingSub)
	}
	if v.cfg.ClientID != "" && !claims.issuedTo(v.cfg.ClientID) {
		return nil, reject(ReasonInvalid, errWrongClient)
	}
	return claims.identity(), nil
}

// lookup finds kid, refreshing the key set exactly once when it is missing.
func (v *Verifier) lookup(ctx context.Context, kid string) (jwks.Key, error) {
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return jwks.Key{}, err
	}
	if key, ok := keys[kid]; ok {
		return key, nil
	}

	mlog.L(ctx).Info(logAction.BUSINESS("unknown kid, refreshing signing keys"), map[string]any{"kid": kid})
	keys, err = v.keys.Refresh(ctx)
	if err != nil {
		return jwks.Key{}, err
	}
	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return jwks.Key{}, reject(ReasonUnknownKey, fmt.Errorf("kid %q not in key set", kid))
}

func decodeHeader(token string) (tokenHeader, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return tokenHeader{}, errors.New("token must have three segments")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return tokenHeader{}, fmt.Errorf("decode header: %w", err)
	}
	var h tokenHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return tokenHeader{}, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}

func (c *tokenClaims) issuedTo(clientID string) bool {
	return c.ClientID == clientID || slices.Contains(c.Audience, clientID)
}

func (c *tokenClaims) identity() *Identity {
	id := &Identity{
		Subject:    c.Subject,
		Email:      c.Email,
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Username:   c.CognitoUsername,
		TokenUse:   c.TokenUse,
	}
	if id.Username == "" {
		id.Username = c.Username
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
