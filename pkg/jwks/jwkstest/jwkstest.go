// Package jwkstest provides signing keys, token minting and an in-process
// JWKS endpoint for tests.
package jwkstest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sing3demons/authgateway/pkg/jwks"
)

type Signer struct {
	KID string
	Alg string
	Key crypto.Signer
}

func NewRSA(t testing.TB, kid string) *Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &Signer{KID: kid, Alg: "RS256", Key: key}
}

func NewEC(t testing.TB, kid string) *Signer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	return &Signer{KID: kid, Alg: "ES256", Key: key}
}

func (s *Signer) JWK() jwks.JWK {
	switch pub := s.Key.Public().(type) {
	case *rsa.PublicKey:
		return jwks.RSAJWK(s.KID, s.Alg, pub)
	case *ecdsa.PublicKey:
		return jwks.ECJWK(s.KID, s.Alg, pub)
	default:
		panic("jwkstest: unsupported key type")
	}
}

func (s *Signer) method() jwt.SigningMethod {
	m := jwt.GetSigningMethod(s.Alg)
	if m == nil {
		panic("jwkstest: unknown alg " + s.Alg)
	}
	return m
}

// Sign mints a token with kid and alg headers set from the signer.
func (s *Signer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return s.SignWithHeader(t, claims, nil)
}

// SignWithHeader lets a test override or add header fields.
func (s *Signer) SignWithHeader(t testing.TB, claims jwt.MapClaims, header map[string]any) string {
	t.Helper()
	token := jwt.NewWithClaims(s.method(), claims)
	token.Header["kid"] = s.KID
	for k, v := range header {
		token.Header[k] = v
	}
	signed, err := token.SignedString(s.Key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Claims returns a valid ID token claim set for sub.
func Claims(issuer, sub, clientID string, ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":       issuer,
		"sub":       sub,
		"aud":       clientID,
		"email":     sub + "@example.com",
		"token_use": "id",
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}
}

func Document(signers ...*Signer) []byte {
	doc := jwks.JWKS{Keys: make([]jwks.JWK, 0, len(signers))}
	for _, s := range signers {
		doc.Keys = append(doc.Keys, s.JWK())
	}
	b, _ := json.Marshal(doc)
	return b
}

// Server is a JWKS endpoint whose document and status can change mid test.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	body   []byte
	status int
	hits   atomic.Int64
}

func NewServer(t testing.TB, signers ...*Signer) *Server {
	t.Helper()
	s := &Server{body: Document(signers...), status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, _ *http.Request) {
	s.hits.Add(1)
	s.mu.Lock()
	body, status := s.body, s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) SetKeys(signers ...*Signer) {
	s.SetBody(Document(signers...))
}

func (s *Server) SetBody(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

func (s *Server) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Server) Hits() int {
	return int(s.hits.Load())
}
