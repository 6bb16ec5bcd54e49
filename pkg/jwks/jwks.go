package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/go-jose/go-jose/v4"
)

// JWK is the wire form of a public signing key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Key is a decoded, usable verification key.
type Key struct {
	KID    string
	Alg    string
	Public crypto.PublicKey
}

// Set maps key ids to keys.
type Set map[string]Key

func (s Set) KIDs() []string {
	kids := make([]string, 0, len(s))
	for kid := range s {
		kids = append(kids, kid)
	}
	return kids
}

func b64(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func RSAJWK(kid, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: alg,
		Kid: kid,
		N:   b64(pub.N.Bytes()),
		E:   b64(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func ECJWK(kid, alg string, pub *ecdsa.PublicKey) JWK {
	size := (pub.Curve.Params().BitSize + 7) / 8
	return JWK{
		Kty: "EC",
		Use: "sig",
		Alg: alg,
		Kid: kid,
		Crv: pub.Curve.Params().Name,
		X:   b64(pub.X.FillBytes(make([]byte, size))),
		Y:   b64(pub.Y.FillBytes(make([]byte, size))),
	}
}

// DecodeSet parses a JWKS document. Entries that are malformed, symmetric,
// lack a kid or are not meant for signatures are skipped and counted.
// Only a document that is not JSON at all is an error.
func DecodeSet(data []byte) (Set, int, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode jwks: %w", err)
	}

	set := make(Set, len(doc.Keys))
	skipped := 0
	for _, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			skipped++
			continue
		}
		if jwk.KeyID == "" || (jwk.Use != "" && jwk.Use != "sig") {
			skipped++
			continue
		}
		pub := jwk.Public()
		if !pub.Valid() || !isAsymmetricPublic(pub.Key) {
			skipped++
			continue
		}
		if _, dup := set[jwk.KeyID]; dup {
			skipped++
			continue
		}
		set[jwk.KeyID] = Key{KID: jwk.KeyID, Alg: jwk.Algorithm, Public: pub.Key}
	}
	return set, skipped, nil
}

func isAsymmetricPublic(k any) bool {
	switch k.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return true
	default:
		return false
	}
}
