package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"strings"
)

type Family string

const (
	FamilyRSA     Family = "RSA"
	FamilyEC      Family = "EC"
	FamilyUnknown Family = ""
)

// AlgorithmFamily maps a JWS alg to the key type it needs. HMAC and "none"
// map to FamilyUnknown.
func AlgorithmFamily(alg string) Family {
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return FamilyRSA
	case strings.HasPrefix(alg, "ES"):
		return FamilyEC
	default:
		return FamilyUnknown
	}
}

func IsAsymmetric(alg string) bool {
	switch alg {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512":
		return true
	default:
		return false
	}
}

// KeyMatches reports whether pub can verify signatures made with alg.
func KeyMatches(alg string, pub crypto.PublicKey) bool {
	switch AlgorithmFamily(alg) {
	case FamilyRSA:
		_, ok := pub.(*rsa.PublicKey)
		return ok
	case FamilyEC:
		k, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return false
		}
		// ES256 -> P-256, ES384 -> P-384, ES512 -> P-521
		want := map[string]string{"ES256": "P-256", "ES384": "P-384", "ES512": "P-521"}[alg]
		return want == "" || k.Curve.Params().Name == want
	default:
		return false
	}
}
