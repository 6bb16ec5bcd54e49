// Package secrethash computes the SECRET_HASH parameter an identity provider
// app client with a secret expects on every user-scoped call.
package secrethash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Compute returns base64(HMAC-SHA256(key=clientSecret, msg=username+clientID)).
// Inputs are used as given; no trimming or case folding.
func Compute(clientID, clientSecret, username string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
