package util

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
)

// BearerToken strips an optional "Bearer " prefix from an Authorization
// header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The token has already been accepted by the identity provider; exp is only
// used to bound how long the resolved identity may be cached.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// CredentialHash returns a stable, non-reversible key for a credential.
func CredentialHash(credential string) string {
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
