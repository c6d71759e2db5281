package provider

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// parseAccessToken reads the subject and expiry out of a provider-issued
// access token. The signature is NOT verified here: token cryptography is
// owned by the hosted provider and the store rejects forged tokens
// server-side; the client only needs the claims to key profile lookups and
// schedule refresh.
func parseAccessToken(tokenStr string) (subject uuid.UUID, expiresAt time.Time, err error) {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err = parser.ParseUnverified(tokenStr, &claims); err != nil {
		return uuid.Nil, time.Time{}, err
	}

	if claims.Subject == "" {
		return uuid.Nil, time.Time{}, errors.New("access token has no subject claim")
	}
	subject, err = uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}

	if claims.ExpiresAt == nil {
		return uuid.Nil, time.Time{}, errors.New("access token has no expiry claim")
	}
	return subject, claims.ExpiresAt.Time, nil
}
