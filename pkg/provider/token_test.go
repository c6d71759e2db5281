package provider

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mintToken builds a signed access token for tests. The signature key is
// irrelevant because claims are read unverified.
func mintToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseAccessToken(t *testing.T) {
	subject := uuid.New()
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	gotSubject, gotExpiry, err := parseAccessToken(mintToken(t, subject.String(), expiry))
	require.NoError(t, err)
	assert.Equal(t, subject, gotSubject)
	assert.WithinDuration(t, expiry, gotExpiry, time.Second)
}

func TestParseAccessTokenErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "missing subject", token: mintToken(t, "", time.Now().Add(time.Hour))},
		{name: "non-uuid subject", token: mintToken(t, "user-1", time.Now().Add(time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseAccessToken(tt.token)
			assert.Error(t, err)
		})
	}
}
