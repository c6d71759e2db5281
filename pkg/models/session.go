package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the credential handle issued by the hosted identity provider.
// It is only ever constructed from provider responses; the client never
// mints one itself.
type Session struct {
	AccessToken  string    // bearer token presented to the hosted store
	RefreshToken string    // opaque token used to obtain a fresh access token
	TokenType    string    // usually "bearer"
	SubjectID    uuid.UUID // the authenticated subject, taken from the access token claims
	ExpiresAt    time.Time // access token expiry; refresh is delegated to the provider client
}

// Expired reports whether the access token has passed its expiry horizon.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
