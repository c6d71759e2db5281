// Package sessioncache persists the provider-issued session between runs,
// the way a browser client keeps it in local storage. Only the provider
// client reads or writes it; a missing record simply means the next start
// resolves as signed out.
package sessioncache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted slice of a provider session. The refresh token is
// the part that matters: the access token is usually expired by the next
// start and gets re-minted from it.
type Record struct {
	SubjectID    uuid.UUID
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	SavedAt      time.Time
}

// Store defines the interface for a persisted-session cache. At most one
// record exists at a time; Save replaces it.
type Store interface {
	// Save stores the record, replacing any previous one.
	Save(ctx context.Context, rec Record) error

	// Load retrieves the stored record.
	// Returns (nil, nil) when nothing is cached.
	Load(ctx context.Context) (*Record, error)

	// Clear removes the stored record. Clearing an empty cache is not an error.
	Clear(ctx context.Context) error
}
