// Package provider defines the boundary to the hosted backend-as-a-service:
// the managed identity provider, the managed relational store, and the
// realtime change feed. Client is the HTTP implementation; the interfaces
// exist so the auth core and the data services can be exercised against
// fakes.
package provider

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

// EventKind names a session-change notification from the identity provider.
type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Subscription is a handle to a registered callback. Unsubscribe is
// idempotent and must be called at teardown so no callback leaks.
type Subscription interface {
	Unsubscribe()
}

// Identity is the slice of the hosted identity provider this client
// consumes. Session objects are only ever produced by the provider;
// callers never construct them.
type Identity interface {
	// CurrentSession returns the existing session, if any.
	// Returns (nil, nil) when the user is signed out.
	CurrentSession(ctx context.Context) (*models.Session, error)

	// OnSessionChange registers a callback invoked on every sign-in,
	// sign-out, and token refresh, in emission order. The session argument
	// is nil for sign-out events.
	OnSessionChange(fn func(kind EventKind, session *models.Session)) Subscription

	// SignInWithPassword exchanges credentials for a session. Credential
	// rejections surface as a models.AuthError.
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)

	// SignUp registers a new account and returns its first session.
	SignUp(ctx context.Context, email, password string) (*models.Session, error)

	// SignOut invalidates the current session. Signing out while already
	// signed out is a no-op success.
	SignOut(ctx context.Context) error
}

// Profiles is the point-lookup surface over the hosted users table that the
// auth core needs.
type Profiles interface {
	// ProfileBySubjectID fetches the profile row for a session subject.
	// Returns (nil, nil) when the row does not exist yet; that is a valid
	// state, not an error.
	ProfileBySubjectID(ctx context.Context, id uuid.UUID) (*models.Profile, error)

	// InsertProfile writes the initial profile row during sign-up.
	InsertProfile(ctx context.Context, profile models.Profile) error

	// UpdateProfile applies a partial update and returns the fresh row.
	UpdateProfile(ctx context.Context, id uuid.UUID, updates models.ProfileUpdate) (*models.Profile, error)
}

// Change is one row-level change delivered by the realtime feed.
type Change struct {
	Table   string
	Payload json.RawMessage
}

// Realtime is the change-feed surface. Only inserts are consumed today
// (new chat messages); the transport behind it is owned by the hosted
// service.
type Realtime interface {
	// OnInsert invokes fn for every insert on table matching the query's
	// filters. The subscription stays live until Unsubscribe.
	OnInsert(table string, q *Query, fn func(Change)) (Subscription, error)
}
