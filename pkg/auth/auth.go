// Package auth owns the authentication state of the application: one
// AuthState value per process, resolved once at startup, then kept current by
// the provider's session-change stream. Reads never block on the network;
// writers go through a sequence-stamped cell so a stale fetch can never
// overwrite a newer one.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/internal/statecell"
	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

const defaultResolveDeadline = 3 * time.Second

// Manager resolves and tracks the session lifecycle. Create one with New,
// start it with Listen and Resolve, and stop it with Close.
type Manager struct {
	log      *slog.Logger
	cell     *statecell.Cell
	identity provider.Identity
	profiles provider.Profiles

	resolveDeadline time.Duration
	sub             provider.Subscription
}

// Option customizes a Manager.
type Option func(*Manager)

// WithResolveDeadline bounds how long Resolve blocks callers before forcing
// the loading flag off. The resolution itself keeps running past the
// deadline and lands when it finishes.
func WithResolveDeadline(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.resolveDeadline = d
		}
	}
}

// New builds a Manager over the given provider surfaces. The initial state
// is loading until Resolve completes or gives up.
func New(logger *slog.Logger, identity provider.Identity, profiles provider.Profiles, opts ...Option) *Manager {
	m := &Manager{
		log:             logger,
		cell:            statecell.New(logger),
		identity:        identity,
		profiles:        profiles,
		resolveDeadline: defaultResolveDeadline,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve establishes the initial auth state: restore the session if one
// exists, fetch its profile, and publish the result. It returns once the
// state is known or the deadline passes, whichever is first. On deadline the
// loading flag is cleared so callers can proceed as signed-out, and the
// still-running resolution publishes when it lands unless something newer
// got there first.
func (m *Manager) Resolve(ctx context.Context) {
	defer logutil.NewTimingLogger(m.log, time.Now(), "initial auth resolution")()

	stamp := m.cell.Stamp()
	done := make(chan struct{})
	go func() {
		defer close(done)
		state := m.resolveState(ctx)
		m.cell.Publish(stamp, state)
	}()

	select {
	case <-done:
	case <-time.After(m.resolveDeadline):
		m.log.Warn("auth resolution exceeded deadline, proceeding unauthenticated",
			"deadline", m.resolveDeadline)
		m.cell.ForceLoaded()
	case <-ctx.Done():
		m.cell.ForceLoaded()
	}
}

// resolveState computes the state for the current session without touching
// the cell. Failures land in the Error field, never as a hung loading flag.
func (m *Manager) resolveState(ctx context.Context) models.AuthState {
	sess, err := m.identity.CurrentSession(ctx)
	if err != nil {
		m.log.Error("session restore failed", "err", err)
		return models.AuthState{Error: displayMessage(err)}
	}
	if sess == nil {
		return models.AuthState{}
	}
	return m.stateForSession(ctx, sess)
}

// stateForSession attaches the profile to a known-good session. A missing
// profile row is a valid state; a failed lookup keeps the session and
// records the error.
func (m *Manager) stateForSession(ctx context.Context, sess *models.Session) models.AuthState {
	profile, err := m.profiles.ProfileBySubjectID(ctx, sess.SubjectID)
	if err != nil {
		m.log.Error("profile fetch failed", "subject_id", sess.SubjectID, "err", err)
		return models.AuthState{Session: sess, Error: displayMessage(err)}
	}
	return models.AuthState{Session: sess, Profile: profile}
}

// Listen subscribes to the provider's session-change stream. The stamp for
// each notification is taken synchronously in the callback, so two
// notifications race on fetch latency but never on ordering: the later
// event's publish wins.
func (m *Manager) Listen() {
	m.sub = m.identity.OnSessionChange(func(kind provider.EventKind, sess *models.Session) {
		stamp := m.cell.Stamp()
		go m.handleSessionChange(stamp, kind, sess)
	})
}

func (m *Manager) handleSessionChange(stamp uint64, kind provider.EventKind, sess *models.Session) {
	m.log.Debug("handling session change", "event", string(kind))

	ctx, cancel := context.WithTimeout(context.Background(), m.resolveDeadline)
	defer cancel()

	var state models.AuthState
	switch kind {
	case provider.EventSignedOut:
		state = models.AuthState{}
	case provider.EventSignedIn, provider.EventTokenRefreshed:
		if sess == nil {
			m.log.Warn("session change carried no session", "event", string(kind))
			state = models.AuthState{}
		} else {
			state = m.stateForSession(ctx, sess)
		}
	default:
		m.log.Warn("ignoring unknown session event", "event", string(kind))
		return
	}

	if !m.cell.Publish(stamp, state) {
		m.log.Debug("dropped superseded session change", "event", string(kind))
	}
}

// State returns the current auth state. Never blocks.
func (m *Manager) State() models.AuthState {
	return m.cell.Load()
}

// IsAuthenticated reports whether a session currently exists.
func (m *Manager) IsAuthenticated() bool {
	return m.cell.Load().IsAuthenticated()
}

// Subscribe delivers every state update in publish order, starting with the
// next update after the call. The returned cancel func releases the
// subscription.
func (m *Manager) Subscribe() (<-chan models.AuthState, func()) {
	return m.cell.Subscribe()
}

// SignIn exchanges credentials for a session. On success the state update
// arrives through the session-change stream; SignIn itself publishes
// nothing. On failure the current state is kept, with the error recorded for
// display.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	if _, err := m.identity.SignInWithPassword(ctx, email, password); err != nil {
		m.publishError(err)
		// a rejected credential is routine, not operational noise
		return logutil.DebugAndWrapErr(m.log, "sign in rejected", err)
	}
	return nil
}

// SignUp registers an account and writes its initial profile row. The
// provider emits the sign-in event as soon as the account exists, so
// observers may briefly see the session without its profile; the republish
// after the profile write closes that window.
func (m *Manager) SignUp(ctx context.Context, email, password, name string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	if name == "" {
		return models.NewValidationError("name is required")
	}

	sess, err := m.identity.SignUp(ctx, email, password)
	if err != nil {
		m.publishError(err)
		return logutil.DebugAndWrapErr(m.log, "sign up rejected", err)
	}

	if err := m.profiles.InsertProfile(ctx, models.Profile{
		ID:    sess.SubjectID,
		Email: email,
		Name:  name,
	}); err != nil {
		// the account exists; the profile can still be written on next
		// sign-in, so keep the session and surface the error
		m.log.Error("initial profile write failed", "subject_id", sess.SubjectID, "err", err)
		stamp := m.cell.Stamp()
		m.cell.Publish(stamp, models.AuthState{Session: sess, Error: displayMessage(err)})
		return err
	}

	stamp := m.cell.Stamp()
	m.cell.Publish(stamp, m.stateForSession(ctx, sess))
	return nil
}

// SignOut ends the session. Safe to call when already signed out; the state
// converges to unauthenticated either way.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.identity.SignOut(ctx)
}

// UpdateProfile applies a partial profile update for the signed-in user and
// publishes the refreshed state in one step.
func (m *Manager) UpdateProfile(ctx context.Context, updates models.ProfileUpdate) (*models.Profile, error) {
	cur := m.cell.Load()
	if cur.Session == nil {
		return nil, models.NewAuthError("sign in to update your profile")
	}

	stamp := m.cell.Stamp()
	profile, err := m.profiles.UpdateProfile(ctx, cur.Session.SubjectID, updates)
	if err != nil {
		return nil, err
	}

	m.cell.Publish(stamp, models.AuthState{Session: cur.Session, Profile: profile})
	return profile, nil
}

// SubjectID returns the signed-in subject, or uuid.Nil when signed out.
func (m *Manager) SubjectID() uuid.UUID {
	if s := m.cell.Load().Session; s != nil {
		return s.SubjectID
	}
	return uuid.Nil
}

// Close stops listening and releases all subscribers.
func (m *Manager) Close() {
	if m.sub != nil {
		m.sub.Unsubscribe()
	}
	m.cell.Close()
}

// publishError records a failed operation on the current state without
// touching the session or profile.
func (m *Manager) publishError(err error) {
	stamp := m.cell.Stamp()
	cur := m.cell.Load()
	cur.Loading = false
	cur.Error = displayMessage(err)
	m.cell.Publish(stamp, cur)
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return models.NewValidationError("email and password are required")
	}
	return nil
}

// displayMessage maps an error to text safe to show the user. Credential
// rejections carry the provider's own message; infrastructure failures get a
// generic line and stay in the logs.
func displayMessage(err error) string {
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	var valErr *models.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	return "something went wrong, please try again"
}
