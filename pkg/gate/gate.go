// Package gate decides whether a protected surface may render or must
// redirect to sign-in, without ever flashing the wrong one. It waits out the
// initial auth resolution, absorbs the transient signed-out state around
// token restoration with a settle delay, and fires at most one redirect per
// guarded mount.
package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/tagryu/GlobalCampus/pkg/models"
)

// AuthReader is the slice of the auth manager the gate consumes: a
// non-blocking snapshot plus an ordered update stream.
type AuthReader interface {
	State() models.AuthState
	Subscribe() (<-chan models.AuthState, func())
}

// Navigator performs the redirect for one guarded mount. The gate calls it
// at most once.
type Navigator interface {
	Redirect(path string)
}

// Requirement is what a guarded surface needs before it may render.
type Requirement int

const (
	// SessionOnly admits any signed-in user, profile row or not.
	SessionOnly Requirement = iota
	// ProfileRequired additionally waits for the profile row, covering the
	// window right after sign-up where the session exists first.
	ProfileRequired
)

// State is the gate's decision for one guarded mount.
type State int

const (
	// StateInit - nothing decided yet.
	StateInit State = iota
	// StateWaiting - auth is unresolved or the settle delay is running;
	// render nothing.
	StateWaiting
	// StateAuthorized - requirements met, render the protected surface.
	StateAuthorized
	// StateRedirecting - terminal; the redirect has been issued.
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWaiting:
		return "waiting"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

const (
	defaultSettleDelay = 300 * time.Millisecond
	defaultLoginPath   = "/login"
)

// Config tunes a Gate. Zero values take the defaults.
type Config struct {
	// LoginPath is where unauthenticated users are sent.
	LoginPath string
	// SettleDelay is how long a missing session is tolerated after load
	// before redirecting. It absorbs the gap where the provider is still
	// restoring a cached session.
	SettleDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	return c
}

// Gate guards protected surfaces against an auth source. One Gate serves the
// whole process; each guarded mount gets its own Instance.
type Gate struct {
	log  *slog.Logger
	auth AuthReader
	cfg  Config
}

// New builds a Gate over the given auth source.
func New(logger *slog.Logger, auth AuthReader, cfg Config) *Gate {
	return &Gate{log: logger, auth: auth, cfg: cfg.withDefaults()}
}

// LoginPath returns where the gate redirects unauthenticated users.
func (g *Gate) LoginPath() string {
	return g.cfg.LoginPath
}

// Guard starts a gate instance for one mount of a protected surface.
func (g *Gate) Guard(req Requirement, nav Navigator) *Instance {
	return &Instance{g: g, req: req, nav: nav, state: StateInit}
}

// Instance tracks the gate decision for a single guarded mount. Not safe for
// concurrent use; each mount owns its instance.
type Instance struct {
	g          *Gate
	req        Requirement
	nav        Navigator
	state      State
	redirected bool
}

// State returns the current decision.
func (in *Instance) State() State {
	return in.state
}

// Authorize drives the instance to a decision: StateAuthorized when the
// requirement is met, StateRedirecting when it conclusively is not. It
// blocks through the loading phase and the settle delay. Context
// cancellation returns the instance in whatever state it reached.
func (in *Instance) Authorize(ctx context.Context) State {
	// subscribe before the snapshot so no update between the two is lost
	updates, cancel := in.g.auth.Subscribe()
	defer cancel()

	state := in.g.auth.State()
	var settle *time.Timer
	var settleC <-chan time.Time
	stopSettle := func() {
		if settle != nil {
			settle.Stop()
			settle, settleC = nil, nil
		}
	}
	defer stopSettle()

	for {
		switch {
		case state.Loading:
			stopSettle()
			in.state = StateWaiting

		case in.satisfied(state):
			stopSettle()
			in.state = StateAuthorized
			return in.state

		case state.Error == "" && state.Session != nil:
			// signed in but the profile row has not landed yet; keep
			// waiting, the post-sign-up write republishes when it exists
			stopSettle()
			in.state = StateWaiting

		default:
			// loaded and signed out: give a racing restore one settle
			// delay before giving up
			in.state = StateWaiting
			if settle == nil {
				settle = time.NewTimer(in.g.cfg.SettleDelay)
				settleC = settle.C
			}
		}

		select {
		case next, ok := <-updates:
			if !ok {
				return in.state
			}
			state = next
		case <-settleC:
			in.redirect("no session after settle delay")
			return in.state
		case <-ctx.Done():
			return in.state
		}
	}
}

// Run watches an authorized instance and redirects the moment the
// requirement stops holding. Sign-out mid-page redirects immediately, with
// no settle delay. It blocks until redirect or context cancellation.
func (in *Instance) Run(ctx context.Context) {
	if in.state != StateAuthorized {
		return
	}

	updates, cancel := in.g.auth.Subscribe()
	defer cancel()

	if state := in.g.auth.State(); !state.Loading && state.Session == nil {
		in.redirect("session gone")
		return
	}

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			if !state.Loading && state.Session == nil {
				in.redirect("session gone")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// satisfied reports whether the auth state meets the instance requirement.
// An error-carrying state gates like signed-out.
func (in *Instance) satisfied(state models.AuthState) bool {
	if state.Loading || state.Session == nil || state.Error != "" {
		return false
	}
	if in.req == ProfileRequired && state.Profile == nil {
		return false
	}
	return true
}

// redirect transitions to the terminal state and fires the navigator
// exactly once.
func (in *Instance) redirect(reason string) {
	in.state = StateRedirecting
	if in.redirected {
		return
	}
	in.redirected = true
	in.g.log.Debug("redirecting to sign-in", "reason", reason, "path", in.g.cfg.LoginPath)
	in.nav.Redirect(in.g.cfg.LoginPath)
}
