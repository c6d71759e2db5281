package gate

import (
	"context"
	"net/http"

	"github.com/tagryu/GlobalCampus/pkg/models"
)

type contextKey string

const authStateKey contextKey = "gate.authstate"

// AuthStateFromContext returns the auth state snapshot taken when the
// request was authorized. Only set on requests that passed Protect.
func AuthStateFromContext(ctx context.Context) (models.AuthState, bool) {
	state, ok := ctx.Value(authStateKey).(models.AuthState)
	return state, ok
}

// httpNavigator redirects one request. Satisfies Navigator.
type httpNavigator struct {
	w http.ResponseWriter
	r *http.Request
}

func (n *httpNavigator) Redirect(path string) {
	http.Redirect(n.w, n.r, path, http.StatusSeeOther)
}

// Protect wraps a handler so it only runs once the request is authorized.
// Unauthorized requests are redirected to the sign-in page; requests that
// arrive mid-resolution wait it out instead of flashing the wrong response.
func (g *Gate) Protect(req Requirement, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in := g.Guard(req, &httpNavigator{w: w, r: r})
		if in.Authorize(r.Context()) != StateAuthorized {
			// the navigator already wrote the redirect, or the client
			// went away while waiting
			return
		}

		ctx := context.WithValue(r.Context(), authStateKey, g.auth.State())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
