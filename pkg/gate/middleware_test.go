package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagryu/GlobalCampus/pkg/models"
)

func TestProtectServesAuthorizedRequest(t *testing.T) {
	auth := newFakeAuth(signedIn())
	g := New(testLogger(), auth, Config{})

	var gotState models.AuthState
	var gotOK bool
	handler := g.Protect(SessionOnly, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotState, gotOK = AuthStateFromContext(r.Context())
		w.Write([]byte("protected"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "protected", rec.Body.String())
	require.True(t, gotOK)
	require.NotNil(t, gotState.Session)
}

func TestProtectRedirectsSignedOut(t *testing.T) {
	auth := newFakeAuth(models.AuthState{})
	g := New(testLogger(), auth, Config{SettleDelay: 10 * time.Millisecond})

	called := false
	handler := g.Protect(SessionOnly, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	assert.False(t, called, "protected handler must not run")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

// A request arriving mid-resolution is held, then served once auth lands.
func TestProtectWaitsOutResolution(t *testing.T) {
	auth := newFakeAuth(models.AuthState{Loading: true})
	g := New(testLogger(), auth, Config{})

	handler := g.Protect(SessionOnly, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	go func() {
		time.Sleep(30 * time.Millisecond)
		auth.set(signedIn())
	}()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
