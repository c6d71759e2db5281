package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagryu/GlobalCampus/internal/sessioncache"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eventRecorder collects session-change events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []EventKind
}

func (r *eventRecorder) record(kind EventKind, _ *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func (r *eventRecorder) got() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventKind(nil), r.events...)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, sessioncache.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cache := sessioncache.NewInMemory(testLogger())
	c := NewClient(testLogger(), srv.URL, "anon-key", cache)
	t.Cleanup(c.Close)
	return c, cache
}

func tokenHandler(t *testing.T, subject uuid.UUID) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  mintToken(t, subject.String(), time.Now().Add(time.Hour)),
			TokenType:    "bearer",
			ExpiresIn:    3600,
			RefreshToken: "refresh-1",
		})
	})
}

func TestSignInWithPassword(t *testing.T) {
	subject := uuid.New()
	c, cache := newTestClient(t, tokenHandler(t, subject))

	rec := &eventRecorder{}
	c.OnSessionChange(rec.record)

	sess, err := c.SignInWithPassword(context.Background(), "kim@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, subject, sess.SubjectID)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.False(t, sess.Expired())

	assert.Equal(t, []EventKind{EventSignedIn}, rec.got())

	// the session survives a restart via the cache
	saved, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, subject, saved.SubjectID)
}

func TestSignInWithPasswordRejected(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error_description": "Invalid login credentials",
		})
	}))

	rec := &eventRecorder{}
	c.OnSessionChange(rec.record)

	sess, err := c.SignInWithPassword(context.Background(), "kim@example.com", "wrong")
	require.Error(t, err)
	assert.Nil(t, sess)

	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, authErr.Error(), "Invalid login credentials")

	// a failed sign-in emits nothing
	assert.Empty(t, rec.got())
}

func TestCurrentSessionSignedOut(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when nothing is cached")
	}))

	sess, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestCurrentSessionRestoresFromCache(t *testing.T) {
	subject := uuid.New()
	var sawRefresh bool
	c, cache := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "cached-refresh", body["refresh_token"])
		sawRefresh = true
		tokenHandler(t, subject).ServeHTTP(w, r)
	}))

	require.NoError(t, cache.Save(context.Background(), sessioncache.Record{
		SubjectID:    subject,
		AccessToken:  "stale-access",
		RefreshToken: "cached-refresh",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	sess, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sawRefresh)
	assert.Equal(t, subject, sess.SubjectID)
	assert.False(t, sess.Expired())
}

func TestCurrentSessionStaleCacheDiscarded(t *testing.T) {
	c, cache := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"msg": "refresh token revoked"})
	}))

	require.NoError(t, cache.Save(context.Background(), sessioncache.Record{
		SubjectID:    uuid.New(),
		AccessToken:  "stale-access",
		RefreshToken: "revoked-refresh",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	// a rejected refresh token means signed out, not an error
	sess, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)

	saved, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestSignOutIdempotent(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := &eventRecorder{}
	c.OnSessionChange(rec.record)

	require.NoError(t, c.SignOut(context.Background()))
	require.NoError(t, c.SignOut(context.Background()))

	// each call emits, so state converges even without a session
	assert.Equal(t, []EventKind{EventSignedOut, EventSignedOut}, rec.got())
}

func TestSignOutClearsSession(t *testing.T) {
	subject := uuid.New()
	c, cache := newTestClient(t, tokenHandler(t, subject))

	_, err := c.SignInWithPassword(context.Background(), "kim@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(context.Background()))

	saved, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, saved)

	sess, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := &eventRecorder{}
	sub := c.OnSessionChange(rec.record)
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	require.NoError(t, c.SignOut(context.Background()))
	assert.Empty(t, rec.got())
}
