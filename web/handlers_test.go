package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	globalcampus "github.com/tagryu/GlobalCampus"
	"github.com/tagryu/GlobalCampus/cfg"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer assembles an application core against a fake hosted service
// and returns the routed web surface.
func newTestServer(t *testing.T, provider http.Handler) (*mux.Router, *globalcampus.GlobalCampus) {
	t.Helper()
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)

	config := cfg.Config{
		Provider: cfg.ProviderConfig{URL: srv.URL, AnonKey: "anon"},
		Auth: cfg.AuthConfig{
			ResolveDeadline: time.Second,
			SettleDelay:     50 * time.Millisecond,
			LoginPath:       "/login",
		},
	}
	app, err := globalcampus.New(config,
		globalcampus.WithLogger(testLogger()),
		globalcampus.WithInMemorySessionCache(),
	)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	app.Start(context.Background())

	s, err := New(testLogger(), app)
	require.NoError(t, err)
	r := mux.NewRouter()
	s.Routes(r)
	return r, app
}

func postForm(t *testing.T, router *mux.Router, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func signedToken(t *testing.T, subject uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

// communityServer fakes the hosted service with a signed-in user plus the
// events and jobs tables.
func communityServer(t *testing.T, subject uuid.UUID, jobID, eventID uuid.UUID) http.Handler {
	t.Helper()
	m := http.NewServeMux()
	m.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  signedToken(t, subject),
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
		})
	})
	m.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{
			"id":    subject.String(),
			"email": "kim@example.com",
			"name":  "Kim",
		}})
	})
	m.HandleFunc("/rest/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{
			"id":           jobID.String(),
			"user_id":      subject.String(),
			"title":        "Campus barista",
			"company_name": "Bean There",
			"job_type":     "part-time",
			"location":     "Seoul",
			"user": map[string]any{
				"id":    subject.String(),
				"email": "kim@example.com",
				"name":  "Kim",
			},
		}})
	})
	m.HandleFunc("/rest/v1/events", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{
			"id":           eventID.String(),
			"organizer_id": subject.String(),
			"title":        "Welcome picnic",
			"location":     "Han river",
			"date":         time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		}})
	})
	return m
}

func signIn(t *testing.T, app *globalcampus.GlobalCampus) {
	t.Helper()
	require.NoError(t, app.Auth.SignIn(context.Background(), "kim@example.com", "secret"))
	require.Eventually(t, func() bool {
		return app.Auth.IsAuthenticated()
	}, 2*time.Second, 10*time.Millisecond)
}

// A login attempt rejected before the provider is ever reached must still
// surface its message on the re-rendered form.
func TestLoginValidationFailureShowsMessage(t *testing.T) {
	router, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := postForm(t, router, "/login", url.Values{"email": {""}, "password": {""}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "email and password are required")
}

func TestLoginRejectionShowsProviderMessage(t *testing.T) {
	router, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
	}))

	rr := postForm(t, router, "/login", url.Values{"email": {"kim@example.com"}, "password": {"wrong"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid login credentials")
}

func TestSignupValidationFailureShowsMessage(t *testing.T) {
	router, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := postForm(t, router, "/signup", url.Values{
		"email": {"kim@example.com"}, "password": {"secret"}, "name": {""},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "name is required")
}

func TestCreateEventRedirectsToBoard(t *testing.T) {
	subject := uuid.New()
	router, app := newTestServer(t, communityServer(t, subject, uuid.New(), uuid.New()))
	signIn(t, app)

	rr := postForm(t, router, "/events", url.Values{
		"title":    {"Welcome picnic"},
		"location": {"Han river"},
		"date":     {"2026-09-12"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/events", rr.Header().Get("Location"))
}

func TestCreateJobRedirectsToDetail(t *testing.T) {
	subject := uuid.New()
	jobID := uuid.New()
	router, app := newTestServer(t, communityServer(t, subject, jobID, uuid.New()))
	signIn(t, app)

	rr := postForm(t, router, "/jobs", url.Values{
		"title":        {"Campus barista"},
		"company_name": {"Bean There"},
		"job_type":     {"part-time"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/jobs/"+jobID.String(), rr.Header().Get("Location"))
}

func TestJobDetailPage(t *testing.T) {
	subject := uuid.New()
	jobID := uuid.New()
	router, app := newTestServer(t, communityServer(t, subject, jobID, uuid.New()))
	signIn(t, app)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Campus barista")
	assert.Contains(t, rr.Body.String(), "Bean There")
}
