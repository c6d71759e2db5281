package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/internal/sessioncache"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	// refresh this long before the access token actually expires
	refreshLeeway = 30 * time.Second
)

// Client talks to the hosted service over HTTP: auth endpoints for the
// identity surface, the table REST API for data, and the change-feed stream
// for realtime. It implements Identity, Profiles and Realtime.
//
// The client also owns the session-change event stream: sign-in, sign-out
// and token refresh are observed here first and fanned out to registered
// callbacks in emission order.
type Client struct {
	log     *slog.Logger
	baseURL string
	anonKey string
	httpc   *http.Client
	// streamc carries the long-lived change-feed connections. It has no
	// overall timeout: a healthy stream stays open until unsubscribed, only
	// connection setup is bounded.
	streamc *http.Client
	cache   sessioncache.Store

	mu           sync.Mutex
	session      *models.Session
	listeners    map[int]func(EventKind, *models.Session)
	nextListener int
	refreshTimer *time.Timer
	closed       bool

	// serializes event fan-out so callbacks observe provider order
	emitMu sync.Mutex
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the http.Client used for one-shot auth and REST
// calls. Change-feed streams keep their own client, whose overall timeout
// stays unset so a healthy stream is never cut off.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// NewClient builds a Client for the hosted service at baseURL. The anon key
// authenticates unauthenticated requests; once a session exists its access
// token takes over. The cache persists the session across restarts.
func NewClient(logger *slog.Logger, baseURL, anonKey string, cache sessioncache.Store, opts ...ClientOption) *Client {
	c := &Client{
		log:       logger,
		baseURL:   baseURL,
		anonKey:   anonKey,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		streamc: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		cache:     cache,
		listeners: make(map[int]func(EventKind, *models.Session)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops the refresh loop and drops all listeners.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.listeners = make(map[int]func(EventKind, *models.Session))
}

// tokenResponse is the provider's token-grant payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// authErrorBody covers the shapes the provider uses for auth failures.
type authErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (b authErrorBody) message() string {
	switch {
	case b.ErrorDescription != "":
		return b.ErrorDescription
	case b.Msg != "":
		return b.Msg
	case b.Error != "":
		return b.Error
	default:
		return "authentication failed"
	}
}

// CurrentSession implements Identity. It prefers the live in-memory session,
// then falls back to refreshing the cached one. A cache whose refresh token
// the provider no longer accepts is treated as signed out, not as an error.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	if c.session != nil && !c.session.Expired() {
		sess := *c.session
		c.mu.Unlock()
		return &sess, nil
	}
	live := c.session
	c.mu.Unlock()

	refreshToken := ""
	if live != nil {
		refreshToken = live.RefreshToken
	} else {
		rec, err := c.cache.Load(ctx)
		if err != nil {
			return nil, models.NewProviderError("session restore", err)
		}
		if rec == nil {
			return nil, nil
		}
		refreshToken = rec.RefreshToken
	}

	sess, err := c.refreshGrant(ctx, refreshToken)
	if err != nil {
		var authErr *models.AuthError
		if errors.As(err, &authErr) {
			// the provider rejected the refresh token: stale cache, signed out
			c.log.Info("cached session no longer valid, discarding", "err", err)
			_ = c.cache.Clear(ctx)
			return nil, nil
		}
		return nil, err
	}

	c.setSession(ctx, sess)
	out := *sess
	return &out, nil
}

// SignInWithPassword implements Identity.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	defer logutil.NewTimingLogger(c.log, time.Now(), "provider call", "method", "SignInWithPassword")()

	sess, err := c.tokenGrant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	c.setSession(ctx, sess)
	c.emit(EventSignedIn, sess)
	out := *sess
	return &out, nil
}

// SignUp implements Identity. The provider issues the first session together
// with the account; the profile row is written separately by the caller, so
// a short session-without-profile window follows.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	defer logutil.NewTimingLogger(c.log, time.Now(), "provider call", "method", "SignUp")()

	var tr tokenResponse
	if err := c.authRequest(ctx, http.MethodPost, authPath+"/signup", map[string]string{
		"email":    email,
		"password": password,
	}, &tr); err != nil {
		return nil, err
	}

	sess, err := sessionFromToken(tr)
	if err != nil {
		return nil, models.NewProviderError("sign up", err)
	}

	c.setSession(ctx, sess)
	c.emit(EventSignedIn, sess)
	out := *sess
	return &out, nil
}

// SignOut implements Identity. Always emits a signed-out event, even when no
// session exists, so state converges regardless of where sign-out is
// triggered from.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	c.mu.Unlock()

	if sess != nil {
		// best effort: a failed revocation still signs us out locally
		if err := c.authRequestWithToken(ctx, http.MethodPost, authPath+"/logout", sess.AccessToken, nil, nil); err != nil {
			c.log.Warn("provider logout failed, continuing local sign-out", "err", err)
		}
	}
	if err := c.cache.Clear(ctx); err != nil {
		c.log.Warn("failed to clear session cache on sign-out", "err", err)
	}

	c.emit(EventSignedOut, nil)
	return nil
}

// OnSessionChange implements Identity.
func (c *Client) OnSessionChange(fn func(kind EventKind, session *models.Session)) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn

	return &handle{cancel: func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}}
}

// handle implements Subscription with an idempotent Unsubscribe.
type handle struct {
	once   sync.Once
	cancel func()
}

func (h *handle) Unsubscribe() {
	h.once.Do(h.cancel)
}

// emit fans an event out to listeners, serialized so callbacks observe the
// provider's emission order.
func (c *Client) emit(kind EventKind, sess *models.Session) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	fns := make([]func(EventKind, *models.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.log.Debug("session change", "event", string(kind), "listeners", len(fns))
	for _, fn := range fns {
		var cp *models.Session
		if sess != nil {
			v := *sess
			cp = &v
		}
		fn(kind, cp)
	}
}

// setSession installs a new session, persists it, and schedules the next
// token refresh.
func (c *Client) setSession(ctx context.Context, sess *models.Session) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session = sess
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	if sess.RefreshToken != "" {
		wait := time.Until(sess.ExpiresAt) - refreshLeeway
		if wait < time.Second {
			wait = time.Second
		}
		c.refreshTimer = time.AfterFunc(wait, c.backgroundRefresh)
	}
	c.mu.Unlock()

	if err := c.cache.Save(ctx, sessioncache.Record{
		SubjectID:    sess.SubjectID,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		ExpiresAt:    sess.ExpiresAt,
	}); err != nil {
		c.log.Warn("failed to persist session", "err", err)
	}
}

// backgroundRefresh rotates the access token before expiry and emits a
// token-refreshed event. On failure it retries once the leeway elapses;
// a session left unrefreshed is recovered by the next CurrentSession call.
func (c *Client) backgroundRefresh() {
	c.mu.Lock()
	if c.closed || c.session == nil {
		c.mu.Unlock()
		return
	}
	refreshToken := c.session.RefreshToken
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sess, err := c.refreshGrant(ctx, refreshToken)
	if err != nil {
		c.log.Warn("background token refresh failed", "err", err)
		c.mu.Lock()
		if !c.closed && c.session != nil {
			c.refreshTimer = time.AfterFunc(refreshLeeway, c.backgroundRefresh)
		}
		c.mu.Unlock()
		return
	}

	c.setSession(ctx, sess)
	c.emit(EventTokenRefreshed, sess)
}

func (c *Client) refreshGrant(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, models.NewAuthError("no refresh token")
	}
	return c.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, body map[string]string) (*models.Session, error) {
	var tr tokenResponse
	if err := c.authRequest(ctx, http.MethodPost, authPath+"/token?grant_type="+grantType, body, &tr); err != nil {
		return nil, err
	}
	sess, err := sessionFromToken(tr)
	if err != nil {
		return nil, models.NewProviderError("token grant", err)
	}
	return sess, nil
}

func sessionFromToken(tr tokenResponse) (*models.Session, error) {
	subject, expiresAt, err := parseAccessToken(tr.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}
	if tr.ExpiresIn > 0 {
		// prefer the provider's explicit horizon over the token claim
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return &models.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		SubjectID:    subject,
		ExpiresAt:    expiresAt,
	}, nil
}

func (c *Client) authRequest(ctx context.Context, method, path string, body, dest any) error {
	return c.authRequestWithToken(ctx, method, path, "", body, dest)
}

// authRequestWithToken performs one call against the identity endpoints.
// 4xx statuses become AuthErrors carrying the provider's message; everything
// else that fails becomes a ProviderError.
func (c *Client) authRequestWithToken(ctx context.Context, method, path, token string, body, dest any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return models.NewProviderError(path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return models.NewProviderError(path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.NewProviderError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var eb authErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return models.NewAuthError(eb.message())
	}
	if resp.StatusCode >= 300 {
		return models.NewProviderError(path, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return models.NewProviderError(path, err)
		}
	}
	return nil
}
