package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

const (
	selectRetryAttempts = 3
	selectRetryDelay    = 200 * time.Millisecond
)

// Select runs a read against the table API and decodes the result rows into
// dest. Reads are idempotent, so transient failures (transport errors, 5xx)
// are retried with backoff; 4xx responses are not.
func (c *Client) Select(ctx context.Context, q *Query, dest any) error {
	defer logutil.NewTimingLogger(c.log, time.Now(), "store query", "table", q.Table())()

	return retry.Do(
		func() error {
			return c.restRequest(ctx, http.MethodGet, q.Table(), q.Encode(), nil, dest)
		},
		retry.Attempts(selectRetryAttempts),
		retry.Delay(selectRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// Insert writes payload as new rows. When dest is non-nil the created rows
// are returned into it.
func (c *Client) Insert(ctx context.Context, table string, payload, dest any) error {
	defer logutil.NewTimingLogger(c.log, time.Now(), "store insert", "table", table)()
	return c.restRequest(ctx, http.MethodPost, table, "", payload, dest)
}

// Update applies payload to the rows matched by q. When dest is non-nil the
// updated rows are returned into it.
func (c *Client) Update(ctx context.Context, q *Query, payload, dest any) error {
	defer logutil.NewTimingLogger(c.log, time.Now(), "store update", "table", q.Table())()
	return c.restRequest(ctx, http.MethodPatch, q.Table(), q.Encode(), payload, dest)
}

// Delete removes the rows matched by q.
func (c *Client) Delete(ctx context.Context, q *Query) error {
	defer logutil.NewTimingLogger(c.log, time.Now(), "store delete", "table", q.Table())()
	return c.restRequest(ctx, http.MethodDelete, q.Table(), q.Encode(), nil, nil)
}

// restRequest performs one table API call. Row-level security on the hosted
// store decides what the bearer token may see; the client just forwards it.
func (c *Client) restRequest(ctx context.Context, method, table, query string, payload, dest any) error {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return retry.Unrecoverable(models.NewStoreError(table, err))
		}
		rd = bytes.NewReader(b)
	}

	url := c.baseURL + restPath + "/" + table
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return retry.Unrecoverable(models.NewStoreError(table, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())
	if dest != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.NewStoreError(table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return retry.Unrecoverable(models.NewStoreError(table,
			fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))))
	}
	if resp.StatusCode >= 300 {
		return models.NewStoreError(table, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return retry.Unrecoverable(models.NewStoreError(table, err))
		}
	}
	return nil
}

// bearerToken returns the current access token, falling back to the anon key
// for unauthenticated reads.
func (c *Client) bearerToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session.AccessToken
	}
	return c.anonKey
}

// ProfileBySubjectID implements Profiles as a point lookup with an exact
// match on the primary key; 0 rows is the valid profile-missing state.
func (c *Client) ProfileBySubjectID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var rows []models.Profile
	q := NewQuery("users").Eq("id", id.String()).Limit(1)
	if err := c.Select(ctx, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// InsertProfile implements Profiles.
func (c *Client) InsertProfile(ctx context.Context, profile models.Profile) error {
	return c.Insert(ctx, "users", map[string]any{
		"id":    profile.ID.String(),
		"email": profile.Email,
		"name":  profile.Name,
	}, nil)
}

// UpdateProfile implements Profiles.
func (c *Client) UpdateProfile(ctx context.Context, id uuid.UUID, updates models.ProfileUpdate) (*models.Profile, error) {
	var rows []models.Profile
	q := NewQuery("users").Eq("id", id.String())
	if err := c.Update(ctx, q, updates, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("users", fmt.Errorf("no profile row for %s", id))
	}
	return &rows[0], nil
}
