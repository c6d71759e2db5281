package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tagryu/GlobalCampus/pkg/models"
)

const (
	realtimePath           = "/realtime/v1/changes"
	realtimeReconnectDelay = 3 * time.Second
)

type realtimeSubscription struct {
	cancel context.CancelFunc
}

func (s *realtimeSubscription) Unsubscribe() { s.cancel() }

// OnInsert streams insert notifications for table, filtered server-side by
// the filter expressions of q when given. The handler runs on the stream
// goroutine, so one slow handler delays later changes for that subscription
// only. The stream reconnects after a short delay until unsubscribed.
func (c *Client) OnInsert(table string, q *Query, fn func(Change)) (Subscription, error) {
	u, err := url.Parse(c.baseURL + realtimePath)
	if err != nil {
		return nil, models.NewProviderError("realtime subscribe", err)
	}
	vals := url.Values{}
	vals.Set("table", table)
	vals.Set("event", "INSERT")
	if q != nil {
		if expr := q.FilterExpr(); expr != "" {
			vals.Set("filter", expr)
		}
	}
	u.RawQuery = vals.Encode()

	ctx, cancel := context.WithCancel(context.Background())
	go c.streamChanges(ctx, u.String(), table, fn)
	return &realtimeSubscription{cancel: cancel}, nil
}

func (c *Client) streamChanges(ctx context.Context, url, table string, fn func(Change)) {
	for {
		if err := c.readStream(ctx, url, table, fn); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Debug("realtime stream interrupted, reconnecting",
				"table", table, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(realtimeReconnectDelay):
		}
	}
}

func (c *Client) readStream(ctx context.Context, url, table string, fn func(Change)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())

	resp, err := c.streamc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.NewProviderError("realtime stream", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data:"):])
		if len(data) == 0 || strings.EqualFold(string(data), "keepalive") {
			continue
		}
		payload := make(json.RawMessage, len(data))
		copy(payload, data)
		fn(Change{Table: table, Payload: payload})
	}
	return scanner.Err()
}
