package provider

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagryu/GlobalCampus/internal/sessioncache"
)

// changeRecorder collects delivered changes for assertions.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) record(ch Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestOnInsertDeliversChanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, realtimePath, r.URL.Path)
		require.Equal(t, "messages", r.URL.Query().Get("table"))
		require.Equal(t, "INSERT", r.URL.Query().Get("event"))
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "data: keepalive\n\n")
		fmt.Fprint(w, "data: {\"id\":\"m-1\"}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"m-2\"}\n\n")
		fl.Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	cache := sessioncache.NewInMemory(testLogger())
	c := NewClient(testLogger(), srv.URL, "anon-key", cache)
	t.Cleanup(c.Close)

	rec := &changeRecorder{}
	sub, err := c.OnInsert("messages", nil, rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Eventually(t, func() bool { return rec.count() == 2 },
		2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "messages", rec.changes[0].Table)
	assert.JSONEq(t, `{"id":"m-1"}`, string(rec.changes[0].Payload))
	assert.JSONEq(t, `{"id":"m-2"}`, string(rec.changes[1].Payload))
}

// A subscription must outlive the budget of the one-shot client: the stream
// rides its own connection, so a healthy feed keeps delivering long after the
// point where a single auth or REST call would have been cut off.
func TestStreamOutlivesOneShotTimeout(t *testing.T) {
	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connections.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			fmt.Fprintf(w, "data: {\"seq\":%d}\n\n", i)
			fl.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(150 * time.Millisecond):
			}
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	cache := sessioncache.NewInMemory(testLogger())
	c := NewClient(testLogger(), srv.URL, "anon-key", cache,
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	t.Cleanup(c.Close)

	rec := &changeRecorder{}
	sub, err := c.OnInsert("messages", nil, rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// events 1 through 3 land well past the 100ms one-shot budget
	assert.Eventually(t, func() bool { return rec.count() == 4 },
		3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), connections.Load(),
		"stream should hold one connection open, not reconnect")
}

func TestUnsubscribeStopsStream(t *testing.T) {
	streaming := make(chan struct{})
	var closeOnce sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"m-1\"}\n\n")
		w.(http.Flusher).Flush()
		closeOnce.Do(func() { close(streaming) })
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	cache := sessioncache.NewInMemory(testLogger())
	c := NewClient(testLogger(), srv.URL, "anon-key", cache)
	t.Cleanup(c.Close)

	rec := &changeRecorder{}
	sub, err := c.OnInsert("messages", nil, rec.record)
	require.NoError(t, err)

	select {
	case <-streaming:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never connected")
	}
	sub.Unsubscribe()

	assert.Eventually(t, func() bool { return rec.count() >= 1 },
		2*time.Second, 10*time.Millisecond)
}
