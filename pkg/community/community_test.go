package community

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/tagryu/GlobalCampus/pkg/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore implements Store with overridable function fields.
type fakeStore struct {
	selectFunc func(ctx context.Context, q *provider.Query, dest any) error
	insertFunc func(ctx context.Context, table string, payload, dest any) error
	updateFunc func(ctx context.Context, q *provider.Query, payload, dest any) error
	deleteFunc func(ctx context.Context, q *provider.Query) error
}

func (f *fakeStore) Select(ctx context.Context, q *provider.Query, dest any) error {
	if f.selectFunc != nil {
		return f.selectFunc(ctx, q, dest)
	}
	return nil
}

func (f *fakeStore) Insert(ctx context.Context, table string, payload, dest any) error {
	if f.insertFunc != nil {
		return f.insertFunc(ctx, table, payload, dest)
	}
	return nil
}

func (f *fakeStore) Update(ctx context.Context, q *provider.Query, payload, dest any) error {
	if f.updateFunc != nil {
		return f.updateFunc(ctx, q, payload, dest)
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, q *provider.Query) error {
	if f.deleteFunc != nil {
		return f.deleteFunc(ctx, q)
	}
	return nil
}

// putRows copies rows into dest the way the store's JSON decoding would.
func putRows(t *testing.T, dest, rows any) {
	t.Helper()
	b, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		t.Fatalf("unmarshal rows: %v", err)
	}
}
