package sessioncache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tagryu/GlobalCampus/internal/logutil"
)

type inMemoryStore struct {
	log *slog.Logger

	mu  sync.Mutex
	rec *Record
}

// NewInMemory returns a Store that holds the session for the process
// lifetime only. Used in tests and for explicitly ephemeral runs.
func NewInMemory(logger *slog.Logger) Store {
	return &inMemoryStore{log: logutil.WithFields(logger, "cache", "memory")}
}

func (s *inMemoryStore) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cp := rec
	s.rec = &cp
	s.log.Debug("cached session", "subject_id", rec.SubjectID.String())
	return nil
}

func (s *inMemoryStore) Load(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *inMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.rec = nil
	s.log.Debug("cleared cached session")
	return nil
}
