package sessioncache

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

type sqliteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSqlite returns a Store backed by the given SQLite database. The schema
// is created by database.RunSqliteMigrations; the cache is a single-row
// table so Save is an upsert against a fixed key.
func NewSqlite(logger *slog.Logger, db *sql.DB) Store {
	return &sqliteStore{db: db, log: logutil.WithFields(logger, "cache", "sqlite")}
}

func (s *sqliteStore) Save(ctx context.Context, rec Record) error {
	defer logutil.NewTimingLogger(s.log, time.Now(), "executed sql query", "method", "Save")()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_cache (id, subject_id, access_token, refresh_token, token_type, expires_at, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject_id = excluded.subject_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			saved_at = excluded.saved_at`,
		rec.SubjectID.String(), rec.AccessToken, rec.RefreshToken, rec.TokenType,
		rec.ExpiresAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return logutil.LogAndWrapErr(s.log, "failed to cache session",
			models.NewStoreError("session_cache", err))
	}
	return nil
}

func (s *sqliteStore) Load(ctx context.Context) (*Record, error) {
	defer logutil.NewTimingLogger(s.log, time.Now(), "executed sql query", "method", "Load")()

	row := s.db.QueryRowContext(ctx, `
		SELECT subject_id, access_token, refresh_token, token_type, expires_at, saved_at
		FROM session_cache WHERE id = 1`)

	var subjectID string
	var rec Record
	err := row.Scan(&subjectID, &rec.AccessToken, &rec.RefreshToken, &rec.TokenType, &rec.ExpiresAt, &rec.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "failed to load cached session",
			models.NewStoreError("session_cache", err))
	}

	rec.SubjectID, err = uuid.Parse(subjectID)
	if err != nil {
		// a corrupt row is as good as no row; drop it rather than wedging startup
		s.log.Warn("discarding corrupt session cache row", "subject_id", subjectID, "err", err)
		_ = s.Clear(ctx)
		return nil, nil
	}
	return &rec, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	defer logutil.NewTimingLogger(s.log, time.Now(), "executed sql query", "method", "Clear")()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_cache WHERE id = 1`); err != nil {
		return logutil.LogAndWrapErr(s.log, "failed to clear cached session",
			models.NewStoreError("session_cache", err))
	}
	return nil
}
