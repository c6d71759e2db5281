package community

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// EventService is the campus events board.
type EventService struct {
	log   *slog.Logger
	store Store
}

type eventRow struct {
	models.Event
	User *models.Profile `json:"user"`
}

// Upcoming lists events from today onward, soonest first, with organizers
// embedded.
func (s *EventService) Upcoming(ctx context.Context) ([]models.Event, error) {
	today := time.Now().UTC().Format("2006-01-02")
	q := provider.NewQuery("events").
		Columns("*,user:users(*)").
		Gte("date", today).
		Order("date", true)
	return s.list(ctx, q)
}

// Past lists events that already happened, most recent first.
func (s *EventService) Past(ctx context.Context) ([]models.Event, error) {
	today := time.Now().UTC().Format("2006-01-02")
	q := provider.NewQuery("events").
		Columns("*,user:users(*)").
		Lt("date", today).
		Order("date", false)
	return s.list(ctx, q)
}

func (s *EventService) list(ctx context.Context, q *provider.Query) ([]models.Event, error) {
	var rows []eventRow
	if err := s.store.Select(ctx, q, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "listing events", err)
	}

	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		ev := row.Event
		ev.Organizer = row.User
		events = append(events, ev)
	}
	return events, nil
}

// Get returns one event, or (nil, nil) when absent.
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var rows []eventRow
	q := provider.NewQuery("events").
		Columns("*,user:users(*)").
		Eq("id", id.String()).
		Limit(1)
	if err := s.store.Select(ctx, q, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "fetching event", err, "event_id", id)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ev := rows[0].Event
	ev.Organizer = rows[0].User
	return &ev, nil
}

// Create publishes a new event organized by the given user.
func (s *EventService) Create(ctx context.Context, organizerID uuid.UUID, params models.CreateEventParams) (*models.Event, error) {
	if params.Title == "" {
		return nil, models.NewValidationError("event title is required")
	}
	if params.Date.IsZero() {
		return nil, models.NewValidationError("event date is required")
	}

	var rows []models.Event
	err := s.store.Insert(ctx, "events", map[string]any{
		"organizer_id": organizerID.String(),
		"title":        params.Title,
		"description":  params.Description,
		"location":     params.Location,
		"date":         params.Date.UTC().Format(time.RFC3339),
	}, &rows)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "creating event", err)
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("events", errNoRowReturned)
	}

	s.log.Info("event created", "event_id", rows[0].ID)
	return &rows[0], nil
}

// Delete removes the caller's own event.
func (s *EventService) Delete(ctx context.Context, organizerID, eventID uuid.UUID) error {
	q := provider.NewQuery("events").
		Eq("id", eventID.String()).
		Eq("organizer_id", organizerID.String())
	if err := s.store.Delete(ctx, q); err != nil {
		return logutil.LogAndWrapErr(s.log, "deleting event", err, "event_id", eventID)
	}
	return nil
}
