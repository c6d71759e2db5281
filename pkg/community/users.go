package community

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// UserService is the member directory. Point lookups go through a
// singleflight group because profile cards fan out hard when lists render:
// one room list can ask for the same author a dozen times at once.
type UserService struct {
	log   *slog.Logger
	store Store
	group singleflight.Group
}

// NewUserService builds the directory service.
func NewUserService(logger *slog.Logger, store Store) *UserService {
	return &UserService{log: logger, store: store}
}

// List returns every member except the caller, newest first.
func (s *UserService) List(ctx context.Context, selfID uuid.UUID) ([]models.Profile, error) {
	var users []models.Profile
	q := provider.NewQuery("users").
		Neq("id", selfID.String()).
		Order("created_at", false)
	if err := s.store.Select(ctx, q, &users); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "listing users", err)
	}
	return users, nil
}

// Get returns one member's profile, or (nil, nil) when absent. Concurrent
// lookups for the same member share a single store round trip.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	v, err, _ := s.group.Do(id.String(), func() (any, error) {
		var users []models.Profile
		q := provider.NewQuery("users").Eq("id", id.String()).Limit(1)
		if err := s.store.Select(ctx, q, &users); err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return (*models.Profile)(nil), nil
		}
		return &users[0], nil
	})
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "fetching user", err, "user_id", id)
	}
	return v.(*models.Profile), nil
}
