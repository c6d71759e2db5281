// Package community provides the data services behind the campus features:
// the discussion board, direct-message chat, events, job postings, the user
// directory, and content reports. Every service reads and writes through the
// hosted store; row-level security server-side decides visibility, the
// services here only shape queries and decorate results.
package community

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// errNoRowReturned means an insert or update the store accepted came back
// without its representation.
var errNoRowReturned = errors.New("store returned no row")

// Store is the slice of the hosted store's table API the services consume.
// provider.Client implements it; tests use a fake.
type Store interface {
	Select(ctx context.Context, q *provider.Query, dest any) error
	Insert(ctx context.Context, table string, payload, dest any) error
	Update(ctx context.Context, q *provider.Query, payload, dest any) error
	Delete(ctx context.Context, q *provider.Query) error
}

// Services bundles all community data services over one store.
type Services struct {
	Posts   *PostService
	Chat    *ChatService
	Events  *EventService
	Jobs    *JobService
	Users   *UserService
	Reports *ReportService
}

// New wires the services. realtime may be nil; chat then works without live
// message delivery.
func New(logger *slog.Logger, store Store, realtime provider.Realtime) *Services {
	return &Services{
		Posts:   &PostService{log: logger, store: store},
		Chat:    &ChatService{log: logger, store: store, realtime: realtime},
		Events:  &EventService{log: logger, store: store},
		Jobs:    &JobService{log: logger, store: store},
		Users:   NewUserService(logger, store),
		Reports: &ReportService{log: logger, store: store},
	}
}
