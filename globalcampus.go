// Package globalcampus wires the whole application together: the provider
// client, the auth manager, the render gate, and the community data
// services. Hosts construct it once with New, call Start, and mount the
// pieces they need.
package globalcampus

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/tagryu/GlobalCampus/cfg"
	"github.com/tagryu/GlobalCampus/database"
	"github.com/tagryu/GlobalCampus/internal/sessioncache"
	"github.com/tagryu/GlobalCampus/pkg/auth"
	"github.com/tagryu/GlobalCampus/pkg/community"
	"github.com/tagryu/GlobalCampus/pkg/gate"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// GlobalCampus is the assembled application core.
type GlobalCampus struct {
	Auth      *auth.Manager
	Gate      *gate.Gate
	Community *community.Services

	log        *slog.Logger
	client     *provider.Client
	clientOpts []provider.ClientOption
	cache      sessioncache.Store
	cacheErr   error
}

// Option customizes construction.
type Option func(*GlobalCampus)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *GlobalCampus) {
		if logger != nil {
			g.log = logger
		}
	}
}

// WithSqliteSessionCache persists sessions in the given database so they
// survive restarts. Runs migrations on the handle.
func WithSqliteSessionCache(db *sql.DB) Option {
	return func(g *GlobalCampus) {
		if err := db.Ping(); err != nil {
			g.cacheErr = fmt.Errorf("pinging session cache database: %w", err)
			return
		}
		if err := database.RunSqliteMigrations(db); err != nil {
			g.cacheErr = fmt.Errorf("migrating session cache database: %w", err)
			return
		}
		g.cache = sessioncache.NewSqlite(g.log, db)
	}
}

// WithInMemorySessionCache keeps sessions in process memory only. This is
// the default.
func WithInMemorySessionCache() Option {
	return func(g *GlobalCampus) {
		g.cache = sessioncache.NewInMemory(g.log)
	}
}

// WithProviderOptions forwards options to the provider client, e.g. a custom
// http.Client pointed at a test server.
func WithProviderOptions(opts ...provider.ClientOption) Option {
	return func(g *GlobalCampus) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}

// New assembles the application from configuration. Call Start before
// serving and Close at shutdown.
func New(config cfg.Config, opts ...Option) (*GlobalCampus, error) {
	g := &GlobalCampus{
		log: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cacheErr != nil {
		return nil, g.cacheErr
	}
	if g.cache == nil {
		g.cache = sessioncache.NewInMemory(g.log)
	}

	g.client = provider.NewClient(g.log, config.Provider.URL, config.Provider.AnonKey, g.cache, g.clientOpts...)
	g.Auth = auth.New(g.log, g.client, g.client,
		auth.WithResolveDeadline(config.Auth.ResolveDeadline))
	g.Gate = gate.New(g.log, g.Auth, gate.Config{
		LoginPath:   config.Auth.LoginPath,
		SettleDelay: config.Auth.SettleDelay,
	})
	g.Community = community.New(g.log, g.client, g.client)

	return g, nil
}

