package globalcampus

import "context"

// Start begins listening for session changes and resolves the initial auth
// state. It returns once the state is known or the resolve deadline passes;
// a late resolution still lands in the background.
func (g *GlobalCampus) Start(ctx context.Context) {
	g.Auth.Listen()
	g.Auth.Resolve(ctx)
	g.log.Info("auth state resolved", "authenticated", g.Auth.IsAuthenticated())
}

// Close releases the provider client and all auth subscribers.
func (g *GlobalCampus) Close() {
	g.Auth.Close()
	g.client.Close()
}
