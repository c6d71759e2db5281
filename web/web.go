// Package web serves the HTML surface of the application: auth pages, the
// community boards, chat, and the member directory. Protected routes go
// through the gate, so nothing renders before auth has settled.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	globalcampus "github.com/tagryu/GlobalCampus"
	"github.com/tagryu/GlobalCampus/pkg/gate"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server holds the handlers and their dependencies.
type Server struct {
	log  *slog.Logger
	app  *globalcampus.GlobalCampus
	tmpl *template.Template
}

// New builds the web server over an assembled application core.
func New(logger *slog.Logger, app *globalcampus.GlobalCampus) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{log: logger, app: app, tmpl: tmpl}, nil
}

// Routes registers every route on the router. Auth pages are open; the rest
// go through the gate.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/signup", s.handleSignupPage).Methods(http.MethodGet)
	r.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	protect := func(h http.HandlerFunc) http.Handler {
		return s.app.Gate.Protect(gate.SessionOnly, h)
	}

	r.Handle("/", protect(s.handleHome)).Methods(http.MethodGet)

	r.Handle("/posts", protect(s.handlePosts)).Methods(http.MethodGet)
	r.Handle("/posts", protect(s.handleCreatePost)).Methods(http.MethodPost)
	r.Handle("/posts/{id}", protect(s.handlePost)).Methods(http.MethodGet)
	r.Handle("/posts/{id}/comments", protect(s.handleAddComment)).Methods(http.MethodPost)

	r.Handle("/events", protect(s.handleEvents)).Methods(http.MethodGet)
	r.Handle("/events", protect(s.handleCreateEvent)).Methods(http.MethodPost)
	r.Handle("/jobs", protect(s.handleJobs)).Methods(http.MethodGet)
	r.Handle("/jobs", protect(s.handleCreateJob)).Methods(http.MethodPost)
	r.Handle("/jobs/{id}", protect(s.handleJob)).Methods(http.MethodGet)
	r.Handle("/users", protect(s.handleUsers)).Methods(http.MethodGet)

	r.Handle("/chat", protect(s.handleChatRooms)).Methods(http.MethodGet)
	r.Handle("/chat/{userID}/open", protect(s.handleOpenChat)).Methods(http.MethodPost)
	r.Handle("/chat/{roomID}", protect(s.handleChatRoom)).Methods(http.MethodGet)
	r.Handle("/api/chat/{roomID}/messages", protect(s.handleListMessages)).Methods(http.MethodGet)
	r.Handle("/api/chat/{roomID}/messages", protect(s.handleSendMessage)).Methods(http.MethodPost)

	r.Handle("/api/reports", protect(s.handleCreateReport)).Methods(http.MethodPost)

	// the profile page needs the row itself, so it waits out the
	// post-sign-up window instead of rendering half a page
	r.Handle("/profile", s.app.Gate.Protect(gate.ProfileRequired, http.HandlerFunc(s.handleProfile))).Methods(http.MethodGet)
	r.Handle("/profile", s.app.Gate.Protect(gate.ProfileRequired, http.HandlerFunc(s.handleUpdateProfile))).Methods(http.MethodPost)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template render failed", "template", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
