package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tagryu/GlobalCampus/pkg/gate"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

// subjectFrom returns the authorized subject for a protected request. The
// gate guarantees a session exists by the time a handler runs.
func subjectFrom(r *http.Request) uuid.UUID {
	if state, ok := gate.AuthStateFromContext(r.Context()); ok && state.Session != nil {
		return state.Session.SubjectID
	}
	return uuid.Nil
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.app.Auth.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "login.html", map[string]any{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	err := s.app.Auth.SignIn(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		s.render(w, "login.html", map[string]any{
			"Error": s.displayText(err),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if s.app.Auth.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "signup.html", map[string]any{})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	err := s.app.Auth.SignUp(r.Context(), r.FormValue("email"), r.FormValue("password"), r.FormValue("name"))
	if err != nil {
		s.render(w, "signup.html", map[string]any{
			"Error": s.displayText(err),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Auth.SignOut(r.Context()); err != nil {
		s.log.Error("sign out failed", "err", err)
	}
	http.Redirect(w, r, s.app.Gate.LoginPath(), http.StatusSeeOther)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	state, _ := gate.AuthStateFromContext(r.Context())
	s.render(w, "home.html", map[string]any{"State": state})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	var category *models.PostCategory
	if v := r.URL.Query().Get("category"); v != "" {
		c := models.PostCategory(v)
		if !c.IsValid() {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}
		category = &c
	}

	posts, err := s.app.Community.Posts.List(r.Context(), category)
	if err != nil {
		http.Error(w, "failed to load posts", http.StatusInternalServerError)
		return
	}
	s.render(w, "posts.html", map[string]any{"Posts": posts})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	post, err := s.app.Community.Posts.Create(r.Context(), subjectFrom(r), models.CreatePostParams{
		Category: models.PostCategory(r.FormValue("category")),
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/posts/"+post.ID.String(), http.StatusSeeOther)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	post, err := s.app.Community.Posts.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load post", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, "post.html", map[string]any{"Post": post})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	if _, err := s.app.Community.Posts.AddComment(r.Context(), subjectFrom(r), postID, r.FormValue("content")); err != nil {
		s.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/posts/"+postID.String(), http.StatusSeeOther)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.app.Community.Events.Upcoming(r.Context())
	if err != nil {
		http.Error(w, "failed to load events", http.StatusInternalServerError)
		return
	}
	s.render(w, "events.html", map[string]any{"Events": events})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", r.FormValue("date"))
	if err != nil {
		http.Error(w, "bad date", http.StatusBadRequest)
		return
	}

	_, err = s.app.Community.Events.Create(r.Context(), subjectFrom(r), models.CreateEventParams{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Date:        date,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/events", http.StatusSeeOther)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.app.Community.Jobs.List(r.Context(), models.JobType(r.URL.Query().Get("type")))
	if err != nil {
		http.Error(w, "failed to load jobs", http.StatusInternalServerError)
		return
	}
	s.render(w, "jobs.html", map[string]any{"Jobs": jobs})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	job, err := s.app.Community.Jobs.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, "job.html", map[string]any{"Job": job})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	var appURL *string
	if v := r.FormValue("application_url"); v != "" {
		appURL = &v
	}

	job, err := s.app.Community.Jobs.Create(r.Context(), subjectFrom(r), models.CreateJobParams{
		Title:          r.FormValue("title"),
		CompanyName:    r.FormValue("company_name"),
		Description:    r.FormValue("description"),
		Location:       r.FormValue("location"),
		JobType:        models.JobType(r.FormValue("job_type")),
		ApplicationURL: appURL,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/jobs/"+job.ID.String(), http.StatusSeeOther)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.app.Community.Users.List(r.Context(), subjectFrom(r))
	if err != nil {
		http.Error(w, "failed to load users", http.StatusInternalServerError)
		return
	}
	s.render(w, "users.html", map[string]any{"Users": users})
}

func (s *Server) handleChatRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.app.Community.Chat.Rooms(r.Context(), subjectFrom(r))
	if err != nil {
		http.Error(w, "failed to load chats", http.StatusInternalServerError)
		return
	}
	s.render(w, "chats.html", map[string]any{"Rooms": rooms})
}

func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	otherID, err := uuid.Parse(mux.Vars(r)["userID"])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	room, err := s.app.Community.Chat.Open(r.Context(), subjectFrom(r), otherID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/chat/"+room.ID.String(), http.StatusSeeOther)
}

func (s *Server) handleChatRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(mux.Vars(r)["roomID"])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	messages, err := s.app.Community.Chat.Messages(r.Context(), roomID)
	if err != nil {
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	s.render(w, "chat.html", map[string]any{
		"RoomID":   roomID,
		"Messages": messages,
		"Self":     subjectFrom(r),
	})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(mux.Vars(r)["roomID"])
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "unknown room"})
		return
	}

	messages, err := s.app.Community.Chat.Messages(r.Context(), roomID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(mux.Vars(r)["roomID"])
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "unknown room"})
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	msg, err := s.app.Community.Chat.Send(r.Context(), roomID, subjectFrom(r), body.Content)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetType models.ReportTarget `json:"target_type"`
		TargetID   uuid.UUID           `json:"target_id"`
		Reason     string              `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	report, err := s.app.Community.Reports.Create(r.Context(), subjectFrom(r), body.TargetType, body.TargetID, body.Reason)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	state, _ := gate.AuthStateFromContext(r.Context())
	s.render(w, "profile.html", map[string]any{"Profile": state.Profile})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	optional := func(field string) *string {
		if v := r.FormValue(field); v != "" {
			return &v
		}
		return nil
	}

	_, err := s.app.Auth.UpdateProfile(r.Context(), models.ProfileUpdate{
		Name:        optional("name"),
		Nationality: optional("nationality"),
		School:      optional("school"),
		Major:       optional("major"),
		Location:    optional("location"),
		Bio:         optional("bio"),
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
