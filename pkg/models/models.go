package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the application-level user record, keyed by the session's
// subject identifier. It exists only once sign-up has written the row; a
// session without a profile is a valid transient state.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Nationality  *string   `json:"nationality,omitempty"`
	School       *string   `json:"school,omitempty"`
	Major        *string   `json:"major,omitempty"`
	Location     *string   `json:"location,omitempty"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields for a partial update.
// Nil fields are left untouched by the store.
type ProfileUpdate struct {
	Name         *string `json:"name,omitempty"`
	Nationality  *string `json:"nationality,omitempty"`
	School       *string `json:"school,omitempty"`
	Major        *string `json:"major,omitempty"`
	Location     *string `json:"location,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	Bio          *string `json:"bio,omitempty"`
}

// PostCategory classifies a discussion board post.
type PostCategory string

const (
	CategoryGeneral     PostCategory = "general"
	CategoryQuestion    PostCategory = "question"
	CategoryEvent       PostCategory = "event"
	CategoryMarketplace PostCategory = "marketplace"
	CategoryStudy       PostCategory = "study"
	CategoryHousing     PostCategory = "housing"
	CategoryJob         PostCategory = "job"
)

// IsValid reports whether the category is one of the known board categories.
func (c PostCategory) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryQuestion, CategoryEvent, CategoryMarketplace,
		CategoryStudy, CategoryHousing, CategoryJob:
		return true
	}
	return false
}

type Post struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	Category     PostCategory `json:"category"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	Images       []string     `json:"images,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Author       *Profile     `json:"-"`
	Comments     []Comment    `json:"-"`
	CommentCount int          `json:"-"`
}

type CreatePostParams struct {
	Category PostCategory `json:"category"`
	Title    string       `json:"title"`
	Content  string       `json:"content"`
	Images   []string     `json:"images,omitempty"`
}

type UpdatePostParams struct {
	Category *PostCategory `json:"category,omitempty"`
	Title    *string       `json:"title,omitempty"`
	Content  *string       `json:"content,omitempty"`
	Images   []string      `json:"images,omitempty"`
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    *Profile  `json:"-"`
}

// ChatRoom is a direct-message room between exactly two users. UserIDs holds
// both participants; the store has no separate membership table.
type ChatRoom struct {
	ID          uuid.UUID   `json:"id"`
	UserIDs     []uuid.UUID `json:"user_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	OtherUser   *Profile    `json:"-"`
	LastMessage *Message    `json:"-"`
}

type Message struct {
	ID         uuid.UUID `json:"id"`
	ChatRoomID uuid.UUID `json:"chatroom_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	OrganizerID uuid.UUID `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Organizer   *Profile  `json:"-"`
}

type CreateEventParams struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
}

// JobType classifies a job posting.
type JobType string

const (
	JobFullTime   JobType = "full-time"
	JobPartTime   JobType = "part-time"
	JobInternship JobType = "internship"
	JobContract   JobType = "contract"
)

type Job struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	CompanyName    string    `json:"company_name"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	JobType        JobType   `json:"job_type"`
	ApplicationURL *string   `json:"application_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Poster         *Profile  `json:"-"`
}

type CreateJobParams struct {
	Title          string  `json:"title"`
	CompanyName    string  `json:"company_name"`
	Description    string  `json:"description"`
	Location       string  `json:"location"`
	JobType        JobType `json:"job_type"`
	ApplicationURL *string `json:"application_url,omitempty"`
}

// ReportTarget names the kind of content a report is filed against.
type ReportTarget string

const (
	ReportTargetPost    ReportTarget = "post"
	ReportTargetComment ReportTarget = "comment"
	ReportTargetUser    ReportTarget = "user"
)

type Report struct {
	ID         uuid.UUID    `json:"id"`
	TargetType ReportTarget `json:"target_type"`
	TargetID   uuid.UUID    `json:"target_id"`
	ReporterID uuid.UUID    `json:"reporter_id"`
	Reason     string       `json:"reason"`
	CreatedAt  time.Time    `json:"created_at"`
}
