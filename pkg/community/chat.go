package community

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// ChatService is one-to-one messaging. Rooms are found or created on first
// contact; there is at most one room per user pair.
type ChatService struct {
	log      *slog.Logger
	store    Store
	realtime provider.Realtime
}

// Rooms lists the user's chat rooms, most recently active first, each
// decorated with the other participant and the latest message.
func (s *ChatService) Rooms(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	defer logutil.NewTimingLogger(s.log, time.Now(), "list chat rooms")()

	var rooms []models.ChatRoom
	q := provider.NewQuery("chatrooms").
		Contains("user_ids", userID.String()).
		Order("updated_at", false)
	if err := s.store.Select(ctx, q, &rooms); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "listing chat rooms", err)
	}

	for i := range rooms {
		if err := s.decorate(ctx, &rooms[i], userID); err != nil {
			// a room with a missing decoration still lists
			s.log.Warn("failed to decorate chat room", "room_id", rooms[i].ID, "err", err)
		}
	}
	return rooms, nil
}

func (s *ChatService) decorate(ctx context.Context, room *models.ChatRoom, selfID uuid.UUID) error {
	for _, id := range room.UserIDs {
		if id == selfID {
			continue
		}
		var users []models.Profile
		uq := provider.NewQuery("users").Eq("id", id.String()).Limit(1)
		if err := s.store.Select(ctx, uq, &users); err != nil {
			return err
		}
		if len(users) > 0 {
			room.OtherUser = &users[0]
		}
		break
	}

	var msgs []models.Message
	mq := provider.NewQuery("messages").
		Eq("chatroom_id", room.ID.String()).
		Order("created_at", false).
		Limit(1)
	if err := s.store.Select(ctx, mq, &msgs); err != nil {
		return err
	}
	if len(msgs) > 0 {
		room.LastMessage = &msgs[0]
	}
	return nil
}

// Open returns the room between the two users, creating it on first
// contact. The containment filter matches the pair in either order, so
// both sides converge on the same room.
func (s *ChatService) Open(ctx context.Context, userID, otherID uuid.UUID) (*models.ChatRoom, error) {
	if userID == otherID {
		return nil, models.NewValidationError("cannot open a chat with yourself")
	}

	var rooms []models.ChatRoom
	q := provider.NewQuery("chatrooms").
		Contains("user_ids", userID.String(), otherID.String()).
		Limit(1)
	if err := s.store.Select(ctx, q, &rooms); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "finding chat room", err)
	}
	if len(rooms) > 0 {
		return &rooms[0], nil
	}

	var created []models.ChatRoom
	err := s.store.Insert(ctx, "chatrooms", map[string]any{
		"user_ids": []string{userID.String(), otherID.String()},
	}, &created)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "creating chat room", err)
	}
	if len(created) == 0 {
		return nil, models.NewStoreError("chatrooms", errNoRowReturned)
	}

	s.log.Info("chat room created", "room_id", created[0].ID)
	return &created[0], nil
}

// Messages returns a room's messages oldest first.
func (s *ChatService) Messages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	q := provider.NewQuery("messages").
		Eq("chatroom_id", roomID.String()).
		Order("created_at", true)
	if err := s.store.Select(ctx, q, &msgs); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "listing messages", err, "room_id", roomID)
	}
	return msgs, nil
}

// Send appends a message and bumps the room's activity timestamp so the room
// list stays sorted by latest traffic.
func (s *ChatService) Send(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error) {
	if content == "" {
		return nil, models.NewValidationError("message content is required")
	}

	var rows []models.Message
	err := s.store.Insert(ctx, "messages", map[string]any{
		"chatroom_id": roomID.String(),
		"sender_id":   senderID.String(),
		"content":     content,
	}, &rows)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "sending message", err, "room_id", roomID)
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("messages", errNoRowReturned)
	}

	bump := provider.NewQuery("chatrooms").Eq("id", roomID.String())
	if err := s.store.Update(ctx, bump, map[string]any{
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}, nil); err != nil {
		s.log.Warn("failed to bump chat room activity", "room_id", roomID, "err", err)
	}

	return &rows[0], nil
}

// SubscribeNewMessages delivers every message inserted into the room, as it
// lands. The returned subscription must be released when the room closes.
func (s *ChatService) SubscribeNewMessages(roomID uuid.UUID, fn func(models.Message)) (provider.Subscription, error) {
	if s.realtime == nil {
		return nil, models.NewValidationError("realtime is not configured")
	}

	q := provider.NewQuery("messages").Eq("chatroom_id", roomID.String())
	return s.realtime.OnInsert("messages", q, func(change provider.Change) {
		var msg models.Message
		if err := json.Unmarshal(change.Payload, &msg); err != nil {
			s.log.Warn("dropping malformed message change", "room_id", roomID, "err", err)
			return
		}
		fn(msg)
	})
}
