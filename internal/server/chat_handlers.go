package server

import (
	"context"
	"encoding/json"
	"log"

	"rewear/internal/models"
	"rewear/internal/notifications"
	"rewear/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// StartChat handles POST /api/chats. Opens (or returns) the thread between
// the caller and the listing's uploader.
func (s *Server) StartChat(c *fiber.Ctx) error {
	var req struct {
		ItemID uint `json:"item_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ItemID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Field 'item_id' is required"))
	}

	chat, err := s.chatService.StartChat(c.Context(), req.ItemID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

// GetMyChats handles GET /api/chats (most recently active first)
func (s *Server) GetMyChats(c *fiber.Ctx) error {
	chats, err := s.chatService.GetChatsForUser(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(chats)
}

// GetChat handles GET /api/chats/:id
func (s *Server) GetChat(c *fiber.Ctx) error {
	chatID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	chat, err := s.chatService.GetChatForUser(c.Context(), chatID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(chat)
}

// GetChatMessages handles GET /api/chats/:id/messages. Without a limit the
// full history comes back in chronological order.
func (s *Server) GetChatMessages(c *fiber.Ctx) error {
	chatID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	messages, err := s.chatService.GetMessagesForUser(c.Context(), chatID, currentUserID(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// SendChatMessage handles POST /api/chats/:id/messages
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	chatID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	message, chat, err := s.chatService.SendMessage(c.Context(), service.SendMessageInput{
		UserID:  userID,
		ChatID:  chatID,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishThreadEvent(c.Context(), chat.ID, notifications.ThreadEvent{
		EventID: uuid.NewString(),
		Type:    "message",
		UserID:  userID,
		Payload: message,
	})

	return c.Status(fiber.StatusCreated).JSON(message)
}

// MarkChatRead handles POST /api/chats/:id/read
func (s *Server) MarkChatRead(c *fiber.Ctx) error {
	chatID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	if err := s.chatService.MarkAsRead(c.Context(), chatID, userID); err != nil {
		return respondError(c, err)
	}

	// Read receipt for the counterparty's open clients.
	s.publishThreadEvent(c.Context(), chatID, notifications.ThreadEvent{
		EventID: uuid.NewString(),
		Type:    "read",
		UserID:  userID,
		Payload: fiber.Map{"chat_id": chatID, "user_id": userID},
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// publishThreadEvent fans a chat event out to this instance's subscribers and
// then into the thread's Redis channel for the other instances. The event ID
// window in the hub drops our own Redis echo, so a subscriber sees each event
// once whether or not Redis is configured. Best-effort: the write already
// committed, clients re-sync over HTTP on reconnect.
func (s *Server) publishThreadEvent(ctx context.Context, threadID uint, event notifications.ThreadEvent) {
	event.ThreadID = threadID
	s.hub.BroadcastToThread(threadID, event)

	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal thread event error: %v", err)
		return
	}
	if perr := s.notifier.PublishThreadEvent(ctx, threadID, string(payload)); perr != nil {
		log.Printf("publish thread event error: %v", perr)
	}
}
