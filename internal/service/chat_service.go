package service

import (
	"context"
	"strings"

	"rewear/internal/models"
	"rewear/internal/repository"
)

// ChatService provides per-listing conversation business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	itemRepo repository.ItemRepository
	userRepo repository.UserRepository
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	UserID  uint
	ChatID  uint
	Content string
}

// NewChatService returns a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
	}
}

// StartChat opens (or returns) the thread between the caller and the
// listing's uploader. Threads exist per (item, seller, buyer) triple, so
// repeated calls are idempotent.
func (s *ChatService) StartChat(ctx context.Context, itemID, buyerID uint) (*models.Chat, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UploaderID == buyerID {
		return nil, models.NewValidationError("Cannot start a chat about your own listing")
	}
	switch item.Status {
	case models.ItemStatusAvailable, models.ItemStatusInSwap:
		// Open for conversation.
	default:
		return nil, models.NewConflictError("Listing is not open for conversation")
	}

	chat, err := s.chatRepo.GetOrCreate(ctx, itemID, item.UploaderID, buyerID)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.GetByID(ctx, chat.ID)
}

// GetChatsForUser returns all threads the user participates in, most
// recently active first.
func (s *ChatService) GetChatsForUser(ctx context.Context, userID uint) ([]*models.Chat, error) {
	return s.chatRepo.ListForUser(ctx, userID)
}

// GetChatForUser returns the thread if the user is a participant.
func (s *ChatService) GetChatForUser(ctx context.Context, chatID, userID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParty(userID) {
		return nil, models.NewForbiddenError("You are not a participant in this chat")
	}
	return chat, nil
}

const maxMessageContentLen = 10000 // 10K characters

// SendMessage appends a message to a thread the sender participates in.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.ChatMessage, *models.Chat, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, nil, models.NewValidationError("Message content is required")
	}
	if len(content) > maxMessageContentLen {
		return nil, nil, models.NewValidationError("Message content too long (max 10000 characters)")
	}

	chat, err := s.chatRepo.GetByID(ctx, in.ChatID)
	if err != nil {
		return nil, nil, err
	}
	if !chat.HasParty(in.UserID) {
		return nil, nil, models.NewForbiddenError("You are not a participant in this chat")
	}

	senderID := in.UserID
	message := &models.ChatMessage{
		ChatID:   in.ChatID,
		SenderID: &senderID,
		Message:  content,
		Type:     models.MessageTypeText,
	}
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, nil, err
	}

	if sender, err := s.userRepo.GetByID(ctx, in.UserID); err == nil {
		message.Sender = sender
	}

	return message, chat, nil
}

// SendSystemMessage appends a platform-generated notice to a thread. The
// message carries no sender and counts as unread for both parties.
func (s *ChatService) SendSystemMessage(ctx context.Context, chatID uint, content string) (*models.ChatMessage, error) {
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}

	message := &models.ChatMessage{
		ChatID:  chatID,
		Message: content,
		Type:    models.MessageTypeSystem,
	}
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// AnnounceToThread posts a system notice on the thread for the given triple,
// creating the thread on first use. Used by the swap lifecycle to open the
// meetup conversation and record milestones.
func (s *ChatService) AnnounceToThread(ctx context.Context, itemID, sellerID, buyerID uint, content string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetOrCreate(ctx, itemID, sellerID, buyerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.SendSystemMessage(ctx, chat.ID, content); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetMessagesForUser returns a thread's messages in chronological order
// (participant check applied). A limit of zero or less returns full history.
func (s *ChatService) GetMessagesForUser(ctx context.Context, chatID, userID uint, limit, offset int) ([]*models.ChatMessage, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParty(userID) {
		return nil, models.NewForbiddenError("You are not a participant in this chat")
	}
	return s.chatRepo.GetMessages(ctx, chatID, limit, offset)
}

// MarkAsRead zeroes the caller's unread counter on the thread.
func (s *ChatService) MarkAsRead(ctx context.Context, chatID, userID uint) error {
	return s.chatRepo.MarkAsRead(ctx, chatID, userID)
}
