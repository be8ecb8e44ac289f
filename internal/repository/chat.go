package repository

import (
	"context"
	"errors"

	"rewear/internal/cache"
	"rewear/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for chat threads and messages.
type ChatRepository interface {
	GetOrCreate(ctx context.Context, itemID, sellerID, buyerID uint) (*models.Chat, error)
	GetByID(ctx context.Context, id uint) (*models.Chat, error)
	ListForUser(ctx context.Context, userID uint) ([]*models.Chat, error)
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessages(ctx context.Context, chatID uint, limit, offset int) ([]*models.ChatMessage, error)
	MarkAsRead(ctx context.Context, chatID, userID uint) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetOrCreate returns the thread for the (item, seller, buyer) triple,
// creating it on first contact. The unique index on the triple makes the
// create race-safe: a concurrent insert loses and falls through to the
// existing row.
func (r *chatRepository) GetOrCreate(ctx context.Context, itemID, sellerID, buyerID uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND seller_id = ? AND buyer_id = ?", itemID, sellerID, buyerID).
		First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	chat = models.Chat{ItemID: itemID, SellerID: sellerID, BuyerID: buyerID}
	if createErr := r.db.WithContext(ctx).Create(&chat).Error; createErr != nil {
		if isUniqueConstraintError(createErr) {
			if err := r.db.WithContext(ctx).
				Where("item_id = ? AND seller_id = ? AND buyer_id = ?", itemID, sellerID, buyerID).
				First(&chat).Error; err != nil {
				return nil, models.NewInternalError(err)
			}
			return &chat, nil
		}
		return nil, models.NewInternalError(createErr)
	}
	return &chat, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("Seller").
		Preload("Buyer").
		First(&chat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Chat", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &chat, nil
}

func (r *chatRepository) ListForUser(ctx context.Context, userID uint) ([]*models.Chat, error) {
	var chats []*models.Chat
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Preload("Item").
		Preload("Seller").
		Preload("Buyer").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(1)
		}).
		Order("updated_at DESC").
		Find(&chats).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return chats, nil
}

// CreateMessage appends the message, bumps the thread's updated_at and
// increments the counterparty's unread counter, all in one transaction.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.First(&chat, msg.ChatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Chat", msg.ChatID)
			}
			return models.NewInternalError(err)
		}

		if err := tx.Create(msg).Error; err != nil {
			return models.NewInternalError(err)
		}

		updates := map[string]interface{}{
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}
		switch {
		case msg.SenderID == nil:
			// System messages are unread for both parties.
			updates["buyer_unread"] = gorm.Expr("buyer_unread + 1")
			updates["seller_unread"] = gorm.Expr("seller_unread + 1")
		case *msg.SenderID == chat.BuyerID:
			updates["seller_unread"] = gorm.Expr("seller_unread + 1")
		default:
			updates["buyer_unread"] = gorm.Expr("buyer_unread + 1")
		}

		if err := tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(updates).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateChat(ctx, msg.ChatID)
	return nil
}

// GetMessages returns the latest messages in chronological order. A limit of
// zero or less returns the full history.
func (r *chatRepository) GetMessages(ctx context.Context, chatID uint, limit, offset int) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	q := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Preload("Sender").
		// id breaks created_at ties so the window edge stays stable.
		Order("created_at DESC, id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Fetched DESC to get the latest window, but clients expect oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkAsRead zeroes the unread counter for userID's side of the thread.
func (r *chatRepository) MarkAsRead(ctx context.Context, chatID, userID uint) error {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Chat", chatID)
		}
		return models.NewInternalError(err)
	}

	var column string
	switch userID {
	case chat.BuyerID:
		column = "buyer_unread"
	case chat.SellerID:
		column = "seller_unread"
	default:
		return models.NewForbiddenError("Not a participant in this chat")
	}

	if err := r.db.WithContext(ctx).Model(&models.Chat{}).
		Where("id = ?", chatID).
		UpdateColumn(column, 0).Error; err != nil {
		return models.NewInternalError(err)
	}

	cache.InvalidateChat(ctx, chatID)
	return nil
}
