package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"rewear/internal/models"
	"rewear/internal/repository"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type chatFixture struct {
	db     *gorm.DB
	svc    *ChatService
	seller *models.User
	buyer  *models.User
	item   *models.ClothingItem
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := setupTestDB(t)

	seller := &models.User{Name: "Seller", Email: "seller@example.com"}
	buyer := &models.User{Name: "Buyer", Email: "buyer@example.com"}
	db.Create(seller)
	db.Create(buyer)

	item := &models.ClothingItem{
		Title:       "Wool Scarf",
		Description: "Hand-knitted.",
		Category:    models.ItemCategoryAccessories,
		Type:        "unisex",
		Size:        "One size",
		Condition:   models.ItemConditionLikeNew,
		Images:      models.StringList{"https://img.example.com/scarf.jpg"},
		UploaderID:  seller.ID,
		Status:      models.ItemStatusAvailable,
		PointsValue: 20,
	}
	db.Create(item)

	svc := NewChatService(
		repository.NewChatRepository(db),
		repository.NewItemRepository(db),
		repository.NewUserRepository(db),
	)

	return &chatFixture{db: db, svc: svc, seller: seller, buyer: buyer, item: item}
}

func TestChatService_StartChat(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	t.Run("Uploader cannot chat with self", func(t *testing.T) {
		_, err := f.svc.StartChat(ctx, f.item.ID, f.seller.ID)
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("Idempotent per triple", func(t *testing.T) {
		first, err := f.svc.StartChat(ctx, f.item.ID, f.buyer.ID)
		assert.NoError(t, err)
		assert.Equal(t, f.seller.ID, first.SellerID)
		assert.Equal(t, f.buyer.ID, first.BuyerID)

		second, err := f.svc.StartChat(ctx, f.item.ID, f.buyer.ID)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("Redeemed listing closed for new chats", func(t *testing.T) {
		f.db.Model(&models.ClothingItem{}).Where("id = ?", f.item.ID).Update("status", models.ItemStatusRedeemed)
		other := &models.User{Name: "Late", Email: "late@example.com"}
		f.db.Create(other)

		_, err := f.svc.StartChat(ctx, f.item.ID, other.ID)
		assert.Error(t, err)
		assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

		f.db.Model(&models.ClothingItem{}).Where("id = ?", f.item.ID).Update("status", models.ItemStatusAvailable)
	})
}

func TestChatService_SendMessage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.item.ID, f.buyer.ID)
	assert.NoError(t, err)

	t.Run("Empty content rejected", func(t *testing.T) {
		_, _, err := f.svc.SendMessage(ctx, SendMessageInput{UserID: f.buyer.ID, ChatID: chat.ID, Content: "   "})
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("Oversized content rejected", func(t *testing.T) {
		_, _, err := f.svc.SendMessage(ctx, SendMessageInput{
			UserID:  f.buyer.ID,
			ChatID:  chat.ID,
			Content: strings.Repeat("x", maxMessageContentLen+1),
		})
		assert.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("Non-participant rejected", func(t *testing.T) {
		stranger := &models.User{Name: "Stranger", Email: "stranger@example.com"}
		f.db.Create(stranger)
		_, _, err := f.svc.SendMessage(ctx, SendMessageInput{UserID: stranger.ID, ChatID: chat.ID, Content: "hi"})
		assert.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("Send bumps counterparty unread", func(t *testing.T) {
		msg, _, err := f.svc.SendMessage(ctx, SendMessageInput{UserID: f.buyer.ID, ChatID: chat.ID, Content: "Is this still available?"})
		assert.NoError(t, err)
		assert.NotNil(t, msg.SenderID)
		assert.Equal(t, models.MessageTypeText, msg.Type)

		reloaded, err := f.svc.GetChatForUser(ctx, chat.ID, f.seller.ID)
		assert.NoError(t, err)
		assert.Equal(t, 1, reloaded.SellerUnread)
		assert.Equal(t, 0, reloaded.BuyerUnread)
	})

	t.Run("MarkAsRead zeroes viewer counter", func(t *testing.T) {
		assert.NoError(t, f.svc.MarkAsRead(ctx, chat.ID, f.seller.ID))
		reloaded, err := f.svc.GetChatForUser(ctx, chat.ID, f.seller.ID)
		assert.NoError(t, err)
		assert.Equal(t, 0, reloaded.SellerUnread)
	})
}

func TestChatService_SystemMessages(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	chat, err := f.svc.AnnounceToThread(ctx, f.item.ID, f.seller.ID, f.buyer.ID, "Swap approved.")
	assert.NoError(t, err)

	messages, err := f.svc.GetMessagesForUser(ctx, chat.ID, f.buyer.ID, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Nil(t, messages[0].SenderID)
	assert.True(t, messages[0].IsSystem())

	// System notices count unread for both sides.
	reloaded, err := f.svc.GetChatForUser(ctx, chat.ID, f.buyer.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, reloaded.BuyerUnread)
	assert.Equal(t, 1, reloaded.SellerUnread)
}

func TestChatService_MessageHistory(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.item.ID, f.buyer.ID)
	assert.NoError(t, err)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		_, _, err := f.svc.SendMessage(ctx, SendMessageInput{UserID: f.buyer.ID, ChatID: chat.ID, Content: c})
		assert.NoError(t, err)
	}

	t.Run("Chronological order", func(t *testing.T) {
		messages, err := f.svc.GetMessagesForUser(ctx, chat.ID, f.seller.ID, 0, 0)
		assert.NoError(t, err)
		assert.Len(t, messages, 3)
		for i, c := range contents {
			assert.Equal(t, c, messages[i].Message)
		}
	})

	t.Run("Limit returns latest window", func(t *testing.T) {
		messages, err := f.svc.GetMessagesForUser(ctx, chat.ID, f.seller.ID, 2, 0)
		assert.NoError(t, err)
		assert.Len(t, messages, 2)
		assert.Equal(t, "second", messages[0].Message)
		assert.Equal(t, "third", messages[1].Message)
	})

	t.Run("Non-participant denied", func(t *testing.T) {
		_, err := f.svc.GetMessagesForUser(ctx, chat.ID, 999, 0, 0)
		assert.Error(t, err)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("Equal timestamps ordered by insertion", func(t *testing.T) {
		// Burst sends can land inside the same clock tick; insertion ID
		// keeps the window edge stable.
		ts := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
		for _, c := range []string{"tie-a", "tie-b", "tie-c"} {
			f.db.Create(&models.ChatMessage{
				ChatID:    chat.ID,
				SenderID:  &f.buyer.ID,
				Message:   c,
				Type:      models.MessageTypeText,
				CreatedAt: ts,
			})
		}

		messages, err := f.svc.GetMessagesForUser(ctx, chat.ID, f.seller.ID, 2, 0)
		assert.NoError(t, err)
		assert.Len(t, messages, 2)
		assert.Equal(t, "tie-b", messages[0].Message)
		assert.Equal(t, "tie-c", messages[1].Message)
	})

	t.Run("Threads listed most recent first", func(t *testing.T) {
		chats, err := f.svc.GetChatsForUser(ctx, f.seller.ID)
		assert.NoError(t, err)
		assert.Len(t, chats, 1)
		assert.Equal(t, chat.ID, chats[0].ID)
	})
}
