package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%d"
	ItemKeyPrefix = "item:%d"
	ChatKeyPrefix = "chat:%d"

	// FeaturedItemsKey caches the homepage carousel query.
	FeaturedItemsKey = "items:featured"
)

const (
	UserTTL          = 5 * time.Minute
	ItemTTL          = 10 * time.Minute
	ChatTTL          = 2 * time.Minute
	FeaturedItemsTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ItemKey(itemID uint) string {
	return fmt.Sprintf(ItemKeyPrefix, itemID)
}

func ChatKey(chatID uint) string {
	return fmt.Sprintf(ChatKeyPrefix, chatID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateItem drops both the item entry and the featured carousel, since
// any status or field change can alter the carousel contents.
func InvalidateItem(ctx context.Context, itemID uint) {
	Invalidate(ctx, ItemKey(itemID))
	Invalidate(ctx, FeaturedItemsKey)
}

func InvalidateChat(ctx context.Context, chatID uint) {
	Invalidate(ctx, ChatKey(chatID))
}
