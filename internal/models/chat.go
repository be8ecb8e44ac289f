package models

import "time"

// MessageType distinguishes user text from system notices.
type MessageType string

const (
	// MessageTypeText is an ordinary user message.
	MessageTypeText MessageType = "text"
	// MessageTypeSystem is an automated notice; system messages carry a nil
	// SenderID.
	MessageTypeSystem MessageType = "system"
)

// Chat is a conversation thread scoped to exactly one listing and one
// buyer/seller pair. At most one chat exists per (item, seller, buyer)
// triple; threads are created lazily on first contact and never deleted.
//
// BuyerUnread/SellerUnread are server-side unread counters: incremented for
// the counterparty on every send, zeroed by MarkAsRead for the viewing side.
type Chat struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	ItemID       uint          `gorm:"not null;uniqueIndex:idx_chats_triple" json:"item_id"`
	Item         *ClothingItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	SellerID     uint          `gorm:"not null;uniqueIndex:idx_chats_triple" json:"seller_id"`
	Seller       *User         `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	BuyerID      uint          `gorm:"not null;uniqueIndex:idx_chats_triple" json:"buyer_id"`
	Buyer        *User         `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	BuyerUnread  int           `gorm:"not null;default:0" json:"buyer_unread"`
	SellerUnread int           `gorm:"not null;default:0" json:"seller_unread"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `gorm:"index" json:"updated_at"`
	Messages     []ChatMessage `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

// TableName specifies the table name for GORM.
func (Chat) TableName() string {
	return "chats"
}

// OtherParty returns the counterparty of userID in the thread, or 0 when the
// user is not a party.
func (c *Chat) OtherParty(userID uint) uint {
	switch userID {
	case c.BuyerID:
		return c.SellerID
	case c.SellerID:
		return c.BuyerID
	}
	return 0
}

// HasParty reports whether userID is the buyer or the seller.
func (c *Chat) HasParty(userID uint) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// ChatMessage is an append-only message within a thread, ordered by creation
// time. A nil SenderID marks a system message.
type ChatMessage struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ChatID    uint        `gorm:"not null;index" json:"chat_id"`
	SenderID  *uint       `gorm:"index" json:"sender_id,omitempty"`
	Sender    *User       `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Message   string      `gorm:"type:text;not null" json:"message"`
	Type      MessageType `gorm:"type:varchar(10);not null;default:'text'" json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// IsSystem reports whether the message was generated by the platform.
func (m *ChatMessage) IsSystem() bool {
	return m.Type == MessageTypeSystem || m.SenderID == nil
}
