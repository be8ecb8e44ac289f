package models

import "time"

// SwapStatus defines the lifecycle state of a swap request.
type SwapStatus string

const (
	// SwapStatusPending indicates a request awaiting the owner's decision.
	SwapStatusPending SwapStatus = "pending"
	// SwapStatusApproved indicates the owner accepted; completion pending.
	SwapStatusApproved SwapStatus = "approved"
	// SwapStatusRejected indicates the owner declined. Terminal.
	SwapStatusRejected SwapStatus = "rejected"
	// SwapStatusCompleted indicates the exchange happened. Terminal.
	SwapStatusCompleted SwapStatus = "completed"
)

// SwapType distinguishes the two exchange mechanisms.
type SwapType string

const (
	// SwapTypeDirect is an item-for-item exchange; no points change hands.
	SwapTypeDirect SwapType = "direct-swap"
	// SwapTypePoints acquires the listing by spending the requester's points.
	SwapTypePoints SwapType = "points-redemption"
)

// IsTerminal reports whether the status admits no further transitions.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusRejected || s == SwapStatusCompleted
}

// SwapRequest mediates an exchange of one listing between two users.
// Invariants: RequesterID != OwnerID, and OwnerID equals the item's
// UploaderID at creation time.
type SwapRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ItemID      uint          `gorm:"not null;index" json:"item_id"`
	Item        *ClothingItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	RequesterID uint          `gorm:"not null;index" json:"requester_id"`
	Requester   *User         `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	OwnerID     uint          `gorm:"not null;index" json:"owner_id"`
	Owner       *User         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Status      SwapStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Type        SwapType      `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (SwapRequest) TableName() string {
	return "swap_requests"
}
